package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newhorizons/case-service/internal/config"
	"github.com/newhorizons/case-service/internal/database"
	"github.com/newhorizons/case-service/internal/events"
	"github.com/newhorizons/case-service/internal/handler"
	"github.com/newhorizons/case-service/internal/middleware"
	"github.com/newhorizons/case-service/internal/notify"
	"github.com/newhorizons/case-service/internal/paygateway"
	"github.com/newhorizons/case-service/internal/ratelimit"
	"github.com/newhorizons/case-service/internal/router"
	"github.com/newhorizons/case-service/internal/service"
	"github.com/newhorizons/case-service/internal/storage"
	"github.com/newhorizons/case-service/internal/workflow"
	"github.com/psds-microservice/helpy/paths"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// API is the HTTP server together with the collaborators it must drain on shutdown.
type API struct {
	cfg      *config.Config
	log      *zap.Logger
	httpSrv  *http.Server
	notifier *notify.Notifier
	producer *events.Producer
	redis    *redis.Client
}

// NewAPI migrates the database, wires every service and builds the HTTP server.
func NewAPI(ctx context.Context, cfg *config.Config, log *zap.Logger) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.NewMigrator(cfg.DatabaseURL(), log).Up(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	workflows := workflow.Default()

	mailer := notify.NewMailer(cfg.Mail.BrevoAPIKey, cfg.Mail.From, cfg.Mail.FromName, cfg.Mail.Sandbox, log)
	notifier := notify.NewNotifier(mailer, cfg.ClientURL, log)

	gateway, err := paygateway.New(cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, cfg.PayPal.Mode, log)
	if err != nil {
		return nil, err
	}
	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicCases, log)

	var (
		publicLimit ratelimit.Limiter = ratelimit.NewMemory(cfg.RateLimit.Public, cfg.RateLimit.Window)
		authLimit   ratelimit.Limiter = ratelimit.NewMemory(cfg.RateLimit.Auth, cfg.RateLimit.Window)
		rdb         *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		publicLimit = ratelimit.NewRedis(rdb, "rl:public", cfg.RateLimit.Public, cfg.RateLimit.Window)
		authLimit = ratelimit.NewRedis(rdb, "rl:auth", cfg.RateLimit.Auth, cfg.RateLimit.Window)
	}

	files, err := storage.NewDisk(cfg.UploadDir, router.UploadsPath)
	if err != nil {
		return nil, fmt.Errorf("uploads: %w", err)
	}

	audit := service.NewAuditService(db, log)
	authSvc := service.NewAuthService(db, notifier, audit, cfg.Session.TTL, log)
	ticketSvc := service.NewTicketService(db, workflows, notifier, producer, audit, log)
	commentSvc := service.NewCommentService(db)
	attachmentSvc := service.NewAttachmentService(db, files, audit, log)
	userSvc := service.NewUserService(db)
	statsSvc := service.NewStatsService(db)
	paymentSvc := service.NewPaymentService(db, gateway, workflows, producer, log)
	checkoutSvc := service.NewCheckoutService(db, gateway, workflows, notifier, producer, audit, log)
	appointmentSvc := service.NewAppointmentService(db, notifier, producer, log)

	cookie := middleware.Cookie{Name: cfg.Session.CookieName, Secure: cfg.Session.Secure}
	h := router.New(router.Deps{
		DB:          db,
		Log:         log,
		Auth:        middleware.NewAuth(authSvc, cookie, log),
		CORSOrigins: cfg.CORSOrigins,
		UploadDir:   files.Dir(),
		PublicLimit: publicLimit,
		AuthLimit:   authLimit,

		AuthHandler:        handler.NewAuthHandler(authSvc, cookie, log),
		TicketHandler:      handler.NewTicketHandler(ticketSvc, log),
		CommentHandler:     handler.NewCommentHandler(commentSvc, log),
		AttachmentHandler:  handler.NewAttachmentHandler(attachmentSvc, cfg.MaxUploadMB, log),
		UserHandler:        handler.NewUserHandler(userSvc, log),
		StatsHandler:       handler.NewStatsHandler(statsSvc, log),
		PaymentHandler:     handler.NewPaymentHandler(paymentSvc, log),
		CheckoutHandler:    handler.NewCheckoutHandler(checkoutSvc, log),
		AppointmentHandler: handler.NewAppointmentHandler(appointmentSvc, log),
		WorkflowHandler:    handler.NewWorkflowHandler(workflows),
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:      cfg,
		log:      log,
		httpSrv:  httpSrv,
		notifier: notifier,
		producer: producer,
		redis:    rdb,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains mail and event sends.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.log.Info("http server listening",
		zap.String("addr", a.httpSrv.Addr),
		zap.String("swagger", base+paths.PathSwagger),
		zap.String("health", base+paths.PathHealth),
		zap.String("api", base+"/api/"))

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := a.httpSrv.Shutdown(shutdownCtx)
	a.notifier.Wait()
	if cerr := a.producer.Close(); cerr != nil {
		a.log.Warn("close event producer", zap.Error(cerr))
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	a.log.Info("http server stopped")
	return nil
}
