package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/api"
	"github.com/newhorizons/case-service/internal/handler"
	"github.com/newhorizons/case-service/internal/middleware"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/ratelimit"
	"github.com/psds-microservice/helpy/paths"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const UploadsPath = "/uploads"

// Deps is everything the HTTP surface needs.
type Deps struct {
	DB          *gorm.DB
	Log         *zap.Logger
	Auth        *middleware.Auth
	CORSOrigins []string
	UploadDir   string
	PublicLimit ratelimit.Limiter
	AuthLimit   ratelimit.Limiter

	AuthHandler        *handler.AuthHandler
	TicketHandler      *handler.TicketHandler
	CommentHandler     *handler.CommentHandler
	AttachmentHandler  *handler.AttachmentHandler
	UserHandler        *handler.UserHandler
	StatsHandler       *handler.StatsHandler
	PaymentHandler     *handler.PaymentHandler
	CheckoutHandler    *handler.CheckoutHandler
	AppointmentHandler *handler.AppointmentHandler
	WorkflowHandler    *handler.WorkflowHandler
}

func New(d Deps) http.Handler {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(d.Log), middleware.Recovery(d.Log), middleware.CORS(d.CORSOrigins))

	r.GET(paths.PathHealth, handler.Health)
	r.GET(paths.PathReady, handler.Ready(d.DB))
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/openapi.json"))(c)
	})
	if d.UploadDir != "" {
		r.Static(UploadsPath, d.UploadDir)
	}

	staff := middleware.RequireRole(model.RoleAdmin, model.RoleAdvisor)
	admin := middleware.RequireRole(model.RoleAdmin)

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	{
		limited := middleware.RateLimit(d.AuthLimit, d.Log)
		authGroup.POST("/signup", limited, d.AuthHandler.Signup)
		authGroup.POST("/login", limited, d.AuthHandler.Login)
		authGroup.POST("/logout", d.AuthHandler.Logout)
		authGroup.GET("/me", d.Auth.Require(), d.AuthHandler.Me)
	}

	public := apiGroup.Group("/public", middleware.RateLimit(d.PublicLimit, d.Log))
	{
		public.POST("/checkout/init", d.CheckoutHandler.Init)
		public.POST("/checkout/capture", d.CheckoutHandler.Capture)
	}

	apiGroup.GET("/workflows", d.WorkflowHandler.List)
	apiGroup.GET("/workflows/:type", d.WorkflowHandler.Get)

	protected := apiGroup.Group("", d.Auth.Require())
	{
		protected.POST("/tickets", d.TicketHandler.Create)
		protected.GET("/tickets", d.TicketHandler.List)
		protected.GET("/tickets/:id", d.TicketHandler.Get)
		protected.PATCH("/tickets/:id", d.TicketHandler.Update)
		protected.PATCH("/tickets/:id/assign", staff, d.TicketHandler.Update)

		protected.GET("/tickets/:id/comments", d.CommentHandler.List)
		protected.POST("/tickets/:id/comments", d.CommentHandler.Create)
		protected.GET("/tickets/:id/attachments", d.AttachmentHandler.List)
		protected.POST("/tickets/:id/attachments", d.AttachmentHandler.Upload)

		protected.GET("/users", staff, d.UserHandler.List)
		protected.POST("/users", admin, d.UserHandler.Create)
		protected.PATCH("/users/:id", admin, d.UserHandler.Update)
		protected.POST("/users/:id/login-as", admin, d.AuthHandler.LoginAs)

		protected.GET("/stats/tickets", d.StatsHandler.Tickets)
		protected.GET("/stats/activity", d.StatsHandler.Activity)

		protected.POST("/payments/create-order", d.PaymentHandler.CreateOrder)
		protected.POST("/payments/capture-order", d.PaymentHandler.CaptureOrder)

		protected.GET("/appointments", d.AppointmentHandler.List)
		protected.POST("/appointments", d.AppointmentHandler.Create)
		protected.PATCH("/appointments/:id/status", d.AppointmentHandler.UpdateStatus)
	}

	return r
}
