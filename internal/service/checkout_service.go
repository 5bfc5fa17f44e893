package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/events"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/paygateway"
	"github.com/newhorizons/case-service/internal/repository"
	"github.com/newhorizons/case-service/internal/workflow"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CheckoutService sells programs to visitors without an account. A captured order
// provisions the client account, the case and the payment together.
type CheckoutService struct {
	db        *gorm.DB
	users     *repository.UserRepository
	gateway   paygateway.Gateway
	workflows *workflow.Table
	notifier  Notifier
	events    events.Publisher
	audit     *AuditService
	log       *zap.Logger
}

func NewCheckoutService(db *gorm.DB, gateway paygateway.Gateway, workflows *workflow.Table, notifier Notifier, publisher events.Publisher, audit *AuditService, log *zap.Logger) *CheckoutService {
	return &CheckoutService{
		db:        db,
		users:     repository.NewUserRepository(db),
		gateway:   gateway,
		workflows: workflows,
		notifier:  notifier,
		events:    publisher,
		audit:     audit,
		log:       log,
	}
}

// orderMeta is attached to the provider order and read back on capture.
type orderMeta struct {
	ProgramID string `json:"programId"`
	Adults    int    `json:"adults"`
	Children  int    `json:"children"`
}

type InitCheckoutInput struct {
	ProgramID string
	// Amount overrides the computed program total when set.
	Amount   *float64
	Adults   int
	Children int
}

type CheckoutOrder struct {
	ID          string  `json:"id"`
	TotalAmount float64 `json:"totalAmount"`
}

func (s *CheckoutService) Init(ctx context.Context, in InitCheckoutInput) (*CheckoutOrder, error) {
	program, ok := s.workflows.Program(in.ProgramID)
	if !ok {
		return nil, errs.Validation("invalid program selected")
	}
	if in.Adults < 0 || in.Children < 0 {
		return nil, errs.Validation("family size cannot be negative")
	}
	total := program.Total(in.Adults, in.Children)
	if in.Amount != nil {
		total = *in.Amount
	}
	if !validAmount(total) || paygateway.MinorUnits(total) <= 0 {
		return nil, errs.Validation("invalid amount provided")
	}
	minor := paygateway.MinorUnits(total)

	meta, err := json.Marshal(orderMeta{ProgramID: program.ID, Adults: in.Adults, Children: in.Children})
	if err != nil {
		return nil, err
	}
	order, err := s.gateway.CreateOrder(ctx, paygateway.OrderRequest{
		Amount:      minor,
		Currency:    program.Currency,
		Description: fmt.Sprintf("%s - %d Adults, %d Children", program.Label, in.Adults, in.Children),
		CustomID:    string(meta),
	})
	if err != nil {
		s.log.Error("checkout order failed", zap.String("program_id", program.ID), zap.Error(err))
		return nil, errs.ErrPaymentInit
	}
	return &CheckoutOrder{ID: order.ID, TotalAmount: float64(minor) / 100}, nil
}

type ClientDetails struct {
	Email        string
	FullName     string
	ProgramLabel string
	Adults       int
	Children     int
	Address      string
	City         string
	Country      string
}

type CheckoutResult struct {
	Status       string  `json:"status"`
	IsNewUser    bool    `json:"isNewUser"`
	TempPassword *string `json:"tempPassword"`
	TicketID     uint64  `json:"ticketId"`
	UserEmail    string  `json:"userEmail"`
}

const checkoutSuccess = "SUCCESS"

var errOrderAlreadyRecorded = errors.New("order already recorded")

// Capture captures the order and creates the user (when new), ticket and payment in one
// transaction. Replaying an order id returns the first result and creates nothing.
func (s *CheckoutService) Capture(ctx context.Context, orderID string, details ClientDetails) (*CheckoutResult, error) {
	details.Email = repository.NormalizeEmail(details.Email)
	details.FullName = strings.TrimSpace(details.FullName)
	if orderID == "" {
		return nil, errs.Validation("orderID is required")
	}
	if details.Email == "" || details.FullName == "" {
		return nil, errs.Validation("invalid client details")
	}

	prev, err := s.replay(ctx, orderID)
	if err == nil {
		return prev, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	capture, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil || !capture.Completed() {
		s.log.Warn("checkout capture failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, errs.ErrPaymentCapture
	}

	program, adults, children := s.resolveProgram(capture.CustomID, details)
	label := details.ProgramLabel
	ticketType := model.TicketTypeOther
	if program != nil {
		label = program.Label
		ticketType = program.TicketType
	}

	var (
		user         *model.User
		ticket       *model.Ticket
		payment      *model.Payment
		tempPassword string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		u, err := users.FindByEmail(ctx, details.Email)
		switch {
		case err == nil:
			user = u
		case errors.Is(err, errs.ErrNotFound):
			tempPassword = newTempPassword()
			hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user = &model.User{
				ID:       uuid.NewString(),
				Email:    details.Email,
				Name:     details.FullName,
				Password: string(hash),
				Role:     model.RoleClient,
			}
			if err := users.Create(ctx, user); err != nil {
				return err
			}
		default:
			return err
		}

		seed, err := json.Marshal(s.workflows.Seed(ticketType))
		if err != nil {
			return err
		}
		ticket = &model.Ticket{
			Title: "Process: " + label,
			Description: fmt.Sprintf("Immigration process for %s. Family: %d Adults, %d Children. Address: %s, %s, %s.",
				label, adults, children, details.Address, details.City, details.Country),
			Status:   model.TicketStatusOpen,
			Priority: model.PriorityMedium,
			Type:     ticketType,
			ClientID: user.ID,
			Metadata: datatypes.JSON(seed),
		}
		if err := tx.Create(ticket).Error; err != nil {
			return err
		}

		payment = &model.Payment{
			AmountMinor:     capture.Amount,
			Currency:        capture.Currency,
			Status:          model.PaymentStatusCompleted,
			ProviderOrderID: orderID,
			UserID:          user.ID,
			TicketID:        ticket.ID,
		}
		if payment.Currency == "" {
			payment.Currency = defaultCurrency
		}
		if err := tx.Create(payment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errOrderAlreadyRecorded
			}
			return err
		}
		return nil
	})
	if errors.Is(err, errOrderAlreadyRecorded) {
		return s.replay(ctx, orderID)
	}
	if err != nil {
		return nil, err
	}

	isNew := tempPassword != ""
	if isNew {
		s.notifier.CheckoutCredentials(*user, label, tempPassword)
	}
	s.audit.Log(ctx, AuditCheckoutCapture, "PAYMENT", strconv.FormatUint(payment.ID, 10), user.ID, map[string]interface{}{
		"orderId":   orderID,
		"ticketId":  ticket.ID,
		"amount":    paygateway.FormatAmount(payment.AmountMinor),
		"isNewUser": isNew,
	})
	s.events.Publish(events.TicketCreated, ticket.ID, ticketPayload(ticket))
	s.events.Publish(events.PaymentCompleted, ticket.ID, paymentPayload(payment))

	res := &CheckoutResult{
		Status:    checkoutSuccess,
		IsNewUser: isNew,
		TicketID:  ticket.ID,
		UserEmail: user.Email,
	}
	if isNew {
		res.TempPassword = &tempPassword
	}
	return res, nil
}

// replay rebuilds the result of an order that was already recorded.
func (s *CheckoutService) replay(ctx context.Context, orderID string) (*CheckoutResult, error) {
	var p model.Payment
	if err := s.db.WithContext(ctx).Where("provider_order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	s.log.Info("checkout replay", zap.String("order_id", orderID), zap.Uint64("ticket_id", p.TicketID))
	return &CheckoutResult{
		Status:    checkoutSuccess,
		TicketID:  p.TicketID,
		UserEmail: u.Email,
	}, nil
}

// resolveProgram prefers the metadata attached at init and falls back to the label the
// browser sends back.
func (s *CheckoutService) resolveProgram(customID string, details ClientDetails) (*workflow.Program, int, int) {
	var meta orderMeta
	if customID != "" && json.Unmarshal([]byte(customID), &meta) == nil {
		if p, ok := s.workflows.Program(meta.ProgramID); ok {
			return &p, meta.Adults, meta.Children
		}
	}
	if p, ok := s.workflows.ProgramByLabel(details.ProgramLabel); ok {
		return &p, details.Adults, details.Children
	}
	return nil, details.Adults, details.Children
}

func newTempPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10] + "A1!"
}
