package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/events"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/paygateway"
	"github.com/newhorizons/case-service/internal/workflow"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCurrency = "USD"

// PaymentService handles payments made from inside the portal against an existing ticket.
type PaymentService struct {
	db        *gorm.DB
	gateway   paygateway.Gateway
	workflows *workflow.Table
	events    events.Publisher
	log       *zap.Logger
}

func NewPaymentService(db *gorm.DB, gateway paygateway.Gateway, workflows *workflow.Table, publisher events.Publisher, log *zap.Logger) *PaymentService {
	return &PaymentService{db: db, gateway: gateway, workflows: workflows, events: publisher, log: log}
}

// ticketOrderMeta is attached to portal orders and checked on capture.
type ticketOrderMeta struct {
	TicketID uint64 `json:"ticketId"`
	StageID  string `json:"stageId,omitempty"`
}

// CreateOrder opens a provider order for the amount the caller supplies. When the
// ticket's current stage has a payment gate, the order is tied to that stage.
func (s *PaymentService) CreateOrder(ctx context.Context, actor Actor, ticketID uint64, amount float64) (*paygateway.Order, error) {
	if !validAmount(amount) || paygateway.MinorUnits(amount) <= 0 {
		return nil, errs.Validation("amount must be positive")
	}
	t, err := accessibleTicket(ctx, s.db, actor, ticketID)
	if err != nil {
		return nil, err
	}
	meta := ticketOrderMeta{TicketID: t.ID}
	currency := defaultCurrency
	if stage, ok := s.paymentStage(t); ok {
		meta.StageID = stage.ID
		currency = stage.Gate.Currency
	}
	customID, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	order, err := s.gateway.CreateOrder(ctx, paygateway.OrderRequest{
		Amount:      paygateway.MinorUnits(amount),
		Currency:    currency,
		Description: "Ticket #" + strconv.FormatUint(t.ID, 10),
		CustomID:    string(customID),
	})
	if err != nil {
		s.log.Error("create order failed", zap.Uint64("ticket_id", t.ID), zap.Error(err))
		return nil, errs.ErrPaymentInit
	}
	return order, nil
}

func (s *PaymentService) paymentStage(t *model.Ticket) (workflow.StageDescriptor, bool) {
	md, err := workflow.DecodeMetadata(t.Metadata)
	if err != nil {
		return workflow.StageDescriptor{}, false
	}
	stage, ok := s.workflows.ActiveGate(t.Type, md)
	if !ok || stage.Gate.Kind != workflow.GatePayment {
		return workflow.StageDescriptor{}, false
	}
	return stage, true
}

// CaptureOrder captures a provider order and records the COMPLETED payment.
// Nothing is persisted unless the provider confirms the capture and the order was
// opened for ticketID.
func (s *PaymentService) CaptureOrder(ctx context.Context, actor Actor, orderID string, ticketID uint64) (*model.Payment, error) {
	if orderID == "" {
		return nil, errs.Validation("orderID is required")
	}
	t, err := accessibleTicket(ctx, s.db, actor, ticketID)
	if err != nil {
		return nil, err
	}

	var existing model.Payment
	err = s.db.WithContext(ctx).Where("provider_order_id = ?", orderID).First(&existing).Error
	if err == nil {
		if existing.TicketID != t.ID {
			return nil, errs.Validation("order belongs to another ticket")
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	capture, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil || !capture.Completed() {
		s.log.Warn("capture failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, errs.ErrPaymentCapture
	}
	var meta ticketOrderMeta
	if json.Unmarshal([]byte(capture.CustomID), &meta) != nil || meta.TicketID != t.ID {
		s.log.Error("captured order does not belong to ticket",
			zap.String("order_id", orderID), zap.Uint64("ticket_id", t.ID), zap.String("custom_id", capture.CustomID))
		return nil, errs.Validation("order belongs to another ticket")
	}
	p := &model.Payment{
		AmountMinor:     capture.Amount,
		Currency:        capture.Currency,
		Status:          model.PaymentStatusCompleted,
		ProviderOrderID: orderID,
		UserID:          actor.ID,
		TicketID:        t.ID,
	}
	if meta.StageID != "" {
		p.StageID = &meta.StageID
	}
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent capture of the same order won.
			if err := s.db.WithContext(ctx).Where("provider_order_id = ?", orderID).First(&existing).Error; err == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	s.events.Publish(events.PaymentCompleted, t.ID, paymentPayload(p))
	return p, nil
}

// maxAmount keeps MinorUnits well inside int64.
const maxAmount = 1e10

func validAmount(v float64) bool {
	return v > 0 && v < maxAmount && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func paymentPayload(p *model.Payment) map[string]interface{} {
	out := map[string]interface{}{
		"paymentId": p.ID,
		"ticketId":  p.TicketID,
		"userId":    p.UserID,
		"amount":    paygateway.FormatAmount(p.AmountMinor),
		"currency":  p.Currency,
		"orderId":   p.ProviderOrderID,
	}
	if p.StageID != nil {
		out["stageId"] = *p.StageID
	}
	return out
}
