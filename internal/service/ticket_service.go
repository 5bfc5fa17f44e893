package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/events"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/repository"
	"github.com/newhorizons/case-service/internal/workflow"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type TicketService struct {
	db        *gorm.DB
	repo      *repository.TicketRepository
	users     *repository.UserRepository
	workflows *workflow.Table
	notifier  Notifier
	events    events.Publisher
	audit     *AuditService
	log       *zap.Logger
}

func NewTicketService(db *gorm.DB, workflows *workflow.Table, notifier Notifier, publisher events.Publisher, audit *AuditService, log *zap.Logger) *TicketService {
	return &TicketService{
		db:        db,
		repo:      repository.NewTicketRepository(db),
		users:     repository.NewUserRepository(db),
		workflows: workflows,
		notifier:  notifier,
		events:    publisher,
		audit:     audit,
		log:       log,
	}
}

type CreateTicketInput struct {
	Title       string
	Description string
	Priority    model.Priority
	Type        model.TicketType
	// ClientID defaults to the creator.
	ClientID string
	// Metadata replaces the workflow seed when non-empty.
	Metadata json.RawMessage
}

// Create opens a case on behalf of a client. Clients may not open cases themselves.
func (s *TicketService) Create(ctx context.Context, actor Actor, in CreateTicketInput) (*model.Ticket, error) {
	if actor.Role == model.RoleClient {
		return nil, errs.Forbidden("clients cannot create tickets")
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if in.Type == "" {
		in.Type = model.TicketTypeOther
	}
	if in.ClientID == "" {
		in.ClientID = actor.ID
	}
	if _, err := s.users.FindByID(ctx, in.ClientID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Validation("client does not exist")
		}
		return nil, err
	}

	metadata, err := s.metadataFor(in.Type, in.Metadata)
	if err != nil {
		return nil, err
	}
	t := &model.Ticket{
		Title:       in.Title,
		Description: in.Description,
		Status:      model.TicketStatusOpen,
		Priority:    in.Priority,
		Type:        in.Type,
		ClientID:    in.ClientID,
		Metadata:    metadata,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.events.Publish(events.TicketCreated, t.ID, ticketPayload(t))
	return s.repo.FindByID(ctx, t.ID)
}

func (s *TicketService) metadataFor(tt model.TicketType, supplied json.RawMessage) (datatypes.JSON, error) {
	if len(supplied) > 0 && string(supplied) != "null" {
		var obj map[string]interface{}
		if err := json.Unmarshal(supplied, &obj); err != nil {
			return nil, errs.Validation("metadata must be an object")
		}
		return datatypes.JSON(supplied), nil
	}
	raw, err := json.Marshal(s.workflows.Seed(tt))
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

type ListTicketsInput struct {
	Status    model.TicketStatus
	Priority  model.Priority
	Type      model.TicketType
	AdvisorID string
	ClientID  string
	Search    string
	Page      int
	Limit     int
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type TicketPage struct {
	Tickets    []model.Ticket `json:"tickets"`
	Pagination Pagination     `json:"pagination"`
}

// List returns the actor's visible tickets, newest first.
func (s *TicketService) List(ctx context.Context, actor Actor, in ListTicketsInput) (*TicketPage, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 {
		in.Limit = defaultPageLimit
	}
	if in.Limit > maxPageLimit {
		in.Limit = maxPageLimit
	}

	f := ticketScope(actor)
	f.Status = in.Status
	f.Priority = in.Priority
	f.Type = in.Type
	f.Search = in.Search
	// Only admins may pick another advisor's queue; advisors stay scoped to their own.
	if in.AdvisorID != "" && actor.Role == model.RoleAdmin {
		f.AdvisorID = in.AdvisorID
	}
	if in.ClientID != "" && actor.Role.Staff() {
		f.ClientID = in.ClientID
	}

	items, total, err := s.repo.FindAll(ctx, f, in.Page, in.Limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Ticket{}
	}
	return &TicketPage{
		Tickets: items,
		Pagination: Pagination{
			Page:       in.Page,
			Limit:      in.Limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(in.Limit))),
		},
	}, nil
}

// StageGate is the action the CURRENT stage waits for.
type StageGate struct {
	StageID    string `json:"stageId"`
	StageLabel string `json:"stageLabel"`
	workflow.Gate
	Satisfied bool `json:"satisfied"`
}

type TicketDetail struct {
	*model.Ticket
	StageGate *StageGate `json:"stageGate"`
}

// Get returns one ticket. Clients may only read their own.
func (s *TicketService) Get(ctx context.Context, actor Actor, id uint64) (*TicketDetail, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canReadTicket(actor, t) {
		return nil, errs.Forbidden("forbidden")
	}
	gate, err := s.stageGate(ctx, t)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{Ticket: t, StageGate: gate}, nil
}

func (s *TicketService) stageGate(ctx context.Context, t *model.Ticket) (*StageGate, error) {
	md, err := workflow.DecodeMetadata(t.Metadata)
	if err != nil {
		// Free-form metadata written by hand; no gate can be derived from it.
		s.log.Debug("ticket metadata not decodable", zap.Uint64("ticket_id", t.ID), zap.Error(err))
		return nil, nil
	}
	stage, ok := s.workflows.ActiveGate(t.Type, md)
	if !ok {
		return nil, nil
	}
	gate := &StageGate{StageID: stage.ID, StageLabel: stage.Label, Gate: *stage.Gate}

	q := s.db.WithContext(ctx)
	switch stage.Gate.Kind {
	case workflow.GatePayment:
		// Only payments opened for this stage count, and together they must cover the gate.
		due, err := stage.Gate.AmountMinor()
		if err != nil {
			return nil, err
		}
		var paid int64
		err = q.Model(&model.Payment{}).
			Select("COALESCE(SUM(amount_minor), 0)").
			Where("ticket_id = ? AND status = ? AND stage_id = ? AND currency = ?",
				t.ID, model.PaymentStatusCompleted, stage.ID, stage.Gate.Currency).
			Scan(&paid).Error
		if err != nil {
			return nil, err
		}
		gate.Satisfied = paid >= due
	case workflow.GateAppointment:
		var n int64
		err = q.Model(&model.Appointment{}).
			Where("ticket_id = ? AND status <> ? AND type IN ?", t.ID, model.AppointmentStatusCancelled, stage.Gate.AppointmentTypes).
			Count(&n).Error
		if err != nil {
			return nil, err
		}
		gate.Satisfied = n > 0
	}
	return gate, nil
}

type UpdateTicketInput struct {
	Status   *model.TicketStatus
	Priority *model.Priority
	// AdvisorID "" unassigns.
	AdvisorID *string
	Metadata  json.RawMessage
}

// Update changes status, priority, advisor or metadata. Only staff may update.
// A status change notifies the client by e-mail.
func (s *TicketService) Update(ctx context.Context, actor Actor, id uint64, in UpdateTicketInput) (*model.Ticket, error) {
	if !actor.Role.Staff() {
		return nil, errs.Forbidden("only advisors and admins can update tickets")
	}
	changes := make(map[string]interface{})
	details := make(map[string]interface{})
	if in.Status != nil {
		changes["status"] = *in.Status
		details["status"] = *in.Status
	}
	if in.Priority != nil {
		changes["priority"] = *in.Priority
		details["priority"] = *in.Priority
	}
	if in.AdvisorID != nil {
		details["advisorId"] = *in.AdvisorID
		if *in.AdvisorID == "" {
			changes["advisor_id"] = nil
		} else {
			advisor, err := s.users.FindByID(ctx, *in.AdvisorID)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					return nil, errs.Validation("advisor does not exist")
				}
				return nil, err
			}
			if !advisor.Role.Staff() {
				return nil, errs.Validation("advisor must be an advisor or admin")
			}
			changes["advisor_id"] = advisor.ID
		}
	}
	if len(in.Metadata) > 0 && string(in.Metadata) != "null" {
		var obj map[string]interface{}
		if err := json.Unmarshal(in.Metadata, &obj); err != nil {
			return nil, errs.Validation("metadata must be an object")
		}
		changes["metadata"] = datatypes.JSON(in.Metadata)
	}
	if len(changes) == 0 {
		return nil, errs.Validation("no changes")
	}

	t, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && t.Client != nil && t.Client.Email != "" {
		s.notifier.TicketStatusChanged(*t, *t.Client)
	}
	s.audit.Log(ctx, AuditUpdateTicket, "TICKET", strconv.FormatUint(id, 10), actor.ID, details)
	s.events.Publish(events.TicketUpdated, t.ID, ticketPayload(t))
	return t, nil
}

func ticketPayload(t *model.Ticket) map[string]interface{} {
	p := map[string]interface{}{
		"ticketId": t.ID,
		"title":    t.Title,
		"status":   t.Status,
		"priority": t.Priority,
		"type":     t.Type,
		"clientId": t.ClientID,
	}
	if t.AdvisorID != nil {
		p["advisorId"] = *t.AdvisorID
	}
	return p
}

// Republish emits ticket.updated for every stored ticket so downstream consumers can
// rebuild their view. Each event is written before the next one is sent; failures are
// counted and reported in err. progress, when set, is called after each batch.
func (s *TicketService) Republish(ctx context.Context, progress func(done int)) (sent, failed int, err error) {
	err = s.repo.EachBatch(ctx, 50, func(batch []model.Ticket) error {
		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.events.PublishSync(ctx, events.TicketUpdated, batch[i].ID, ticketPayload(&batch[i])); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed++
				s.log.Warn("republish failed", zap.Uint64("ticket_id", batch[i].ID), zap.Error(err))
				continue
			}
			sent++
		}
		if progress != nil {
			progress(sent + failed)
		}
		return nil
	})
	if err == nil && failed > 0 {
		err = fmt.Errorf("%d of %d events failed", failed, sent+failed)
	}
	return sent, failed, err
}
