package service

import (
	"context"
	"errors"
	"time"

	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/events"
	"github.com/newhorizons/case-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AppointmentService struct {
	db       *gorm.DB
	notifier Notifier
	events   events.Publisher
	log      *zap.Logger
}

func NewAppointmentService(db *gorm.DB, notifier Notifier, publisher events.Publisher, log *zap.Logger) *AppointmentService {
	return &AppointmentService{db: db, notifier: notifier, events: publisher, log: log}
}

type CreateAppointmentInput struct {
	Date     time.Time
	Type     model.AppointmentType
	TicketID uint64
	Link     *string
}

// Create books an appointment on a ticket. A second non-cancelled booking for the
// same ticket and instant is a conflict, whether caught here or by the unique index.
func (s *AppointmentService) Create(ctx context.Context, actor Actor, in CreateAppointmentInput) (*model.Appointment, error) {
	switch in.Type {
	case model.AppointmentTypeMedical, model.AppointmentTypePsychological:
	default:
		return nil, errs.Validation("invalid appointment type")
	}
	if in.Date.IsZero() {
		return nil, errs.Validation("date is required")
	}
	t, err := accessibleTicket(ctx, s.db, actor, in.TicketID)
	if err != nil {
		return nil, err
	}
	date := in.Date.UTC()

	var existing int64
	err = s.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("ticket_id = ? AND date = ? AND status <> ?", t.ID, date, model.AppointmentStatusCancelled).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, errs.ErrDuplicateBooking
	}

	a := &model.Appointment{
		Date:     date,
		Type:     in.Type,
		Status:   model.AppointmentStatusScheduled,
		Link:     in.Link,
		TicketID: t.ID,
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.ErrDuplicateBooking
		}
		return nil, err
	}
	a.Ticket = t

	if t.Client != nil && t.Client.Email != "" {
		s.notifier.AppointmentConfirmed(*a, *t.Client)
	}
	s.events.Publish(events.AppointmentCreated, t.ID, map[string]interface{}{
		"appointmentId": a.ID,
		"ticketId":      t.ID,
		"type":          a.Type,
		"date":          a.Date,
	})
	return a, nil
}

// List returns the appointments on tickets the actor can see, earliest first.
func (s *AppointmentService) List(ctx context.Context, actor Actor, ticketID uint64) ([]model.Appointment, error) {
	q := s.db.WithContext(ctx).
		Joins("JOIN tickets ON tickets.id = appointments.ticket_id").
		Preload("Ticket").
		Preload("Ticket.Client").
		Preload("Ticket.Advisor")
	switch actor.Role {
	case model.RoleClient:
		q = q.Where("tickets.client_id = ?", actor.ID)
	case model.RoleAdvisor:
		q = q.Where("tickets.advisor_id = ?", actor.ID)
	}
	if ticketID != 0 {
		q = q.Where("appointments.ticket_id = ?", ticketID)
	}
	out := []model.Appointment{}
	err := q.Order("appointments.date ASC").Order("appointments.id ASC").Find(&out).Error
	return out, err
}

// UpdateStatus overwrites the status. Any value is accepted.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor Actor, id uint64, status string) (*model.Appointment, error) {
	if status == "" {
		return nil, errs.Validation("status is required")
	}
	var a model.Appointment
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrAppointmentNotFound
		}
		return nil, err
	}
	if _, err := accessibleTicket(ctx, s.db, actor, a.TicketID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&a).Update("status", status).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.ErrDuplicateBooking
		}
		return nil, err
	}
	a.Status = status
	return &a, nil
}
