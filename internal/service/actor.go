package service

import (
	"context"
	"errors"

	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/repository"
	"gorm.io/gorm"
)

// Actor is the authenticated user an operation runs as.
type Actor struct {
	ID   string
	Role model.Role
}

func ActorOf(u *model.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// ticketScope limits listings to what the actor may see:
// clients their own cases, advisors their assigned cases, admins everything.
func ticketScope(a Actor) repository.TicketFilter {
	switch a.Role {
	case model.RoleClient:
		return repository.TicketFilter{ClientID: a.ID}
	case model.RoleAdvisor:
		return repository.TicketFilter{AdvisorID: a.ID}
	}
	return repository.TicketFilter{}
}

// canReadTicket: staff read any ticket, clients only their own.
func canReadTicket(a Actor, t *model.Ticket) bool {
	return a.Role.Staff() || t.ClientID == a.ID
}

// accessibleTicket loads a ticket with its client, or fails with NotFound/Forbidden.
func accessibleTicket(ctx context.Context, db *gorm.DB, a Actor, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	if err := db.WithContext(ctx).Preload("Client").First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	if !canReadTicket(a, &t) {
		return nil, errs.Forbidden("forbidden")
	}
	return &t, nil
}

// Notifier is the outbound mail surface the services use.
type Notifier interface {
	Welcome(u model.User)
	TicketStatusChanged(t model.Ticket, client model.User)
	AppointmentConfirmed(a model.Appointment, client model.User)
	CheckoutCredentials(u model.User, program, tempPassword string)
}
