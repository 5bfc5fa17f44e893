package service

import (
	"context"

	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/repository"
	"gorm.io/gorm"
)

const activityLimit = 5

type TicketStats struct {
	Open       int64 `json:"open"`
	InProgress int64 `json:"inProgress"`
	Resolved   int64 `json:"resolved"`
	Closed     int64 `json:"closed"`
	Total      int64 `json:"total"`
}

// StatsService aggregates the dashboard numbers, scoped like ticket listings.
type StatsService struct {
	repo *repository.TicketRepository
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{repo: repository.NewTicketRepository(db)}
}

func (s *StatsService) Tickets(ctx context.Context, actor Actor) (*TicketStats, error) {
	counts, err := s.repo.CountByStatus(ctx, ticketScope(actor))
	if err != nil {
		return nil, err
	}
	st := &TicketStats{
		Open:       counts[model.TicketStatusOpen],
		InProgress: counts[model.TicketStatusInProgress],
		Resolved:   counts[model.TicketStatusResolved],
		Closed:     counts[model.TicketStatusClosed],
	}
	st.Total = st.Open + st.InProgress + st.Resolved + st.Closed
	return st, nil
}

// Activity returns the most recently updated visible tickets.
func (s *StatsService) Activity(ctx context.Context, actor Actor) ([]model.Ticket, error) {
	items, err := s.repo.RecentlyUpdated(ctx, ticketScope(actor), activityLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Ticket{}
	}
	return items, nil
}
