package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/model"
	"gorm.io/gorm"
)

// TicketFilter narrows a listing. Empty fields do not filter.
type TicketFilter struct {
	ClientID  string
	AdvisorID string
	Status    model.TicketStatus
	Priority  model.Priority
	Type      model.TicketType
	// Search matches title or description, case-insensitively.
	Search string
}

func (f TicketFilter) apply(tx *gorm.DB) *gorm.DB {
	if f.ClientID != "" {
		tx = tx.Where("client_id = ?", f.ClientID)
	}
	if f.AdvisorID != "" {
		tx = tx.Where("advisor_id = ?", f.AdvisorID)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		tx = tx.Where("priority = ?", f.Priority)
	}
	if f.Type != "" {
		tx = tx.Where("type = ?", f.Type)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + escapeLike(strings.ToLower(s)) + "%"
		tx = tx.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, like, like)
	}
	return tx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern escaped with '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, t *model.Ticket) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// FindByID loads the ticket with its parties, comments (oldest first), attachments and
// payments (newest first) and appointments (soonest first).
func (r *TicketRepository) FindByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Advisor").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Comments.User").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		Preload("Attachments.Uploader").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		Preload("Appointments", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC, id ASC") }).
		First(&t, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindAll returns one page, newest first, and the total matching rows.
// Count and page are read in one transaction.
func (r *TicketRepository) FindAll(ctx context.Context, f TicketFilter, page, limit int) ([]model.Ticket, int64, error) {
	var (
		items []model.Ticket
		total int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := f.apply(tx.Model(&model.Ticket{})).Count(&total).Error; err != nil {
			return err
		}
		return f.apply(tx.Model(&model.Ticket{})).
			Preload("Client").
			Preload("Advisor").
			Order("created_at DESC").
			Order("id DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&items).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountByStatus returns the number of matching tickets per status.
func (r *TicketRepository) CountByStatus(ctx context.Context, f TicketFilter) (map[model.TicketStatus]int64, error) {
	var rows []struct {
		Status model.TicketStatus
		Count  int64
	}
	err := f.apply(r.db.WithContext(ctx).Model(&model.Ticket{})).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.TicketStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// RecentlyUpdated returns up to limit tickets ordered by last update.
func (r *TicketRepository) RecentlyUpdated(ctx context.Context, f TicketFilter, limit int) ([]model.Ticket, error) {
	var items []model.Ticket
	err := f.apply(r.db.WithContext(ctx).Model(&model.Ticket{})).
		Preload("Client").
		Order("updated_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Update applies changes and returns the reloaded ticket.
func (r *TicketRepository) Update(ctx context.Context, id uint64, changes map[string]interface{}) (*model.Ticket, error) {
	res := r.db.WithContext(ctx).Model(&model.Ticket{ID: id}).Updates(changes)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errs.ErrTicketNotFound
	}
	return r.FindByID(ctx, id)
}

// EachBatch walks all tickets by primary key, size rows at a time.
func (r *TicketRepository) EachBatch(ctx context.Context, size int, fn func([]model.Ticket) error) error {
	var batch []model.Ticket
	return r.db.WithContext(ctx).FindInBatches(&batch, size, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}
