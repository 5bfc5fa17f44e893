package service

import (
	"context"
	"strings"

	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/model"
	"gorm.io/gorm"
)

type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// List returns a ticket's comments, oldest first.
func (s *CommentService) List(ctx context.Context, actor Actor, ticketID uint64) ([]model.Comment, error) {
	if _, err := accessibleTicket(ctx, s.db, actor, ticketID); err != nil {
		return nil, err
	}
	comments := []model.Comment{}
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (s *CommentService) Create(ctx context.Context, actor Actor, ticketID uint64, content string) (*model.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errs.Validation("comment content is required")
	}
	if _, err := accessibleTicket(ctx, s.db, actor, ticketID); err != nil {
		return nil, err
	}
	c := &model.Comment{Content: content, TicketID: ticketID, UserID: actor.ID}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("User").First(c, c.ID).Error; err != nil {
		return nil, err
	}
	return c, nil
}
