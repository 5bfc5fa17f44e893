package service

import (
	"context"
	"io"
	"strconv"

	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileStore persists uploaded bytes.
type FileStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (*storage.Stored, error)
	Remove(name string) error
}

type AttachmentService struct {
	db    *gorm.DB
	files FileStore
	audit *AuditService
	log   *zap.Logger
}

func NewAttachmentService(db *gorm.DB, files FileStore, audit *AuditService, log *zap.Logger) *AttachmentService {
	return &AttachmentService{db: db, files: files, audit: audit, log: log}
}

// List returns a ticket's attachments, newest first.
func (s *AttachmentService) List(ctx context.Context, actor Actor, ticketID uint64) ([]model.Attachment, error) {
	if _, err := accessibleTicket(ctx, s.db, actor, ticketID); err != nil {
		return nil, err
	}
	out := []model.Attachment{}
	err := s.db.WithContext(ctx).
		Preload("Uploader").
		Where("ticket_id = ?", ticketID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

type Upload struct {
	Filename string
	MIMEType string
	Body     io.Reader
}

// Upload stores the file and records it on the ticket. Closed tickets take no uploads.
func (s *AttachmentService) Upload(ctx context.Context, actor Actor, ticketID uint64, up Upload) (*model.Attachment, error) {
	t, err := accessibleTicket(ctx, s.db, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Status == model.TicketStatusClosed {
		return nil, errs.Forbidden("cannot attach files to a closed ticket")
	}
	if up.Filename == "" {
		return nil, errs.Validation("no file uploaded")
	}

	stored, err := s.files.Save(ctx, up.Filename, up.Body)
	if err != nil {
		return nil, err
	}
	a := &model.Attachment{
		Filename:   up.Filename,
		URL:        stored.URL,
		Size:       &stored.Size,
		TicketID:   ticketID,
		UploaderID: actor.ID,
	}
	if up.MIMEType != "" {
		a.FileType = &up.MIMEType
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		if rmErr := s.files.Remove(stored.Name); rmErr != nil {
			s.log.Warn("orphaned upload", zap.String("name", stored.Name), zap.Error(rmErr))
		}
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("Uploader").First(a, a.ID).Error; err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditUploadFile, "ATTACHMENT", strconv.FormatUint(a.ID, 10), actor.ID, map[string]interface{}{
		"filename": up.Filename,
		"ticketId": ticketID,
	})
	return a, nil
}
