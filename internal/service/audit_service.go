package service

import (
	"context"
	"encoding/json"

	"github.com/newhorizons/case-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AuditLogin           = "LOGIN"
	AuditUpdateTicket    = "UPDATE_TICKET"
	AuditUploadFile      = "UPLOAD_FILE"
	AuditLoginAs         = "LOGIN_AS"
	AuditCheckoutCapture = "CHECKOUT_CAPTURE"
)

// AuditService records who did what. Writes are best-effort.
type AuditService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAuditService(db *gorm.DB, log *zap.Logger) *AuditService {
	return &AuditService{db: db, log: log}
}

func (s *AuditService) Log(ctx context.Context, action, entity, entityID, userID string, details map[string]interface{}) {
	entry := model.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		UserID:   userID,
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.Warn("audit log write failed",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}
