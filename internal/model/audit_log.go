package model

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID       uint64         `gorm:"primaryKey" json:"id"`
	Action   string         `gorm:"type:varchar(64);index;not null" json:"action"`
	Entity   string         `gorm:"type:varchar(64);not null" json:"entity"`
	EntityID string         `gorm:"type:varchar(64);not null" json:"entityId"`
	UserID   string         `gorm:"type:varchar(36);index;not null" json:"userId"`
	Details  datatypes.JSON `json:"details,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// All lists every persisted model, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Session{},
		&Ticket{},
		&Comment{},
		&Attachment{},
		&Appointment{},
		&Payment{},
		&AuditLog{},
	}
}
