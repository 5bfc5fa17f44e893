package model

import "time"

type AppointmentType string

const (
	AppointmentTypeMedical       AppointmentType = "MEDICAL"
	AppointmentTypePsychological AppointmentType = "PSYCHOLOGICAL"
)

// Appointment statuses the UI sends. The column accepts any string.
const (
	AppointmentStatusScheduled = "SCHEDULED"
	AppointmentStatusCompleted = "COMPLETED"
	AppointmentStatusCancelled = "CANCELLED"
)

// At most one non-cancelled appointment per ticket and timestamp.
type Appointment struct {
	ID       uint64          `gorm:"primaryKey" json:"id"`
	Date     time.Time       `gorm:"not null;uniqueIndex:idx_appointments_ticket_date,where:status <> 'CANCELLED'" json:"date"`
	Type     AppointmentType `gorm:"type:varchar(32);not null" json:"type"`
	Status   string          `gorm:"type:varchar(32);index;not null" json:"status"`
	Link     *string         `gorm:"type:varchar(1024)" json:"link"`
	TicketID uint64          `gorm:"not null;index;uniqueIndex:idx_appointments_ticket_date" json:"ticketId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Ticket *Ticket `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
}
