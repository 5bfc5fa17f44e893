package model

import (
	"time"

	"gorm.io/datatypes"
)

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

type TicketType string

const (
	TicketTypeWorkVisa    TicketType = "WORK_VISA"
	TicketTypeStudentVisa TicketType = "STUDENT_VISA"
	TicketTypeResidency   TicketType = "RESIDENCY"
	TicketTypeCitizenship TicketType = "CITIZENSHIP"
	TicketTypeOther       TicketType = "OTHER"
)

var TicketTypes = []TicketType{
	TicketTypeWorkVisa,
	TicketTypeStudentVisa,
	TicketTypeResidency,
	TicketTypeCitizenship,
	TicketTypeOther,
}

type Ticket struct {
	ID          uint64         `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Status      TicketStatus   `gorm:"type:varchar(32);index;not null" json:"status"`
	Priority    Priority       `gorm:"type:varchar(32);index;not null" json:"priority"`
	Type        TicketType     `gorm:"type:varchar(32);index;not null" json:"type"`
	ClientID    string         `gorm:"type:varchar(36);index;not null" json:"clientId"`
	AdvisorID   *string        `gorm:"type:varchar(36);index" json:"advisorId"`
	Metadata    datatypes.JSON `json:"metadata"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt"`

	Client       *User         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Advisor      *User         `gorm:"foreignKey:AdvisorID" json:"advisor,omitempty"`
	Comments     []Comment     `json:"comments,omitempty"`
	Attachments  []Attachment  `json:"attachments,omitempty"`
	Payments     []Payment     `json:"payments,omitempty"`
	Appointments []Appointment `json:"appointments,omitempty"`
}

type Comment struct {
	ID       uint64 `gorm:"primaryKey" json:"id"`
	Content  string `gorm:"type:text;not null" json:"content"`
	TicketID uint64 `gorm:"index;not null" json:"ticketId"`
	UserID   string `gorm:"type:varchar(36);index;not null" json:"userId"`

	CreatedAt time.Time `json:"createdAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type Attachment struct {
	ID         uint64  `gorm:"primaryKey" json:"id"`
	Filename   string  `gorm:"type:varchar(255);not null" json:"filename"`
	URL        string  `gorm:"type:varchar(1024);not null" json:"url"`
	Size       *int64  `json:"size"`
	FileType   *string `gorm:"type:varchar(255)" json:"fileType"`
	TicketID   uint64  `gorm:"index;not null" json:"ticketId"`
	UploaderID string  `gorm:"type:varchar(36);index;not null" json:"uploaderId"`

	CreatedAt time.Time `json:"createdAt"`

	Uploader *User `gorm:"foreignKey:UploaderID" json:"uploader,omitempty"`
}
