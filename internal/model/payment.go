package model

import "time"

const PaymentStatusCompleted = "COMPLETED"

// Payment rows exist only for provider-confirmed captures. AmountMinor is in cents.
// StageID is set when the payment was made against a stage's payment gate.
type Payment struct {
	ID              uint64  `gorm:"primaryKey" json:"id"`
	AmountMinor     int64   `gorm:"not null" json:"amountMinor"`
	Currency        string  `gorm:"type:varchar(8);not null" json:"currency"`
	Status          string  `gorm:"type:varchar(32);not null" json:"status"`
	ProviderOrderID string  `gorm:"type:varchar(64);uniqueIndex;not null" json:"providerOrderId"`
	UserID          string  `gorm:"type:varchar(36);index;not null" json:"userId"`
	TicketID        uint64  `gorm:"index;not null" json:"ticketId"`
	StageID         *string `gorm:"type:varchar(64)" json:"stageId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
