package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus represents the state of a reward withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending WithdrawalStatus = "pending"
	WithdrawalStatusPaid    WithdrawalStatus = "paid"
	WithdrawalStatusFailed  WithdrawalStatus = "failed"
)

// WithdrawalRequest is a user request to cash out reward balance. Created
// pending; only the batch processor finalizes it to paid or failed.
type WithdrawalRequest struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	UserID        uint             `gorm:"not null;index" json:"user_id"`
	Chain         string           `gorm:"size:20;not null" json:"chain"`
	PayoutAddress string           `gorm:"size:128;not null" json:"payout_address"`
	Amount        decimal.Decimal  `gorm:"type:numeric(20,8);not null" json:"amount"`
	Status        WithdrawalStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	FailReason    string           `gorm:"size:255;default:''" json:"fail_reason"`
	ProcessedAt   *time.Time       `json:"processed_at"`
	CreatedAt     time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name
func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
