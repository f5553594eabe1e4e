package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment order
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusExpired   PaymentStatus = "expired"
)

// CanTransitionTo reports whether moving to next is a legal forward transition.
// pending -> paid -> confirmed, with failed reachable from pending/paid and
// expired reachable from pending only. Terminal states never transition.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusPaid || next == PaymentStatusFailed || next == PaymentStatusExpired
	case PaymentStatusPaid:
		return next == PaymentStatusConfirmed || next == PaymentStatusFailed
	default:
		return false
	}
}

// IsTerminal reports whether the status admits no further transitions.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusFailed || s == PaymentStatusExpired
}

// PlanType identifies a subscription plan
type PlanType string

const (
	PlanMonthly   PlanType = "monthly"
	PlanQuarterly PlanType = "quarterly"
	PlanYearly    PlanType = "yearly"
)

// PaymentOrder represents a single purchase attempt. Amount is immutable
// once the row is created; status only moves forward per CanTransitionTo.
type PaymentOrder struct {
	ID        uint              `gorm:"primarykey" json:"id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"`
	Chain     string            `gorm:"size:20;not null" json:"chain"`
	PlanType  PlanType          `gorm:"size:20;not null" json:"plan_type"`
	AddressID *uint             `gorm:"index" json:"address_id"`
	Amount    decimal.Decimal   `gorm:"type:numeric(20,8);not null" json:"amount"`
	TxHash    string            `gorm:"size:128;default:''" json:"tx_hash"`
	Status    PaymentStatus     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CreatedAt time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
	Address   *ReceivingAddress `gorm:"foreignKey:AddressID" json:"address,omitempty"`
}

// TableName specifies the table name
func (PaymentOrder) TableName() string {
	return "payment_orders"
}
