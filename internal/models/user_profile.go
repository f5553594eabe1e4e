package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserProfile mirrors the account record for a user of the product.
// Identity itself lives with an external provider; Subject is the provider's
// stable id and ApiToken is the opaque bearer token the session collaborator
// hands out. Membership and reward fields are mutated by the payment flow.
type UserProfile struct {
	ID                  uint            `gorm:"primarykey" json:"id"`
	Subject             string          `gorm:"size:128;not null;uniqueIndex:idx_user_profiles_subject" json:"subject"`
	ApiToken            string          `gorm:"size:128;not null;uniqueIndex:idx_user_profiles_api_token" json:"-"`
	Nickname            string          `gorm:"size:100;default:''" json:"nickname"`
	MembershipPlan      PlanType        `gorm:"size:20;default:''" json:"membership_plan"`
	MembershipExpiresAt *time.Time      `json:"membership_expires_at"`
	RewardBalance       decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"reward_balance"`
	ReferrerID          *uint           `gorm:"index" json:"referrer_id"`
	CreatedAt           time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name
func (UserProfile) TableName() string {
	return "user_profiles"
}

// HasActiveMembership reports whether membership is active at t.
func (u *UserProfile) HasActiveMembership(t time.Time) bool {
	return u.MembershipExpiresAt != nil && u.MembershipExpiresAt.After(t)
}
