package models

import "time"

// ReceivingAddress is a pooled blockchain address that pending orders borrow.
// No order owns an address; LastClaimedAt/LastClaimedBy back the conditional
// claim update that keeps at most one fresh order per address across users.
type ReceivingAddress struct {
	ID            uint       `gorm:"primarykey" json:"id"`
	Chain         string     `gorm:"size:20;not null;uniqueIndex:idx_receiving_addresses_chain_address" json:"chain"`
	Address       string     `gorm:"size:128;not null;uniqueIndex:idx_receiving_addresses_chain_address" json:"address"`
	Enabled       bool       `gorm:"default:true" json:"enabled"`
	LastClaimedAt *time.Time `json:"last_claimed_at"`
	LastClaimedBy *uint      `json:"last_claimed_by"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name
func (ReceivingAddress) TableName() string {
	return "receiving_addresses"
}
