package payment

import (
	"time"

	"signalcatch/internal/models"

	"gorm.io/gorm"
)

// AddressReuseWindow is how long a pending order keeps its receiving
// address exclusive against other users.
const AddressReuseWindow = 24 * time.Hour

// claimAddress picks an enabled address on chain that no other user's
// pending order has touched within the reuse window and claims it with a
// conditional update on the address row. The rows-affected check is the
// compare-and-swap that closes the gap between reading an address as
// eligible and inserting the order that uses it: of two concurrent
// claims on the same row, exactly one update matches.
//
// When preferred is set, that address is tried first; a caller's own
// previous claim never blocks them (last_claimed_by = user passes the
// freshness condition).
func (s *Service) claimAddress(tx *gorm.DB, chain string, userID uint, preferred *uint) (*models.ReceivingAddress, error) {
	now := s.now()
	cutoff := now.Add(-AddressReuseWindow)

	var candidates []models.ReceivingAddress
	err := tx.
		Where("chain = ? AND enabled = ?", chain, true).
		Where("NOT EXISTS (SELECT 1 FROM payment_orders o WHERE o.address_id = receiving_addresses.id AND o.status = ? AND o.user_id <> ? AND o.updated_at > ?)",
			models.PaymentStatusPending, userID, cutoff).
		Order("id").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	// Preferred address goes to the front of the scan order.
	if preferred != nil {
		for i, cand := range candidates {
			if cand.ID == *preferred && i > 0 {
				candidates = append([]models.ReceivingAddress{cand}, append(candidates[:i:i], candidates[i+1:]...)...)
				break
			}
		}
	}

	for _, cand := range candidates {
		res := tx.Model(&models.ReceivingAddress{}).
			Where("id = ? AND (last_claimed_at IS NULL OR last_claimed_at < ? OR last_claimed_by = ?)", cand.ID, cutoff, userID).
			Updates(map[string]interface{}{
				"last_claimed_at": now,
				"last_claimed_by": userID,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			cand.LastClaimedAt = &now
			uid := userID
			cand.LastClaimedBy = &uid
			return &cand, nil
		}
	}

	return nil, ErrNoAddressAvailable
}
