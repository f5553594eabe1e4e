package payment

import (
	"context"
	"errors"
	"time"

	"signalcatch/internal/models"
	"signalcatch/pkg/chainindex"
	"signalcatch/pkg/config"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MembershipEventQueue receives an event per settled order so downstream
// consumers (notifications, analytics) can react without polling.
const MembershipEventQueue = "membership_events"

// MembershipEvent is published after an order is finalized on chain.
type MembershipEvent struct {
	OrderID   uint            `json:"order_id"`
	UserID    uint            `json:"user_id"`
	PlanType  models.PlanType `json:"plan_type"`
	Chain     string          `json:"chain"`
	Amount    decimal.Decimal `json:"amount"`
	TxHash    string          `json:"tx_hash"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// EventPublisher is the broker hook used after settlement. Optional;
// a nil publisher skips event emission.
type EventPublisher interface {
	Publish(queueName string, message interface{}) error
}

// Service implements the order reconciliation flow: checkout dedup and
// address allocation, user confirmation, chain verification, expiry, and
// reward withdrawals.
type Service struct {
	db            *gorm.DB
	plans         map[models.PlanType]config.PlanSpec
	minWithdrawal decimal.Decimal
	referralRate  decimal.Decimal
	indexer       chainindex.TransferSource
	publisher     EventPublisher
	now           func() time.Time
}

// NewService wires the reconciliation service. indexer and publisher may
// be nil when the process does not verify payments (API-only deployment).
func NewService(db *gorm.DB, cfg *config.Config, indexer chainindex.TransferSource, publisher EventPublisher) *Service {
	return &Service{
		db:            db,
		plans:         cfg.Plans,
		minWithdrawal: cfg.MinWithdrawal,
		referralRate:  cfg.ReferralRate,
		indexer:       indexer,
		publisher:     publisher,
		now:           time.Now,
	}
}

// Checkout resolves the plan price and returns the caller's order for
// (plan, chain), creating one if no fresh pending order can be reused.
//
// Dedup policy, in priority order:
//  1. exact pending match (plan, chain, amount) within 24h: return it
//     unchanged, so repeated checkouts are idempotent;
//  2. pending order on the same chain within 24h: new order reusing its
//     address, keeping one live address per user-chain pair;
//  3. otherwise allocate an address from the pool and insert.
func (s *Service) Checkout(userID uint, planType models.PlanType, chain string) (*models.PaymentOrder, error) {
	spec, ok := s.plans[planType]
	if !ok {
		return nil, ErrInvalidPlan
	}
	if chain == "" {
		return nil, ErrUnsupportedChain
	}
	price := spec.Price
	cutoff := s.now().Add(-AddressReuseWindow)

	var exact models.PaymentOrder
	err := s.db.
		Where("user_id = ? AND chain = ? AND plan_type = ? AND amount = ? AND status = ? AND created_at > ?",
			userID, chain, planType, price, models.PaymentStatusPending, cutoff).
		Order("created_at DESC").
		Preload("Address").
		First(&exact).Error
	if err == nil {
		return &exact, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var prior models.PaymentOrder
	err = s.db.
		Where("user_id = ? AND chain = ? AND status = ? AND created_at > ? AND address_id IS NOT NULL",
			userID, chain, models.PaymentStatusPending, cutoff).
		Order("created_at DESC").
		First(&prior).Error
	if err == nil {
		order := &models.PaymentOrder{
			UserID:    userID,
			Chain:     chain,
			PlanType:  planType,
			AddressID: prior.AddressID,
			Amount:    price,
			Status:    models.PaymentStatusPending,
		}
		if err := s.db.Create(order).Error; err != nil {
			return nil, err
		}
		return s.getOrder(userID, order.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Fresh allocation. Claim and insert run in one transaction so a
	// claimed address is never left without its order.
	order := &models.PaymentOrder{
		UserID:   userID,
		Chain:    chain,
		PlanType: planType,
		Amount:   price,
		Status:   models.PaymentStatusPending,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		preferred, err := s.lastUsedAddressID(tx, userID, chain)
		if err != nil {
			return err
		}
		addr, err := s.claimAddress(tx, chain, userID, preferred)
		if err != nil {
			return err
		}
		order.AddressID = &addr.ID
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}
	return s.getOrder(userID, order.ID)
}

// lastUsedAddressID returns the address of the user's most recent order on
// chain, if any, as the allocator preference.
func (s *Service) lastUsedAddressID(tx *gorm.DB, userID uint, chain string) (*uint, error) {
	var last models.PaymentOrder
	err := tx.
		Where("user_id = ? AND chain = ? AND address_id IS NOT NULL", userID, chain).
		Order("created_at DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return last.AddressID, nil
}

// ConfirmPayment records the caller's assertion of having paid, moving the
// order from pending to paid. Receipt is not verified here; CheckPayments
// finalizes the order once the indexer sees the transfer.
func (s *Service) ConfirmPayment(userID, orderID uint) (*models.PaymentOrder, error) {
	order, err := s.getOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.PaymentStatusPending {
		return nil, ErrInvalidState
	}

	// Status guard in the predicate keeps the transition race-free: a
	// concurrent confirm or expiry sweep leaves zero rows affected here.
	res := s.db.Model(&models.PaymentOrder{}).
		Where("id = ? AND status = ?", orderID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusPaid)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidState
	}
	order.Status = models.PaymentStatusPaid
	return order, nil
}

// GetOrder returns one of the caller's orders.
func (s *Service) GetOrder(userID, orderID uint) (*models.PaymentOrder, error) {
	return s.getOrder(userID, orderID)
}

func (s *Service) getOrder(userID, orderID uint) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	err := s.db.Preload("Address").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CheckPayments scans paid orders and asks the chain indexer for transfers
// to each order's receiving address covering at least the order amount.
// Matched orders are finalized and membership entitlements applied.
// Triggered externally (cron endpoint or worker schedule).
func (s *Service) CheckPayments(ctx context.Context) error {
	if s.indexer == nil {
		return errors.New("chain indexer not configured")
	}

	var orders []models.PaymentOrder
	if err := s.db.Preload("Address").
		Where("status = ? AND address_id IS NOT NULL", models.PaymentStatusPaid).
		Find(&orders).Error; err != nil {
		return err
	}

	for _, order := range orders {
		if order.Address == nil {
			continue
		}
		transfers, err := s.indexer.TransfersTo(ctx, order.Chain, order.Address.Address)
		if err != nil {
			log.Errorf("indexer lookup failed for order %d (%s %s): %v", order.ID, order.Chain, order.Address.Address, err)
			continue
		}

		match := matchTransfer(transfers, order.Amount, order.CreatedAt)
		if match == nil {
			continue
		}

		if err := s.finalizeOrder(&order, match.TxHash); err != nil {
			log.Errorf("failed to finalize order %d: %v", order.ID, err)
		}
	}
	return nil
}

// matchTransfer returns the first transfer at or above amount observed
// after the order was created.
func matchTransfer(transfers []chainindex.Transfer, amount decimal.Decimal, notBefore time.Time) *chainindex.Transfer {
	for i := range transfers {
		t := &transfers[i]
		if t.BlockTime.Before(notBefore) {
			continue
		}
		if t.Amount.GreaterThanOrEqual(amount) {
			return t
		}
	}
	return nil
}

// finalizeOrder transitions paid -> confirmed, extends the buyer's
// membership and credits the referrer, all in one transaction.
func (s *Service) finalizeOrder(order *models.PaymentOrder, txHash string) error {
	spec, ok := s.plans[order.PlanType]
	if !ok {
		return ErrInvalidPlan
	}
	now := s.now()
	var expiresAt time.Time

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PaymentOrder{}).
			Where("id = ? AND status = ?", order.ID, models.PaymentStatusPaid).
			Updates(map[string]interface{}{
				"status":  models.PaymentStatusConfirmed,
				"tx_hash": txHash,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState
		}

		var profile models.UserProfile
		if err := tx.First(&profile, order.UserID).Error; err != nil {
			return err
		}

		// Extension stacks on the current expiry when membership is
		// still active, otherwise starts from now.
		base := now
		if profile.HasActiveMembership(now) {
			base = *profile.MembershipExpiresAt
		}
		expiresAt = base.Add(spec.Duration)
		if err := tx.Model(&profile).Updates(map[string]interface{}{
			"membership_plan":       order.PlanType,
			"membership_expires_at": expiresAt,
		}).Error; err != nil {
			return err
		}

		if profile.ReferrerID != nil && s.referralRate.IsPositive() {
			reward := order.Amount.Mul(s.referralRate).Round(8)
			if err := tx.Model(&models.UserProfile{}).
				Where("id = ?", *profile.ReferrerID).
				Update("reward_balance", gorm.Expr("reward_balance + ?", reward)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Infof("order %d confirmed via tx %s", order.ID, txHash)

	if s.publisher != nil {
		evt := MembershipEvent{
			OrderID:   order.ID,
			UserID:    order.UserID,
			PlanType:  order.PlanType,
			Chain:     order.Chain,
			Amount:    order.Amount,
			TxHash:    txHash,
			ExpiresAt: expiresAt,
		}
		if err := s.publisher.Publish(MembershipEventQueue, evt); err != nil {
			log.Warnf("failed to publish membership event for order %d: %v", order.ID, err)
		}
	}
	return nil
}

// ExpireStaleOrders transitions pending orders older than the reuse
// window to expired, releasing their addresses back to the pool scan.
// Triggered externally; safe to run repeatedly.
func (s *Service) ExpireStaleOrders() (int64, error) {
	cutoff := s.now().Add(-AddressReuseWindow)
	res := s.db.Model(&models.PaymentOrder{}).
		Where("status = ? AND created_at < ?", models.PaymentStatusPending, cutoff).
		Update("status", models.PaymentStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		log.Infof("expired %d stale pending orders", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
