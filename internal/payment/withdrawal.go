package payment

import (
	"errors"
	"time"

	"signalcatch/internal/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SubmitWithdrawal validates and records a reward cash-out request.
// The withdrawable balance is the profile's reward balance minus the sum
// already reserved by the user's pending requests.
func (s *Service) SubmitWithdrawal(userID uint, amount decimal.Decimal, chain, payoutAddress string) (*models.WithdrawalRequest, error) {
	if amount.LessThan(s.minWithdrawal) {
		return nil, ErrBelowMinimum
	}

	req := &models.WithdrawalRequest{
		UserID:        userID,
		Chain:         chain,
		PayoutAddress: payoutAddress,
		Amount:        amount,
		Status:        models.WithdrawalStatusPending,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var profile models.UserProfile
		if err := tx.First(&profile, userID).Error; err != nil {
			return err
		}

		var reserved decimal.NullDecimal
		if err := tx.Model(&models.WithdrawalRequest{}).
			Select("SUM(amount)").
			Where("user_id = ? AND status = ?", userID, models.WithdrawalStatusPending).
			Scan(&reserved).Error; err != nil {
			return err
		}

		available := profile.RewardBalance
		if reserved.Valid {
			available = available.Sub(reserved.Decimal)
		}
		if amount.GreaterThan(available) {
			return ErrExceedsBalance
		}

		return tx.Create(req).Error
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListWithdrawals returns the caller's requests, newest first.
func (s *Service) ListWithdrawals(userID uint) ([]models.WithdrawalRequest, error) {
	var reqs []models.WithdrawalRequest
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

// ProcessWithdrawals finalizes all pending requests. It is the only
// mutator of request status after submission: each request is re-checked
// against the live balance, then debited and marked paid, or marked
// failed, atomically per request. Already-finalized requests are never
// touched, so repeated invocations are no-ops.
func (s *Service) ProcessWithdrawals() error {
	var pending []models.WithdrawalRequest
	if err := s.db.Where("status = ?", models.WithdrawalStatusPending).
		Order("created_at").
		Find(&pending).Error; err != nil {
		return err
	}

	for i := range pending {
		req := &pending[i]
		if err := s.settleWithdrawal(req); err != nil {
			log.Errorf("failed to process withdrawal %d: %v", req.ID, err)
		}
	}
	return nil
}

func (s *Service) settleWithdrawal(req *models.WithdrawalRequest) error {
	now := s.now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		// Debit only if the balance still covers the request. Zero rows
		// affected means the balance shrank since submission.
		res := tx.Model(&models.UserProfile{}).
			Where("id = ? AND reward_balance >= ?", req.UserID, req.Amount).
			Update("reward_balance", gorm.Expr("reward_balance - ?", req.Amount))
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return s.markWithdrawal(tx, req, models.WithdrawalStatusFailed, "insufficient balance", now)
		}

		if err := s.markWithdrawal(tx, req, models.WithdrawalStatusPaid, "", now); err != nil {
			return err
		}
		log.Infof("withdrawal %d paid: user %d amount %s", req.ID, req.UserID, req.Amount.String())
		return nil
	})
}

// markWithdrawal finalizes a request, guarded on pending so a concurrent
// processor run cannot double-apply.
func (s *Service) markWithdrawal(tx *gorm.DB, req *models.WithdrawalRequest, status models.WithdrawalStatus, reason string, now time.Time) error {
	res := tx.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", req.ID, models.WithdrawalStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"fail_reason":  reason,
			"processed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("withdrawal already finalized")
	}
	req.Status = status
	req.FailReason = reason
	return nil
}
