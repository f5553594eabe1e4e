package handlers

import (
	"signalcatch/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SubmitWithdrawalRequest is the body for POST /api/withdrawals
type SubmitWithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Chain         string          `json:"chain" binding:"required"`
	PayoutAddress string          `json:"payoutAddress" binding:"required"`
}

// SubmitWithdrawal records a reward cash-out request for the caller
func (h *PaymentHandler) SubmitWithdrawal(c *gin.Context) {
	profile := middleware.CurrentProfile(c)
	if profile == nil {
		fail(c, "Unauthenticated", "valid session required")
		return
	}

	var req SubmitWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "InvalidParams", err.Error())
		return
	}

	wr, err := h.payments.SubmitWithdrawal(profile.ID, req.Amount, req.Chain, req.PayoutAddress)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, wr)
}

// ListWithdrawals returns the caller's withdrawal history
func (h *PaymentHandler) ListWithdrawals(c *gin.Context) {
	profile := middleware.CurrentProfile(c)
	if profile == nil {
		fail(c, "Unauthenticated", "valid session required")
		return
	}

	reqs, err := h.payments.ListWithdrawals(profile.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, reqs)
}
