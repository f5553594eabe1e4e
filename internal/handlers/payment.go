package handlers

import (
	"strconv"

	"signalcatch/internal/middleware"
	"signalcatch/internal/models"
	"signalcatch/internal/payment"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// PaymentHandler exposes the order reconciliation flow over HTTP.
type PaymentHandler struct {
	payments *payment.Service
}

// NewPaymentHandler creates the handler around the reconciliation service.
func NewPaymentHandler(payments *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CheckoutRequest is the body for POST /api/payment/checkout
type CheckoutRequest struct {
	PlanType models.PlanType `json:"planType" binding:"required"`
	Chain    string          `json:"chain" binding:"required"`
}

// Checkout resolves or creates the caller's pending order for a plan
func (h *PaymentHandler) Checkout(c *gin.Context) {
	profile := middleware.CurrentProfile(c)
	if profile == nil {
		fail(c, "Unauthenticated", "valid session required")
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "InvalidParams", err.Error())
		return
	}

	order, err := h.payments.Checkout(profile.ID, req.PlanType, req.Chain)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, order)
}

// ConfirmRequest is the body for POST /api/payment/confirm
type ConfirmRequest struct {
	PaymentID uint `json:"paymentId" binding:"required"`
}

// Confirm marks the caller's pending order as paid
func (h *PaymentHandler) Confirm(c *gin.Context) {
	profile := middleware.CurrentProfile(c)
	if profile == nil {
		fail(c, "Unauthenticated", "valid session required")
		return
	}

	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "InvalidParams", err.Error())
		return
	}

	order, err := h.payments.ConfirmPayment(profile.ID, req.PaymentID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, order)
}

// Order returns one of the caller's orders, for client-side status polling
func (h *PaymentHandler) Order(c *gin.Context) {
	profile := middleware.CurrentProfile(c)
	if profile == nil {
		fail(c, "Unauthenticated", "valid session required")
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		fail(c, "InvalidParams", "invalid order id")
		return
	}

	order, err := h.payments.GetOrder(profile.ID, uint(id))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, order)
}

// Check triggers one verification pass over paid orders. Cron-only.
func (h *PaymentHandler) Check(c *gin.Context) {
	if err := h.payments.CheckPayments(c.Request.Context()); err != nil {
		log.Errorf("payment check run failed: %v", err)
		fail(c, "PaymentError", err.Error())
		return
	}
	ok(c, nil)
}

// ProcessWithdrawals finalizes pending withdrawal requests. Cron-only.
func (h *PaymentHandler) ProcessWithdrawals(c *gin.Context) {
	if err := h.payments.ProcessWithdrawals(); err != nil {
		log.Errorf("withdrawal processing run failed: %v", err)
		fail(c, "PaymentError", err.Error())
		return
	}
	ok(c, nil)
}

// ExpireOrders sweeps stale pending orders to expired. Cron-only.
func (h *PaymentHandler) ExpireOrders(c *gin.Context) {
	n, err := h.payments.ExpireStaleOrders()
	if err != nil {
		log.Errorf("order expiry sweep failed: %v", err)
		fail(c, "PaymentError", err.Error())
		return
	}
	ok(c, gin.H{"expired": n})
}
