package handlers

import (
	"errors"
	"net/http"

	"signalcatch/internal/payment"
	"signalcatch/internal/signalstats"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the uniform error payload. Business failures ride inside a
// 200 response; callers check error before trusting data.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServerResult is the envelope every endpoint answers with.
type ServerResult struct {
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorBody  `json:"error,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, ServerResult{Data: data})
}

func fail(c *gin.Context, code, message string) {
	c.JSON(http.StatusOK, ServerResult{Error: &ErrorBody{Code: code, Message: message}})
}

// errCodes maps domain errors to envelope codes. Anything unmapped is a
// generic PaymentError/InvalidParams depending on the call site.
var errCodes = []struct {
	err  error
	code string
}{
	{payment.ErrInvalidPlan, "InvalidPlan"},
	{payment.ErrUnsupportedChain, "InvalidParams"},
	{payment.ErrNoAddressAvailable, "NoAddressAvailable"},
	{payment.ErrOrderNotFound, "NotFound"},
	{payment.ErrInvalidState, "InvalidState"},
	{payment.ErrBelowMinimum, "BelowMinimum"},
	{payment.ErrExceedsBalance, "ExceedsBalance"},
	{signalstats.ErrUnsupportedDimension, "InvalidParams"},
}

func failErr(c *gin.Context, err error) {
	failErrAs(c, err, "PaymentError")
}

func failErrAs(c *gin.Context, err error, fallback string) {
	for _, m := range errCodes {
		if errors.Is(err, m.err) {
			fail(c, m.code, err.Error())
			return
		}
	}
	fail(c, fallback, err.Error())
}
