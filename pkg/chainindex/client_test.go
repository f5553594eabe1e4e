package chainindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfersTo(t *testing.T) {
	const address = "destAddr"
	blockTime := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	txs := []EnhancedTransaction{
		{
			Signature: "sig-inbound",
			Timestamp: blockTime.Unix(),
			TokenTransfers: []TokenTransfer{
				{FromUserAccount: "payer", ToUserAccount: address, TokenAmount: 29.9},
			},
		},
		{
			// Outbound leg, must be dropped.
			Signature: "sig-outbound",
			Timestamp: blockTime.Unix(),
			TokenTransfers: []TokenTransfer{
				{FromUserAccount: address, ToUserAccount: "elsewhere", TokenAmount: 10},
			},
		},
		{
			// Failed transaction, must be dropped.
			Signature:        "sig-failed",
			Timestamp:        blockTime.Unix(),
			TransactionError: map[string]interface{}{"InstructionError": []interface{}{}},
			TokenTransfers: []TokenTransfer{
				{FromUserAccount: "payer", ToUserAccount: address, TokenAmount: 100},
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/addresses/"+address+"/transactions", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api-key"))
		assert.Equal(t, "SOL", r.URL.Query().Get("chain"))
		assert.Equal(t, "TRANSFER", r.URL.Query().Get("type"))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(txs))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")

	transfers, err := client.TransfersTo(context.Background(), "SOL", address)
	require.NoError(t, err)
	require.Len(t, transfers, 1)

	got := transfers[0]
	assert.Equal(t, "sig-inbound", got.TxHash)
	assert.Equal(t, "payer", got.From)
	assert.Equal(t, address, got.To)
	assert.Equal(t, "29.9", got.Amount.String())
	assert.Equal(t, blockTime, got.BlockTime)
}

func TestTransfersToErrors(t *testing.T) {
	t.Run("Non-200 Response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key")
		_, err := client.TransfersTo(context.Background(), "SOL", "addr")
		assert.Error(t, err)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key")
		_, err := client.TransfersTo(context.Background(), "SOL", "addr")
		assert.Error(t, err)
	})

	t.Run("Context Cancelled", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]EnhancedTransaction{})
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := NewClient(server.URL, "test-key")
		_, err := client.TransfersTo(ctx, "SOL", "addr")
		assert.Error(t, err)
	})
}
