package chainindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// TransferSource is the external chain-indexing collaborator consulted by
// payment verification. Implementations report transfers received by an
// address; the caller decides whether any of them settles an order.
type TransferSource interface {
	TransfersTo(ctx context.Context, chain, address string) ([]Transfer, error)
}

// Transfer is one inbound transfer observed on chain.
type Transfer struct {
	TxHash    string
	From      string
	To        string
	Amount    decimal.Decimal
	BlockTime time.Time
}

// Client talks to an enhanced-transactions indexer API (Helius-style:
// GET {base}/v0/addresses/{address}/transactions?api-key=...).
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new indexer API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				IdleConnTimeout:       10 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
}

// TokenTransfer represents a token transfer in the transaction
type TokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	TokenAmount     float64 `json:"tokenAmount"`
	Mint            string  `json:"mint"`
	TokenStandard   string  `json:"tokenStandard"`
}

// NativeTransfer represents a native transfer in the transaction,
// denominated in the chain's smallest unit.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// EnhancedTransaction represents the indexer's view of one transaction
type EnhancedTransaction struct {
	Description      string           `json:"description"`
	Type             string           `json:"type"`
	Source           string           `json:"source"`
	Fee              int64            `json:"fee"`
	FeePayer         string           `json:"feePayer"`
	Signature        string           `json:"signature"`
	Slot             uint64           `json:"slot"`
	Timestamp        int64            `json:"timestamp"`
	TokenTransfers   []TokenTransfer  `json:"tokenTransfers"`
	NativeTransfers  []NativeTransfer `json:"nativeTransfers"`
	TransactionError interface{}      `json:"transactionError"`
}

const transferPageLimit = 50

// TransfersTo returns the recent inbound transfers for address on chain.
// Failed transactions and transfers merely passing through the address
// (outbound legs) are dropped.
func (c *Client) TransfersTo(ctx context.Context, chain, address string) ([]Transfer, error) {
	txs, err := c.getEnhancedTransactions(ctx, chain, address)
	if err != nil {
		return nil, err
	}

	var transfers []Transfer
	for _, tx := range txs {
		if tx.TransactionError != nil {
			continue
		}
		blockTime := time.Unix(tx.Timestamp, 0).UTC()
		for _, tt := range tx.TokenTransfers {
			if tt.ToUserAccount != address {
				continue
			}
			transfers = append(transfers, Transfer{
				TxHash:    tx.Signature,
				From:      tt.FromUserAccount,
				To:        tt.ToUserAccount,
				Amount:    decimal.NewFromFloat(tt.TokenAmount),
				BlockTime: blockTime,
			})
		}
	}
	return transfers, nil
}

func (c *Client) getEnhancedTransactions(ctx context.Context, chain, address string) ([]EnhancedTransaction, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v0/addresses/%s/transactions", c.baseURL, address))
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Add("api-key", c.apiKey)
	q.Add("chain", chain)
	q.Add("type", "TRANSFER")
	q.Add("limit", fmt.Sprintf("%d", transferPageLimit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer request failed with status code: %d", resp.StatusCode)
	}

	var transactions []EnhancedTransaction
	if err := json.NewDecoder(resp.Body).Decode(&transactions); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return transactions, nil
}
