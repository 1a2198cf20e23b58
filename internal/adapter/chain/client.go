package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
)

const (
	apiKeyHeader     = "X-API-Key"
	defaultPageLimit = 50
	maxErrorBody     = 512
)

// Config configures the chain client.
type Config struct {
	IndexerURL    string
	GatewayURL    string
	APIKey        string
	TokenContract string
	Timeout       time.Duration
	// MaxRetries bounds retries of idempotent lookups. Transfer submission is
	// never retried.
	MaxRetries uint64
	Logger     zerolog.Logger
}

// Client talks to the chain indexer for transfer history and to the custody
// gateway for signing, broadcasting and receipts. It implements
// usecase.ChainIndexer, usecase.TransferSubmitter and usecase.ReceiptFetcher.
type Client struct {
	indexerURL    string
	gatewayURL    string
	apiKey        string
	tokenContract string
	maxRetries    uint64
	httpClient    *http.Client
	newBackOff    func() backoff.BackOff
	logger        zerolog.Logger
}

// NewClient creates a new chain client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	return &Client{
		indexerURL:    strings.TrimRight(cfg.IndexerURL, "/"),
		gatewayURL:    strings.TrimRight(cfg.GatewayURL, "/"),
		apiKey:        cfg.APIKey,
		tokenContract: cfg.TokenContract,
		maxRetries:    cfg.MaxRetries,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		logger:        cfg.Logger.With().Str("component", "chain_client").Logger(),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// StatusError is a non-2xx response from the indexer or gateway.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type transferRecord struct {
	TransactionID  string `json:"transaction_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	Value          string `json:"value"`
	BlockTimestamp int64  `json:"block_timestamp"`
	TokenInfo      struct {
		Address  string `json:"address"`
		Decimals int32  `json:"decimals"`
	} `json:"token_info"`
}

type transfersResponse struct {
	Data []transferRecord `json:"data"`
}

// ListInboundTransfers returns the recent token transfers into address,
// newest first, with amounts scaled to whole token units. Records with an
// unparseable value are logged and skipped.
func (c *Client) ListInboundTransfers(ctx context.Context, address string) ([]domain.InboundTransfer, error) {
	q := url.Values{}
	q.Set("only_to", "true")
	q.Set("limit", strconv.Itoa(defaultPageLimit))
	if c.tokenContract != "" {
		q.Set("contract_address", c.tokenContract)
	}
	endpoint := fmt.Sprintf("%s/v1/accounts/%s/transactions/trc20?%s", c.indexerURL, url.PathEscape(address), q.Encode())

	var resp transfersResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list transfers of %s: %w", address, err)
	}

	transfers := make([]domain.InboundTransfer, 0, len(resp.Data))
	for _, rec := range resp.Data {
		amount, err := scaleAmount(rec.Value, rec.TokenInfo.Decimals)
		if err != nil {
			c.logger.Warn().Err(err).
				Str("address", address).
				Str("transaction_id", rec.TransactionID).
				Str("value", rec.Value).
				Msg("skipping transfer with malformed value")
			continue
		}
		transfers = append(transfers, domain.InboundTransfer{
			SourceTxID:    rec.TransactionID,
			From:          rec.From,
			To:            rec.To,
			TokenContract: rec.TokenInfo.Address,
			Amount:        amount,
			Timestamp:     time.UnixMilli(rec.BlockTimestamp).UTC(),
		})
	}

	return transfers, nil
}

type submitRequest struct {
	WalletID      string `json:"wallet_id"`
	FromAddress   string `json:"from_address"`
	ToAddress     string `json:"to_address"`
	TokenContract string `json:"token_contract"`
	Amount        string `json:"amount"`
}

type submitResponse struct {
	TxID string `json:"tx_id"`
}

// SubmitTransfer asks the custody gateway to sign and broadcast a token
// transfer from a managed wallet and returns the broadcast transaction id.
func (c *Client) SubmitTransfer(ctx context.Context, from *domain.Wallet, toAddress string, amount decimal.Decimal) (string, error) {
	body, err := json.Marshal(submitRequest{
		WalletID:      from.ID,
		FromAddress:   from.Address,
		ToAddress:     toAddress,
		TokenContract: c.tokenContract,
		Amount:        amount.String(),
	})
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.gatewayURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp submitResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("submit transfer from %s: %w", from.Address, err)
	}
	if resp.TxID == "" {
		return "", errors.New("submit transfer: gateway returned no transaction id")
	}

	return resp.TxID, nil
}

type receiptResponse struct {
	TxID        string `json:"tx_id"`
	BlockNumber int64  `json:"block_number"`
	Result      string `json:"result"`
}

// GetTransferReceipt returns nil without error while the transaction is not
// yet included in a block.
func (c *Client) GetTransferReceipt(ctx context.Context, txID string) (*domain.Receipt, error) {
	endpoint := fmt.Sprintf("%s/v1/transactions/%s/receipt", c.gatewayURL, url.PathEscape(txID))

	var resp receiptResponse
	err := c.getJSON(ctx, endpoint, &resp)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("receipt of %s: %w", txID, err)
	}

	return &domain.Receipt{
		TxID:        txID,
		BlockNumber: resp.BlockNumber,
		Success:     strings.EqualFold(resp.Result, "SUCCESS"),
	}, nil
}

// getJSON retries transport failures and temporary statuses.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)

	return backoff.Retry(func() error {
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return backoff.Permanent(err)
		}

		err = c.do(req, out)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.temporary() {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// scaleAmount converts an integer amount in base units into token units.
func scaleAmount(value string, decimals int32) (decimal.Decimal, error) {
	raw, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid amount %q", value)
	}
	return decimal.NewFromBigInt(raw, -decimals), nil
}
