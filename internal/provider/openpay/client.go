// Package openpay speaks the payment network's three-leg push protocol:
// create receiver, create quote, create outgoing payment.
package openpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/punchamoorthee/paycore/internal/domain"
)

// Asset scale used on the wire for reversal amounts.
const reversalAssetScale = 2

type Client struct {
	BaseURL       string
	TenantID      string
	WalletAddress string // this institution's settlement wallet
	HTTPClient    *http.Client

	secret []byte
}

func NewClient(baseURL, tenantID, walletAddress, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:       baseURL,
		TenantID:      tenantID,
		WalletAddress: walletAddress,
		secret:        []byte(secret),
		HTTPClient:    &http.Client{Timeout: timeout},
	}
}

type Receiver struct {
	ID string `json:"id"`
}

type Quote struct {
	ID string `json:"id"`
}

type OutgoingPayment struct {
	ID string `json:"id"`
}

// CreateReceiver registers an incoming-payment intent at the target wallet.
func (c *Client) CreateReceiver(ctx context.Context, walletAddress string, amount domain.WireAmount, metadata map[string]string) (*Receiver, error) {
	payload := map[string]any{
		"walletAddressUrl": walletAddress,
		"incomingAmount":   amount,
		"metadata":         metadata,
	}
	var out Receiver
	if err := c.post(ctx, "/receivers", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateQuote prices a payment from the settlement wallet to a receiver.
func (c *Client) CreateQuote(ctx context.Context, receiverID string) (*Quote, error) {
	payload := map[string]any{
		"walletAddressId": c.WalletAddress,
		"receiver":        receiverID,
	}
	var out Quote
	if err := c.post(ctx, "/quotes", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOutgoingPayment executes a previously quoted payment.
func (c *Client) CreateOutgoingPayment(ctx context.Context, quoteID string, metadata map[string]string) (*OutgoingPayment, error) {
	payload := map[string]any{
		"walletAddressId": c.WalletAddress,
		"quoteId":         quoteID,
		"metadata":        metadata,
	}
	var out OutgoingPayment
	if err := c.post(ctx, "/outgoing-payments", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reverse runs the full three-leg sequence as one unit. Any leg's failure
// aborts the rest; there is no per-leg retry.
func (c *Client) Reverse(ctx context.Context, req domain.ReversalRequest) (string, error) {
	metadata := map[string]string{
		"originalEventId": req.EventID,
		"reason":          req.Reason,
		"reversalRef":     uuid.NewString(),
	}

	receiver, err := c.CreateReceiver(ctx, req.WalletAddress,
		domain.NewWireAmount(req.Amount, req.Currency, reversalAssetScale), metadata)
	if err != nil {
		return "", fmt.Errorf("%w: create receiver: %v", domain.ErrReversalNetwork, err)
	}

	quote, err := c.CreateQuote(ctx, receiver.ID)
	if err != nil {
		return "", fmt.Errorf("%w: create quote: %v", domain.ErrReversalNetwork, err)
	}

	payment, err := c.CreateOutgoingPayment(ctx, quote.ID, metadata)
	if err != nil {
		return "", fmt.Errorf("%w: create outgoing payment: %v", domain.ErrReversalNetwork, err)
	}

	return payment.ID, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Tenant-Id", c.TenantID)
	req.Header.Set("Signature", SignatureHeader(c.secret, body, time.Now()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, string(b))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
