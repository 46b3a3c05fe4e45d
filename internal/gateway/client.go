// Package gateway talks to the hosted payment-initiation function and verifies
// the callbacks it sends back once a payment settles.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no initiation URL has been set
var ErrNotConfigured = errors.New("payment gateway not configured")

// SignatureHeader carries the hex HMAC-SHA256 of the callback body
const SignatureHeader = "X-Callback-Signature"

// InitiateRequest is the payload sent to start a payment
type InitiateRequest struct {
	StudentID     uint    `json:"student_id"`
	FeeID         uint    `json:"fee_id"`
	PlanID        *uint   `json:"plan_id"`
	InstallmentNo *int    `json:"installment_no"`
	SchoolID      uint    `json:"school_id"`
	AmountPaid    float64 `json:"amount_paid"`
	Email         string  `json:"email"`
	Reference     string  `json:"reference"`
}

// InitiateResponse is what the gateway returns on success
type InitiateResponse struct {
	RedirectURL string          `json:"redirect_url"`
	Raw         json.RawMessage `json:"-"`
}

// Initiator starts a payment and returns where to send the payer
type Initiator interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
}

// Client is an HTTP implementation of Initiator
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a gateway client
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Initiate posts the request and expects a redirect URL back
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode initiate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build initiate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out InitiateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if out.RedirectURL == "" {
		return nil, errors.New("payment gateway response has no redirect_url")
	}
	out.Raw = respBody

	return &out, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback signature in constant time
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
