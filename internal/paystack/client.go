// Package paystack is the outbound client for the Paystack verify/refund
// APIs plus webhook signature verification. It classifies failures but
// never retries; redelivery and retry policy belong to the caller.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.paystack.co"

type Client struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// envelope is the outer Paystack response shape. Status false means the
// API itself rejected the call even with HTTP 200.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Transaction is the verified ground truth for one payment reference.
type Transaction struct {
	Reference string      `json:"reference"`
	Status    string      `json:"status"`
	Amount    int64       `json:"amount"`
	Currency  string      `json:"currency"`
	PaidAt    string      `json:"paid_at"`
	Channel   string      `json:"channel"`
	Customer  Customer    `json:"customer"`
	Metadata  TxnMetadata `json:"metadata"`

	// Raw keeps the provider's data object verbatim for the ledger.
	Raw json.RawMessage `json:"-"`
}

type Customer struct {
	Email string `json:"email"`
}

// TxnMetadata tolerates Paystack sending metadata as "" instead of an
// object on some channels.
type TxnMetadata struct {
	Identifier string `json:"identifier"`
}

func (m *TxnMetadata) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" || b[0] == '"' {
		*m = TxnMetadata{}
		return nil
	}
	type alias TxnMetadata
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*m = TxnMetadata(a)
	return nil
}

// VerifyTransaction asks Paystack for the authoritative state of a
// reference. Callers must never trust a webhook payload over this result.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	data, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var txn Transaction
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, malformed(fmt.Sprintf("decoding transaction: %v", err))
	}
	if txn.Reference == "" || txn.Status == "" {
		return nil, malformed("transaction missing reference or status")
	}
	txn.Raw = data
	return &txn, nil
}

// RefundRequest queues a refund with the provider. Amount is optional;
// zero means full refund.
type RefundRequest struct {
	Transaction  string `json:"transaction"`
	Amount       int64  `json:"amount,omitempty"`
	CustomerNote string `json:"customer_note,omitempty"`
	MerchantNote string `json:"merchant_note,omitempty"`
}

// Refund submits a refund request and returns the provider's data object.
// The authoritative "refunded" state still arrives later via webhook.
func (c *Client) Refund(ctx context.Context, req RefundRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/refund", body)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, unreachable(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ExamPartner/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, unreachable(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, unreachable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, rejected(resp.StatusCode, string(respBody))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, malformed(fmt.Sprintf("decoding response: %v", err))
	}
	if !env.Status {
		return nil, rejected(resp.StatusCode, env.Message)
	}
	if len(env.Data) == 0 {
		return nil, malformed("response missing data")
	}
	return env.Data, nil
}
