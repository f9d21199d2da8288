// Package cryptopay is a client for the Crypto Pay invoice API.
package cryptopay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator"
)

const DefaultBaseURL = "https://pay.crypt.bot/api"

// ErrInvoiceNotFound is returned by GetInvoice when the gateway knows no such invoice.
var ErrInvoiceNotFound = errors.New("invoice not found")

// Client talks to the gateway over HTTPS. It holds no state besides its configuration.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
}

func NewClient(token, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(),
	}
}

// CreateInvoice issues a new invoice and returns it with its pay link.
func (c *Client) CreateInvoice(ctx context.Context, in InvoiceRequest) (*Invoice, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid invoice request: %w", err)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("invalid invoice request: amount must be positive")
	}

	form := url.Values{}
	form.Set("amount", in.Amount.String())
	form.Set("asset", in.Asset)
	if in.Description != "" {
		form.Set("description", in.Description)
	}
	if in.Payload != "" {
		form.Set("payload", in.Payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/createInvoice", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var invoice Invoice
	if err := c.do(req, "createInvoice", &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetInvoice looks up a single invoice by id.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	q := url.Values{}
	q.Set("invoice_ids", invoiceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getInvoices?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var list invoiceList
	if err := c.do(req, "getInvoices", &list); err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, ErrInvoiceNotFound
	}
	return &list.Items[0], nil
}

func (c *Client) do(req *http.Request, method string, result any) error {
	req.Header.Set("Crypto-Pay-API-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cryptopay %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("cryptopay %s: read body: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{Method: method, StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("cryptopay %s: decode response: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK || !env.OK {
		apiErr := &APIError{Method: method, StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Name = env.Error.Name
		}
		return apiErr
	}

	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("cryptopay %s: decode result: %w", method, err)
	}
	return nil
}
