package cryptopay

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// InvoiceRequest is the input of createInvoice.
type InvoiceRequest struct {
	Amount      decimal.Decimal
	Asset       string `validate:"required,alphanum,max=10"`
	Description string `validate:"max=1024"`
	Payload     string `validate:"max=4096"`
}

// Invoice is the subset of the gateway invoice object the bot uses.
type Invoice struct {
	InvoiceID     json.Number `json:"invoice_id"`
	Status        string      `json:"status"`
	Asset         string      `json:"asset"`
	Amount        string      `json:"amount"`
	PayURL        string      `json:"pay_url"`
	BotInvoiceURL string      `json:"bot_invoice_url"`
	Payload       string      `json:"payload"`
}

// ID returns the invoice id as the string the bot stores.
func (i Invoice) ID() string {
	return i.InvoiceID.String()
}

// URL returns the payment link, falling back to the bot link newer API versions return.
func (i Invoice) URL() string {
	if i.PayURL != "" {
		return i.PayURL
	}
	return i.BotInvoiceURL
}

type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code int    `json:"code"`
		Name string `json:"name"`
	} `json:"error"`
}

type invoiceList struct {
	Items []Invoice `json:"items"`
}

// APIError is returned when the gateway answers with a non-success status or envelope.
type APIError struct {
	Method     string
	StatusCode int
	Code       int
	Name       string
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("cryptopay %s: %s (code %d, http %d)", e.Method, e.Name, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("cryptopay %s: http %d", e.Method, e.StatusCode)
}
