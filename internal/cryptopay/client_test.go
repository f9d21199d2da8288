package cryptopay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/createInvoice", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Crypto-Pay-API-Token"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "7.9", r.PostForm.Get("amount"))
		assert.Equal(t, "USDT", r.PostForm.Get("asset"))
		assert.Equal(t, "42|7", r.PostForm.Get("payload"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"invoice_id":1001,"status":"active","pay_url":"https://t.me/pay/1001","payload":"42|7"}}`))
	}))
	defer srv.Close()

	client := NewClient("secret", srv.URL, time.Second)
	invoice, err := client.CreateInvoice(context.Background(), InvoiceRequest{
		Amount:      decimal.RequireFromString("7.90"),
		Asset:       "USDT",
		Description: "VIP 7d",
		Payload:     "42|7",
	})
	require.NoError(t, err)
	assert.Equal(t, "1001", invoice.ID())
	assert.Equal(t, "https://t.me/pay/1001", invoice.URL())
	assert.Equal(t, "active", invoice.Status)
}

func TestClient_CreateInvoiceRejectsBadRequest(t *testing.T) {
	client := NewClient("secret", "http://127.0.0.1:0", time.Second)

	_, err := client.CreateInvoice(context.Background(), InvoiceRequest{Amount: decimal.Zero, Asset: "USDT"})
	assert.Error(t, err)

	_, err = client.CreateInvoice(context.Background(), InvoiceRequest{Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)
}

func TestClient_GetInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getInvoices", r.URL.Path)
		if r.URL.Query().Get("invoice_ids") == "404" {
			_, _ = w.Write([]byte(`{"ok":true,"result":{"items":[]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"items":[{"invoice_id":"77","status":"paid","bot_invoice_url":"https://t.me/CryptoBot?start=77","payload":"1|30"}]}}`))
	}))
	defer srv.Close()

	client := NewClient("secret", srv.URL, time.Second)

	invoice, err := client.GetInvoice(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, "77", invoice.ID())
	assert.Equal(t, "paid", invoice.Status)
	assert.Equal(t, "1|30", invoice.Payload)
	assert.Equal(t, "https://t.me/CryptoBot?start=77", invoice.URL())

	_, err = client.GetInvoice(context.Background(), "404")
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestClient_APIErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode int
		wantName string
	}{
		{name: "envelope error", status: http.StatusBadRequest, body: `{"ok":false,"error":{"code":400,"name":"ASSET_INVALID"}}`, wantCode: 400, wantName: "ASSET_INVALID"},
		{name: "ok false with 200", status: http.StatusOK, body: `{"ok":false,"error":{"code":401,"name":"UNAUTHORIZED"}}`, wantCode: 401, wantName: "UNAUTHORIZED"},
		{name: "non json failure", status: http.StatusBadGateway, body: `bad gateway`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("secret", srv.URL, time.Second).GetInvoice(context.Background(), "1")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantName, apiErr.Name)
		})
	}
}
