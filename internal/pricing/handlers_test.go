package pricing_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

type quoteResponse struct {
	Data struct {
		Subtotal    decimal.Decimal   `json:"subtotal"`
		ShippingFee decimal.Decimal   `json:"shippingFee"`
		Total       decimal.Decimal   `json:"total"`
		Warnings    []pricing.Warning `json:"warnings"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field string `json:"field"`
			Rule  string `json:"rule"`
		} `json:"details"`
	} `json:"error"`
}

func serveQuote(t *testing.T, h *pricing.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Quote(rec, req)
	return rec
}

func TestQuoteHandler(t *testing.T) {
	handler := pricing.NewHandler(pricing.HandlerConfig{Calculator: newFixture().calculator()})

	t.Run("prices the cart", func(t *testing.T) {
		rec := serveQuote(t, handler, `{
			"items": [
				{"product": {"_id": "prod-a"}, "quantity": 2},
				{"product": "ghost", "quantity": 1}
			],
			"shippingMethod": "standard",
			"address": {"postalCode": "12345"}
		}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp quoteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.True(t, decimal.NewFromInt(160).Equal(resp.Data.Subtotal))
		require.True(t, decimal.NewFromInt(70).Equal(resp.Data.ShippingFee))
		require.True(t, decimal.NewFromInt(246).Equal(resp.Data.Total))
		require.Len(t, resp.Data.Warnings, 1)
		require.Equal(t, pricing.WarnProductMissing, resp.Data.Warnings[0].Code)
	})

	t.Run("rejects invalid quantity", func(t *testing.T) {
		rec := serveQuote(t, handler, `{"items":[{"product":"prod-a","quantity":0}]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "INVALID_INPUT", resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		require.Equal(t, "items[0].quantity", resp.Error.Details[0].Field)
		require.Equal(t, "gte", resp.Error.Details[0].Rule)
	})

	t.Run("rejects unknown shipping method", func(t *testing.T) {
		rec := serveQuote(t, handler, `{"items":[{"product":"prod-a","quantity":1}],"shippingMethod":"drone"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects empty cart", func(t *testing.T) {
		rec := serveQuote(t, handler, `{"items":[]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects missing product reference", func(t *testing.T) {
		rec := serveQuote(t, handler, `{"items":[{"product":{"id":"  "},"quantity":1}]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		rec := serveQuote(t, handler, `{"items":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestQuoteHandlerUpstreamFailure(t *testing.T) {
	f := newFixture()
	f.products.err = errors.New("pool exhausted")
	handler := pricing.NewHandler(pricing.HandlerConfig{Calculator: f.calculator()})

	rec := serveQuote(t, handler, `{"items":[{"product":"prod-a","quantity":1}]}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "UPSTREAM_UNAVAILABLE", resp.Error.Code)
	require.NotContains(t, rec.Body.String(), "pool exhausted")
}

func TestProductsHandler(t *testing.T) {
	handler := pricing.NewHandler(pricing.HandlerConfig{Calculator: newFixture().calculator()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/products", strings.NewReader(`{"productIds":["prod-a","prod-a","missing"]}`))
	rec := httptest.NewRecorder()
	handler.Products(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			ID            string          `json:"id"`
			OriginalPrice decimal.Decimal `json:"originalPrice"`
			DealPrice     decimal.Decimal `json:"dealPrice"`
			AppliedDealID *string         `json:"appliedDealId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "prod-a", resp.Data[0].ID)
	require.True(t, decimal.NewFromInt(80).Equal(resp.Data[0].DealPrice))
	require.Equal(t, "deal-20", *resp.Data[0].AppliedDealID)

	empty := httptest.NewRecorder()
	handler.Products(empty, httptest.NewRequest(http.MethodPost, "/api/v1/pricing/products", strings.NewReader(`{"productIds":[]}`)))
	require.Equal(t, http.StatusBadRequest, empty.Code)
}
