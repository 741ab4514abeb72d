package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardEnforcesLimit(t *testing.T) {
	_, client := newRedis(t)
	guard := Guard{
		Window: Window{Client: client, Prefix: "ratelimit:"},
		Name:   "quote",
		Span:   time.Minute,
		Max:    1,
	}
	h := guard.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", nil)
	req.RemoteAddr = "10.0.0.7:5123"

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.NotEmpty(t, rr.Header().Get("Retry-After"))

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "RATE_LIMITED", body.Error.Code)

	other := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", nil)
	other.RemoteAddr = "10.0.0.8:5123"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestGuardPassesThroughOnRedisError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	guard := Guard{Window: Window{Client: client}, Name: "quote", Span: time.Minute, Max: 1}
	rr := httptest.NewRecorder()
	guard.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
}

func TestGuardDisabled(t *testing.T) {
	guard := Guard{Max: 0}
	rr := httptest.NewRecorder()
	guard.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.10:443"
	require.Equal(t, "192.168.1.10", ClientIP(req))

	req.RemoteAddr = "203.0.113.9"
	require.Equal(t, "203.0.113.9", ClientIP(req))
}
