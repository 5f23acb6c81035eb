package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid key", "secret", http.StatusOK},
		{"wrong key", "other", http.StatusUnauthorized},
		{"missing key", "", http.StatusUnauthorized},
	}

	router := newTestRouter(APIKeyAuth("secret"))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

type fakeCounter struct {
	counts  map[string]int64
	incrErr error
	expires map[string]time.Duration
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{
		counts:  make(map[string]int64),
		expires: make(map[string]time.Duration),
	}
}

func (f *fakeCounter) Incr(_ context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounter) Expire(_ context.Context, key string, window time.Duration) {
	f.expires[key] = window
}

func (f *fakeCounter) TTL(_ context.Context, key string) time.Duration {
	return f.expires[key]
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	hits := newFakeCounter()
	router := newTestRouter(rateLimiter(RateLimiterConfig{Limit: 2, Window: time.Second}, hits))

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i+1, statuses[i], want[i])
		}
	}
	if window := hits.expires["rl:10.0.0.1:1234"]; window != time.Second {
		t.Errorf("window = %s, want 1s set on first hit", window)
	}
}

func TestRateLimiterSeparatesCallers(t *testing.T) {
	hits := newFakeCounter()
	router := newTestRouter(rateLimiter(RateLimiterConfig{Limit: 1, Window: time.Second}, hits))

	for _, addr := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", addr)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("first request from %s status = %d, want %d", addr, rec.Code, http.StatusOK)
		}
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	hits := newFakeCounter()
	hits.incrErr = errors.New("connection refused")
	router := newTestRouter(rateLimiter(RateLimiterConfig{Limit: 1, Window: time.Second}, hits))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d when the counter store is down", rec.Code, http.StatusOK)
	}
}
