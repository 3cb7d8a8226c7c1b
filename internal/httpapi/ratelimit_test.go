package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 60, IPBurst: 2})
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", resp.Code)
	}

	// A different client keeps its own budget.
	req = httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for other client, got %d", resp.Code)
	}
}

func TestRateLimiterThrottlesPhoneAcrossIPs(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 600, IPBurst: 100, PhonePerMinute: 60, PhoneBurst: 1})
	var reached int
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
		w.WriteHeader(http.StatusOK)
	}))

	payload := []byte(`{"phone":"+919876543210","purpose":"login"}`)
	for i, addr := range []string{"10.0.0.1:5000", "10.0.0.2:5000"} {
		req := httptest.NewRequest(http.MethodPost, "/api/otp/send", bytes.NewReader(payload))
		req.RemoteAddr = addr
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if i == 0 && resp.Code != http.StatusOK {
			t.Fatalf("first request: expected 200, got %d", resp.Code)
		}
		if i == 1 && resp.Code != http.StatusTooManyRequests {
			t.Fatalf("second request: expected 429, got %d", resp.Code)
		}
	}
	if reached != 1 {
		t.Fatalf("expected handler reached once, got %d", reached)
	}
}

func TestExtractPhoneRestoresBody(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 600, IPBurst: 100, PhonePerMinute: 600, PhoneBurst: 100})
	var body string
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		body = buf.String()
		w.WriteHeader(http.StatusOK)
	}))

	payload := `{"phone":"+919876543210","purpose":"login"}`
	req := httptest.NewRequest(http.MethodPost, "/api/otp/send", bytes.NewReader([]byte(payload)))
	req.RemoteAddr = "10.0.0.1:5000"
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if body != payload {
		t.Fatalf("body not restored after phone extraction: %q", body)
	}
}
