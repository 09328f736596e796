package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRouter_UnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/v1/nope", "", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if body := decodeException(t, w.Body.Bytes()); body.Message != "Resource Not Found" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestNewRouter_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/v1/auth/login", "", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeException(t, w.Body.Bytes()); body.Message != "Method not supported" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestNewRouter_Health(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}

	ts.health.err = errors.New("connection refused")
	w = ts.do(http.MethodGet, "/health", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestNewRouter_Metrics(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/metrics", "", "")

	if w.Code != http.StatusOK || w.Body.String() != "# metrics" {
		t.Errorf("status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestNewRouter_CommonHeaders(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/health", "", "")

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestNewRouter_AuthRateLimit(t *testing.T) {
	ts := newTestServer(t)

	// デフォルトは20 req/min/IP
	var last int
	for i := 0; i < 21; i++ {
		last = ts.do(http.MethodPost, "/api/v1/auth/login", "", `{"username":"x"}`).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("21st request status = %d, want 429", last)
	}
}

// loginFrom はX-Forwarded-Forを付与してログインを試みる。RemoteAddrはhttptestの固定値。
func loginFrom(ts *testServer, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w.Code
}

func TestNewRouter_AuthRateLimit_IgnoresForwardedForByDefault(t *testing.T) {
	ts := newTestServer(t)

	limited := 0
	for i := 0; i < 100; i++ {
		if loginFrom(ts, fmt.Sprintf("10.0.%d.%d", i/250, i%250+1)) == http.StatusTooManyRequests {
			limited++
		}
	}
	// 同一ソケットからの100件のうち、バースト20件を超えた分が制限される
	if limited < 79 {
		t.Errorf("rate-limited = %d, want about 80", limited)
	}
}

func TestNewRouter_AuthRateLimit_TrustedProxyUsesForwardedFor(t *testing.T) {
	ts := newTestServerWith(t, func(d *RouterDeps) { d.TrustProxyHeaders = true })

	for i := 0; i < 30; i++ {
		if code := loginFrom(ts, fmt.Sprintf("10.0.0.%d", i+1)); code == http.StatusTooManyRequests {
			t.Fatalf("request %d from distinct forwarded IP was rate-limited", i+1)
		}
	}

	var last int
	for i := 0; i < 21; i++ {
		last = loginFrom(ts, "203.0.113.7")
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("21st request from one forwarded IP status = %d, want 429", last)
	}
}
