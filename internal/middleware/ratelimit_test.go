package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/bookstorage/internal/model"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    3,
		AuthRate:        0.5,
		AuthBurst:       2,
		CleanupInterval: time.Hour,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestAs(userID int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/get-all", nil)
	p := &Principal{UserID: userID, Roles: []model.Role{model.RoleUser}}
	return req.WithContext(ContextWithPrincipal(req.Context(), p))
}

// newFrozenRateLimiter はトークン補充が起きないよう時刻を固定したRateLimiterを返す。
func newFrozenRateLimiter(t *testing.T) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(testRateLimiterConfig())
	t.Cleanup(rl.Stop)
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return frozen }
	return rl
}

func TestGeneralMiddleware_AllowsBurstThen429(t *testing.T) {
	rl := newFrozenRateLimiter(t)
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs(1))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs(1))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if ra := w.Header().Get("Retry-After"); ra != "1" {
		t.Errorf("Retry-After = %q, want %q", ra, "1")
	}

	var body ExceptionBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message == "" {
		t.Error("expected message in 429 body")
	}
}

func TestGeneralMiddleware_IsolatesPrincipals(t *testing.T) {
	rl := newFrozenRateLimiter(t)
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 4; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), requestAs(1))
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs(2))
	if w.Code != http.StatusOK {
		t.Errorf("other principal status = %d, want 200", w.Code)
	}
	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", got)
	}
}

func TestGeneralMiddleware_NoPrincipal(t *testing.T) {
	rl := newFrozenRateLimiter(t)
	handler := rl.GeneralMiddleware()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAuthMiddleware_PerIP(t *testing.T) {
	rl := newFrozenRateLimiter(t)
	handler := rl.AuthMiddleware()(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("10.0.0.1:1111"); code != http.StatusOK {
		t.Fatalf("1st: %d", code)
	}
	// ポートが異なっても同一IPとして扱う
	if code := send("10.0.0.1:2222"); code != http.StatusOK {
		t.Fatalf("2nd: %d", code)
	}
	if code := send("10.0.0.1:3333"); code != http.StatusTooManyRequests {
		t.Errorf("3rd: status = %d, want 429", code)
	}
	if code := send("10.0.0.2:1111"); code != http.StatusOK {
		t.Errorf("other IP: status = %d, want 200", code)
	}
	if got := rl.AuthLimiterCount(); got != 2 {
		t.Errorf("AuthLimiterCount = %d, want 2", got)
	}
}

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	current := start
	rl.now = func() time.Time { return current }

	rl.GeneralMiddleware()(okHandler()).ServeHTTP(httptest.NewRecorder(), requestAs(1))
	if rl.GeneralLimiterCount() != 1 {
		t.Fatal("expected one limiter entry")
	}

	current = start.Add(time.Hour)
	rl.cleanup()
	if rl.GeneralLimiterCount() != 1 {
		t.Error("entry within TTL should be kept")
	}

	current = start.Add(3 * time.Hour)
	rl.cleanup()
	if got := rl.GeneralLimiterCount(); got != 0 {
		t.Errorf("GeneralLimiterCount = %d after cleanup, want 0", got)
	}
}

func TestNewRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	if cfg.GeneralBurst != 120 || cfg.AuthBurst != 20 {
		t.Errorf("bursts = %d/%d, want 120/20", cfg.GeneralBurst, cfg.AuthBurst)
	}
	if cfg.GeneralRate != 2 {
		t.Errorf("GeneralRate = %v, want 2", cfg.GeneralRate)
	}
	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v", cfg.CleanupInterval)
	}
}
