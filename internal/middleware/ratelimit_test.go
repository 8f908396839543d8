package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestRateLimiter(t *testing.T, generalBurst, articleBurst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:      rate.Limit(1.0 / 60.0),
		GeneralBurst:     generalBurst,
		ArticlePostRate:  rate.Limit(1.0 / 60.0),
		ArticlePostBurst: articleBurst,
		CleanupInterval:  time.Minute,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func doAs(handler http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/articles", nil)
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimiter_General_AllowsBurstThen429(t *testing.T) {
	rl := newTestRateLimiter(t, 3, 1)
	handler := rl.GeneralMiddleware()(okHandler)

	for i := 0; i < 3; i++ {
		if w := doAs(handler, "user-1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := doAs(handler, "user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}
	if body := decodeErrorBody(t, w); body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q, want RATE_LIMIT_EXCEEDED", body.Code)
	}
}

func TestRateLimiter_IsolatesUsers(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.GeneralMiddleware()(okHandler)

	if w := doAs(handler, "user-a"); w.Code != http.StatusOK {
		t.Fatalf("user-a first: %d", w.Code)
	}
	if w := doAs(handler, "user-a"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("user-a second: %d, want 429", w.Code)
	}
	if w := doAs(handler, "user-b"); w.Code != http.StatusOK {
		t.Errorf("user-b should not be limited by user-a: %d", w.Code)
	}
	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", rl.GeneralLimiterCount())
	}
}

func TestRateLimiter_ArticlePostIndependentFromGeneral(t *testing.T) {
	rl := newTestRateLimiter(t, 10, 1)
	handler := rl.GeneralMiddleware()(rl.ArticlePostMiddleware()(okHandler))

	if w := doAs(handler, "user-1"); w.Code != http.StatusOK {
		t.Fatalf("first post: %d", w.Code)
	}
	if w := doAs(handler, "user-1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second post: %d, want 429", w.Code)
	}

	generalOnly := rl.GeneralMiddleware()(okHandler)
	if w := doAs(generalOnly, "user-1"); w.Code != http.StatusOK {
		t.Errorf("general route should still be allowed: %d", w.Code)
	}
	if rl.ArticlePostLimiterCount() != 1 {
		t.Errorf("ArticlePostLimiterCount = %d, want 1", rl.ArticlePostLimiterCount())
	}
}

func TestRateLimiter_NoUserID_Returns401(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	w := doAs(rl.GeneralMiddleware()(okHandler), "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRateLimiter_CleanupEvictsIdleEntries(t *testing.T) {
	rl := newTestRateLimiter(t, 5, 5)
	doAs(rl.GeneralMiddleware()(okHandler), "user-1")
	doAs(rl.ArticlePostMiddleware()(okHandler), "user-1")

	rl.cleanup(time.Now())
	if rl.GeneralLimiterCount() != 1 {
		t.Fatalf("fresh entries should survive cleanup")
	}

	rl.cleanup(time.Now().Add(3 * time.Minute))
	if rl.GeneralLimiterCount() != 0 || rl.ArticlePostLimiterCount() != 0 {
		t.Errorf("idle entries remain: general=%d article=%d", rl.GeneralLimiterCount(), rl.ArticlePostLimiterCount())
	}
}

func TestNewRateLimiterConfig(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 10)
	if cfg.GeneralRate != rate.Limit(2) {
		t.Errorf("GeneralRate = %v, want 2", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 || cfg.ArticlePostBurst != 10 {
		t.Errorf("bursts = %d/%d, want 120/10", cfg.GeneralBurst, cfg.ArticlePostBurst)
	}
	if DefaultRateLimiterConfig() != cfg {
		t.Error("DefaultRateLimiterConfig should equal NewRateLimiterConfig(120, 10)")
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}
