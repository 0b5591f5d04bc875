package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/launchwatch/internal/countdown"
	"github.com/hitoshi/launchwatch/internal/middleware"
)

func newTestRouter(t *testing.T, deps *RouterDeps) http.Handler {
	t.Helper()
	if deps.VisitService == nil {
		deps.VisitService = &mockVisitRecorder{}
	}
	if deps.ReminderService == nil {
		deps.ReminderService = &mockReminderRegistrar{}
	}
	if deps.AnalyticsService == nil {
		deps.AnalyticsService = &mockSummaryProvider{}
	}
	if deps.Countdown == nil {
		target := time.Date(2025, 11, 1, 7, 0, 0, 0, time.UTC)
		deps.Countdown = stubCountdown{target: target, state: countdown.State{At: target.Add(-time.Hour), TimeLeft: countdown.TimeLeft{Hours: 1}}}
	}
	return NewRouter(deps)
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{
		HealthChecker:  mockHealthChecker{},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
		DashboardToken: "s3cret",
	})

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/functions/v1/log-visit", "", http.StatusOK},
		{http.MethodGet, "/functions/v1/log-visit", "", http.StatusOK},
		{http.MethodPost, "/api/visits", "", http.StatusOK},
		{http.MethodPost, "/functions/v1/store-email-reminder", `{"email":"a@b.co"}`, http.StatusOK},
		{http.MethodPost, "/api/reminders", `{"email":"a@b.co"}`, http.StatusOK},
		{http.MethodGet, "/api/reminders", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/countdown", "", http.StatusOK},
		{http.MethodGet, "/api/engagements", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("X-Forwarded-For", "203.0.113.7")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRouter_HealthReportsDatabaseFailure(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{HealthChecker: mockHealthChecker{err: errors.New("down")}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestRouter_PreflightOnPostOnlyRoute(t *testing.T) {
	svc := &mockReminderRegistrar{}
	router := newTestRouter(t, &RouterDeps{ReminderService: svc})

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/store-email-reminder", nil)
	req.Header.Set("Origin", "https://febexgroup.netlify.app")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type, apikey")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code >= 300 {
		t.Errorf("status = %d, want 2xx", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if svc.calls != 0 {
		t.Errorf("Register called %d times on preflight", svc.calls)
	}
}

func TestRouter_SignupRateLimit(t *testing.T) {
	cfg := middleware.RateLimiterConfigPerMinute(120, 2)
	rl := middleware.NewRateLimiter(cfg, nil)
	defer rl.Stop()

	router := newTestRouter(t, &RouterDeps{RateLimiter: rl})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/reminders", strings.NewReader(`{"email":"a@b.co"}`))
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("first two signups = %v, want 200", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third signup = %d, want %d", codes[2], http.StatusTooManyRequests)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/countdown", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("countdown after signup limit = %d, want 200", w.Code)
	}
}

func TestRouter_SecurityHeadersApplied(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/countdown", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}
