package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/launchwatch/internal/analytics"
	"github.com/hitoshi/launchwatch/internal/model"
)

func getEngagements(h *EngagementHandler, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	h.Summary(w, req)
	return w
}

func TestEngagementHandler_DisabledWithoutToken(t *testing.T) {
	h := NewEngagementHandler(&mockSummaryProvider{}, "", nil)

	w := getEngagements(h, "/api/engagements", "Bearer anything")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if got := w.Header().Get("X-Robots-Tag"); got != "noindex, nofollow" {
		t.Errorf("X-Robots-Tag = %q", got)
	}
}

func TestEngagementHandler_RejectsBadToken(t *testing.T) {
	h := NewEngagementHandler(&mockSummaryProvider{}, "s3cret", nil)

	tests := []struct {
		name string
		auth string
	}{
		{"missing", ""},
		{"wrong token", "Bearer nope"},
		{"wrong scheme", "Basic s3cret"},
		{"empty bearer", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := getEngagements(h, "/api/engagements", tt.auth)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if w.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}

func TestEngagementHandler_ReturnsSummary(t *testing.T) {
	var gotLimit, gotOffset int
	svc := &mockSummaryProvider{
		summaryFn: func(ctx context.Context, limit, offset int) (*analytics.Summary, error) {
			gotLimit, gotOffset = limit, offset
			return &analytics.Summary{
				TotalVisits:    42,
				UniqueVisitors: 7,
				TopCountries:   []model.CountryVisits{{Country: "Kenya", Visits: 30}},
				Visitors:       []analytics.VisitorRow{},
				Limit:          limit,
				Offset:         offset,
			}, nil
		},
	}
	h := NewEngagementHandler(svc, "s3cret", nil)

	w := getEngagements(h, "/api/engagements?limit=20&offset=40", "Bearer s3cret")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotLimit != 20 || gotOffset != 40 {
		t.Errorf("limit, offset = %d, %d, want 20, 40", gotLimit, gotOffset)
	}
	body := decodeBody(t, w)
	if body["total_visits"] != float64(42) {
		t.Errorf("total_visits = %v", body["total_visits"])
	}
	if body["unique_visitors"] != float64(7) {
		t.Errorf("unique_visitors = %v", body["unique_visitors"])
	}
	if got := w.Header().Get("X-Robots-Tag"); got != "noindex, nofollow" {
		t.Errorf("X-Robots-Tag = %q", got)
	}
}

func TestEngagementHandler_DefaultsLimit(t *testing.T) {
	var gotLimit int
	svc := &mockSummaryProvider{
		summaryFn: func(ctx context.Context, limit, offset int) (*analytics.Summary, error) {
			gotLimit = limit
			return &analytics.Summary{}, nil
		},
	}
	h := NewEngagementHandler(svc, "s3cret", nil)

	getEngagements(h, "/api/engagements", "bearer s3cret")

	if gotLimit != analytics.DefaultLimit {
		t.Errorf("limit = %d, want %d", gotLimit, analytics.DefaultLimit)
	}
}

func TestEngagementHandler_InvalidParameters(t *testing.T) {
	h := NewEngagementHandler(&mockSummaryProvider{}, "s3cret", nil)

	for _, target := range []string{
		"/api/engagements?limit=abc",
		"/api/engagements?limit=-1",
		"/api/engagements?offset=-5",
	} {
		t.Run(target, func(t *testing.T) {
			w := getEngagements(h, target, "Bearer s3cret")
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			body := decodeBody(t, w)
			if body["code"] != model.ErrCodeInvalidParam {
				t.Errorf("code = %v", body["code"])
			}
		})
	}
}

func TestEngagementHandler_ServiceError(t *testing.T) {
	svc := &mockSummaryProvider{
		summaryFn: func(ctx context.Context, limit, offset int) (*analytics.Summary, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewEngagementHandler(svc, "s3cret", nil)

	w := getEngagements(h, "/api/engagements", "Bearer s3cret")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
