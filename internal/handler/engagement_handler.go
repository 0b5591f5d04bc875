package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/launchwatch/internal/analytics"
	"github.com/hitoshi/launchwatch/internal/middleware"
	"github.com/hitoshi/launchwatch/internal/model"
)

// SummaryProvider はダッシュボード集計を提供する。
type SummaryProvider interface {
	Summary(ctx context.Context, limit, offset int) (*analytics.Summary, error)
}

// EngagementHandler は訪問者ダッシュボードのHTTPハンドラー。
// トークン未設定の場合はエンドポイント自体が存在しないものとして扱う。
type EngagementHandler struct {
	service SummaryProvider
	token   string
	logger  *slog.Logger
}

// NewEngagementHandler はEngagementHandlerを生成する。
func NewEngagementHandler(service SummaryProvider, token string, logger *slog.Logger) *EngagementHandler {
	return &EngagementHandler{service: service, token: token, logger: orDefaultLogger(logger)}
}

// Summary は訪問者の集計と一覧を返す。
// GET /api/engagements?limit=&offset=
func (h *EngagementHandler) Summary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Robots-Tag", "noindex, nofollow")

	if h.token == "" {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError())
		return
	}
	if !h.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="engagements"`)
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	limit, err := parseNonNegativeInt(r, "limit", analytics.DefaultLimit)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	offset, err := parseNonNegativeInt(r, "offset", 0)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *EngagementHandler) authorized(r *http.Request) bool {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return false
	}
	given := strings.TrimSpace(auth[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.token)) == 1
}

// parseNonNegativeInt はクエリパラメータを0以上の整数として読む。未指定ならdefを返す。
func parseNonNegativeInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, model.NewInvalidParameterError(name)
	}
	return v, nil
}
