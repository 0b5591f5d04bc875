package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/launchwatch/internal/clientip"
	"github.com/hitoshi/launchwatch/internal/visitor"
)

// VisitRecorder は訪問記録を行うサービスのインターフェース。
type VisitRecorder interface {
	RecordVisit(ctx context.Context, in visitor.VisitInput) (*visitor.VisitResult, error)
}

// VisitHandler はページ訪問記録のHTTPハンドラー。
type VisitHandler struct {
	service VisitRecorder
	logger  *slog.Logger
}

// NewVisitHandler はVisitHandlerを生成する。
func NewVisitHandler(service VisitRecorder, logger *slog.Logger) *VisitHandler {
	return &VisitHandler{service: service, logger: orDefaultLogger(logger)}
}

// visitResponse は訪問記録のレスポンス。
type visitResponse struct {
	OK         bool   `json:"ok"`
	ID         string `json:"id,omitempty"`
	VisitCount int    `json:"visit_count,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// LogVisit は訪問を記録する。メソッドは問わない。
// POST /functions/v1/log-visit, /api/visits
func (h *VisitHandler) LogVisit(w http.ResponseWriter, r *http.Request) {
	// プリフライトでないOPTIONSは訪問として数えない
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	in := visitor.VisitInput{IP: clientip.FromRequest(r)}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		in.UserAgent = &ua
	}

	result, err := h.service.RecordVisit(r.Context(), in)
	if err != nil {
		h.logger.Error("failed to record visit", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, visitResponse{OK: false})
		return
	}

	if !result.Recorded {
		writeJSON(w, http.StatusOK, visitResponse{OK: false, Reason: result.Reason})
		return
	}

	writeJSON(w, http.StatusOK, visitResponse{
		OK:         true,
		ID:         result.ID,
		VisitCount: result.VisitCount,
	})
}
