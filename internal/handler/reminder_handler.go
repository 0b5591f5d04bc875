package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/launchwatch/internal/middleware"
	"github.com/hitoshi/launchwatch/internal/model"
	"github.com/hitoshi/launchwatch/internal/reminder"
)

const maxReminderBodyBytes = 4 << 10

// 既存フロントエンドが表示する文言
const (
	msgReminderRegistered = "Email reminder registered successfully"
	msgReminderDuplicate  = "Email already registered for reminders"
)

// ReminderRegistrar はローンチ通知登録を行うサービスのインターフェース。
type ReminderRegistrar interface {
	Register(ctx context.Context, email string) (*reminder.RegistrationResult, error)
}

// ReminderHandler はローンチ通知登録のHTTPハンドラー。
type ReminderHandler struct {
	service ReminderRegistrar
	logger  *slog.Logger
}

// NewReminderHandler はReminderHandlerを生成する。
func NewReminderHandler(service ReminderRegistrar, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{service: service, logger: orDefaultLogger(logger)}
}

type registerReminderRequest struct {
	Email string `json:"email"`
}

type reminderData struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type reminderResponse struct {
	Message string        `json:"message"`
	Data    *reminderData `json:"data,omitempty"`
}

// Register はメールアドレスを通知対象として登録する。
// 登録済みのアドレスは成功として扱う。
// POST /functions/v1/store-email-reminder, /api/reminders
func (h *ReminderHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReminderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReminderBodyBytes)).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidEmailError())
		return
	}

	result, err := h.service.Register(r.Context(), req.Email)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if result.AlreadyRegistered {
		writeJSON(w, http.StatusOK, reminderResponse{Message: msgReminderDuplicate})
		return
	}

	resp := reminderResponse{Message: msgReminderRegistered}
	if rem := result.Reminder; rem != nil {
		resp.Data = &reminderData{ID: rem.ID, Email: rem.Email, CreatedAt: rem.CreatedAt}
	}
	writeJSON(w, http.StatusOK, resp)
}
