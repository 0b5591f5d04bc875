package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/launchwatch/internal/countdown"
)

// CountdownSource は現在のカウントダウン状態を提供する。
type CountdownSource interface {
	Target() time.Time
	Now() countdown.State
}

// CountdownHandler はカウントダウンのHTTPハンドラー。
type CountdownHandler struct {
	clock   CountdownSource
	liveURL string
}

// NewCountdownHandler はCountdownHandlerを生成する。
func NewCountdownHandler(clock CountdownSource, liveURL string) *CountdownHandler {
	return &CountdownHandler{clock: clock, liveURL: liveURL}
}

type countdownResponse struct {
	LaunchAt   time.Time `json:"launch_at"`
	Live       bool      `json:"live"`
	Days       int64     `json:"days"`
	Hours      int64     `json:"hours"`
	Minutes    int64     `json:"minutes"`
	Seconds    int64     `json:"seconds"`
	ServerTime time.Time `json:"server_time"`
	LiveURL    string    `json:"live_url"`
}

// Get は現在の残り時間を返す。
// GET /api/countdown
func (h *CountdownHandler) Get(w http.ResponseWriter, r *http.Request) {
	st := h.clock.Now()
	writeJSON(w, http.StatusOK, countdownResponse{
		LaunchAt:   h.clock.Target().UTC(),
		Live:       st.Live,
		Days:       st.Days,
		Hours:      st.Hours,
		Minutes:    st.Minutes,
		Seconds:    st.Seconds,
		ServerTime: st.At.UTC(),
		LiveURL:    h.liveURL,
	})
}
