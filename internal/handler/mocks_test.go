package handler

import (
	"context"
	"time"

	"github.com/hitoshi/launchwatch/internal/analytics"
	"github.com/hitoshi/launchwatch/internal/countdown"
	"github.com/hitoshi/launchwatch/internal/reminder"
	"github.com/hitoshi/launchwatch/internal/visitor"
)

// --- モック定義 ---

type mockVisitRecorder struct {
	recordVisitFn func(ctx context.Context, in visitor.VisitInput) (*visitor.VisitResult, error)
	calls         int
	lastInput     visitor.VisitInput
}

func (m *mockVisitRecorder) RecordVisit(ctx context.Context, in visitor.VisitInput) (*visitor.VisitResult, error) {
	m.calls++
	m.lastInput = in
	if m.recordVisitFn != nil {
		return m.recordVisitFn(ctx, in)
	}
	return &visitor.VisitResult{Recorded: true, ID: "visit-1", VisitCount: 1, Created: true}, nil
}

type mockReminderRegistrar struct {
	registerFn func(ctx context.Context, email string) (*reminder.RegistrationResult, error)
	calls      int
}

func (m *mockReminderRegistrar) Register(ctx context.Context, email string) (*reminder.RegistrationResult, error) {
	m.calls++
	if m.registerFn != nil {
		return m.registerFn(ctx, email)
	}
	return &reminder.RegistrationResult{Persisted: true}, nil
}

type mockSummaryProvider struct {
	summaryFn func(ctx context.Context, limit, offset int) (*analytics.Summary, error)
}

func (m *mockSummaryProvider) Summary(ctx context.Context, limit, offset int) (*analytics.Summary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, limit, offset)
	}
	return &analytics.Summary{Limit: limit, Offset: offset}, nil
}

type stubCountdown struct {
	target time.Time
	state  countdown.State
}

func (s stubCountdown) Target() time.Time { return s.target }
func (s stubCountdown) Now() countdown.State { return s.state }

type mockHealthChecker struct {
	err error
}

func (m mockHealthChecker) PingContext(ctx context.Context) error { return m.err }
