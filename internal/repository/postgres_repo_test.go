package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

// PostgresVisitorRepoはVisitorRepositoryインターフェースを満たすことを検証
func TestPostgresVisitorRepo_ImplementsInterface(t *testing.T) {
	var _ VisitorRepository = (*PostgresVisitorRepo)(nil)
}

// PostgresReminderRepoはReminderRepositoryとDispatchRepositoryを満たすことを検証
func TestPostgresReminderRepo_ImplementsInterfaces(t *testing.T) {
	var _ ReminderRepository = (*PostgresReminderRepo)(nil)
	var _ DispatchRepository = (*PostgresReminderRepo)(nil)
}

// PostgresAnalyticsRepoはAnalyticsRepositoryインターフェースを満たすことを検証
func TestPostgresAnalyticsRepo_ImplementsInterface(t *testing.T) {
	var _ AnalyticsRepository = (*PostgresAnalyticsRepo)(nil)
}

func TestNewRepos_Initialize(t *testing.T) {
	if NewPostgresVisitorRepo(nil) == nil {
		t.Error("expected non-nil visitor repo")
	}
	if NewPostgresReminderRepo(nil) == nil {
		t.Error("expected non-nil reminder repo")
	}
	if NewPostgresAnalyticsRepo(nil) == nil {
		t.Error("expected non-nil analytics repo")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unique violation", &pq.Error{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"foreign key violation", &pq.Error{Code: "23503"}, false},
		{"plain error", errors.New("connection refused"), false},
		{"no rows", sql.ErrNoRows, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNullStringPtr(t *testing.T) {
	if nullStringPtr(sql.NullString{}) != nil {
		t.Error("invalid NullString should map to nil")
	}
	p := nullStringPtr(sql.NullString{String: "Kenya", Valid: true})
	if p == nil || *p != "Kenya" {
		t.Errorf("nullStringPtr = %v, want Kenya", p)
	}
}
