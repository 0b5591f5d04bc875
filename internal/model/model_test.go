package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_ImplementsError(t *testing.T) {
	var err error = NewInvalidEmailError()

	if err.Error() != "[INVALID_EMAIL] Valid email address is required" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAPIError_UnwrapsThroughFmtErrorf(t *testing.T) {
	wrapped := fmt.Errorf("register: %w", NewInvalidEmailError())

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should find *APIError in wrapped error")
	}
	if apiErr.Category != "validation" {
		t.Errorf("Category = %q, want %q", apiErr.Category, "validation")
	}
}

func TestNewInvalidParameterError_IncludesName(t *testing.T) {
	err := NewInvalidParameterError("limit")
	if err.Message != "Invalid parameter: limit" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestStringPtr(t *testing.T) {
	if StringPtr("") != nil {
		t.Error("StringPtr(\"\") should be nil")
	}
	p := StringPtr("Kenya")
	if p == nil || *p != "Kenya" {
		t.Errorf("StringPtr(\"Kenya\") = %v", p)
	}
}

func TestLocation_IsEmpty(t *testing.T) {
	if !(Location{}).IsEmpty() {
		t.Error("zero Location should be empty")
	}
	if (Location{City: StringPtr("Nairobi")}).IsEmpty() {
		t.Error("Location with city should not be empty")
	}
}
