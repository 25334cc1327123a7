package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrValidation", ErrValidation, "validation failed"},
		{"ErrSourceUnavailable", ErrSourceUnavailable, "ticket source unavailable"},
		{"ErrDocumentParse", ErrDocumentParse, "document parse failed"},
		{"ErrMetadataWrite", ErrMetadataWrite, "collection metadata write failed"},
		{"ErrStoreWrite", ErrStoreWrite, "collection store write failed"},
		{"ErrSyncInProgress", ErrSyncInProgress, "sync already in progress"},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized"},
		{"ErrForbidden", ErrForbidden, "forbidden"},
		{"ErrTokenExpired", ErrTokenExpired, "token expired"},
		{"ErrTokenInvalid", ErrTokenInvalid, "token invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrValidation,
		ErrSourceUnavailable,
		ErrDocumentParse,
		ErrMetadataWrite,
		ErrStoreWrite,
		ErrSyncInProgress,
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestErrorsIs_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("save checkpoint for %q: %w", "ticketData", ErrMetadataWrite)
	if !errors.Is(wrapped, ErrMetadataWrite) {
		t.Error("wrapped error should match ErrMetadataWrite")
	}
	if errors.Is(wrapped, ErrStoreWrite) {
		t.Error("wrapped ErrMetadataWrite should not match ErrStoreWrite")
	}
}
