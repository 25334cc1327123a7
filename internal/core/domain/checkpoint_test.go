package domain

import (
	"errors"
	"testing"
)

func TestParseCheckpoint(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"2025-07-03 15:16:53", false},
		{"2000-01-01 00:00:00", false},
		{"2025-13-50 99:99:99", true},
		{"2025-07-03T15:16:53Z", true},
		{"2025-07-03", true},
		{"", true},
		{"2025-7-3 15:16:53", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cp, err := ParseCheckpoint(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cp.String() != tt.raw {
				t.Errorf("expected %q, got %q", tt.raw, cp.String())
			}
		})
	}
}

func TestCheckpoint_OrDefault(t *testing.T) {
	var empty Checkpoint
	if empty.OrDefault() != DefaultCheckpoint {
		t.Errorf("expected default checkpoint, got %q", empty.OrDefault())
	}

	cp := Checkpoint("2024-02-01 10:00:00")
	if cp.OrDefault() != cp {
		t.Errorf("expected %q, got %q", cp, cp.OrDefault())
	}
}

func TestCheckpoint_DateAndClock(t *testing.T) {
	date, clock := Checkpoint("2025-07-03 15:16:53").DateAndClock()
	if date != "2025-07-03" || clock != "15:16:53" {
		t.Errorf("unexpected split: %q %q", date, clock)
	}
}

func TestCheckpoint_After(t *testing.T) {
	later := Checkpoint("2025-07-03 15:16:53")
	earlier := Checkpoint("2025-07-03 15:16:52")

	ok, err := later.After(earlier)
	if err != nil || !ok {
		t.Errorf("expected later.After(earlier) = true, got %v (%v)", ok, err)
	}

	ok, err = earlier.After(later)
	if err != nil || ok {
		t.Errorf("expected earlier.After(later) = false, got %v (%v)", ok, err)
	}

	ok, err = later.After(later)
	if err != nil || ok {
		t.Errorf("expected equal checkpoints not to be After, got %v (%v)", ok, err)
	}

	if _, err := Checkpoint("garbage").After(earlier); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
