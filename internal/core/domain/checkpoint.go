package domain

import (
	"fmt"
	"strings"
	"time"
)

// CheckpointLayout is the wire format of a checkpoint (YYYY-MM-DD HH:MM:SS).
// It matches the ticket source's native created-on format.
const CheckpointLayout = "2006-01-02 15:04:05"

// DefaultCheckpoint is used when a collection has no stored watermark yet.
// It is far enough in the past to act as "sync everything".
const DefaultCheckpoint Checkpoint = "2000-01-01 00:00:00"

// Checkpoint is the watermark marking the boundary of already-ingested tickets.
// The value is kept as the source's native string; it is never converted.
type Checkpoint string

// ParseCheckpoint validates raw against CheckpointLayout.
// The returned checkpoint is the exact input string.
func ParseCheckpoint(raw string) (Checkpoint, error) {
	if _, err := time.Parse(CheckpointLayout, raw); err != nil {
		return "", fmt.Errorf("%w: invalid datetime format %q, expected YYYY-MM-DD HH:MM:SS", ErrValidation, raw)
	}
	return Checkpoint(raw), nil
}

// String returns the raw checkpoint value.
func (c Checkpoint) String() string {
	return string(c)
}

// IsZero reports whether the checkpoint is empty.
func (c Checkpoint) IsZero() bool {
	return c == ""
}

// OrDefault returns DefaultCheckpoint when c is empty.
func (c Checkpoint) OrDefault() Checkpoint {
	if c.IsZero() {
		return DefaultCheckpoint
	}
	return c
}

// Time parses the checkpoint as a UTC timestamp.
func (c Checkpoint) Time() (time.Time, error) {
	t, err := time.Parse(CheckpointLayout, string(c))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: checkpoint %q", ErrValidation, string(c))
	}
	return t, nil
}

// DateAndClock splits the checkpoint into its date and time components,
// the two-part form the ticket source expects in its lower-bound filter.
func (c Checkpoint) DateAndClock() (string, string) {
	date, clock, found := strings.Cut(string(c), " ")
	if !found {
		return date, "00:00:00"
	}
	return date, clock
}

// After reports whether c is strictly later than other.
// Both values must be valid checkpoints.
func (c Checkpoint) After(other Checkpoint) (bool, error) {
	ct, err := c.Time()
	if err != nil {
		return false, err
	}
	ot, err := other.Time()
	if err != nil {
		return false, err
	}
	return ct.After(ot), nil
}
