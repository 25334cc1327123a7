package servicenow

import (
	"log/slog"
	"time"
)

const (
	// DefaultState is the incident state for resolved/closed records.
	DefaultState = 6

	// MaxLimit is the hard cap on records fetched by one query.
	MaxLimit = 1000

	DefaultTimeout = 60 * time.Second
)

// Config contains configuration for the ServiceNow ticket source.
type Config struct {
	// BaseURL is the instance URL, e.g. https://acme.service-now.com
	BaseURL  string
	Username string
	Password string

	// State filters incidents by lifecycle state. Defaults to 6.
	State int

	// Limit bounds the number of records per fetch.
	// Values above MaxLimit are clamped.
	Limit int

	Timeout time.Duration
	Logger  *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.State <= 0 {
		c.State = DefaultState
	}
	if c.Limit <= 0 || c.Limit > MaxLimit {
		c.Limit = MaxLimit
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
