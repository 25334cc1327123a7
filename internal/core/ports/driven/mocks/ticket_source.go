package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

var _ driven.TicketSource = (*MockTicketSource)(nil)

// MockTicketSource returns a fixed set of tickets filtered by creation time.
type MockTicketSource struct {
	mu      sync.Mutex
	tickets []*domain.Ticket

	// FetchFn overrides the default behaviour when set
	FetchFn func(since domain.Checkpoint) (*domain.TicketBatch, error)

	// Calls records the checkpoint passed to each fetch
	Calls []domain.Checkpoint
}

// NewMockTicketSource creates a new MockTicketSource
func NewMockTicketSource(tickets ...*domain.Ticket) *MockTicketSource {
	return &MockTicketSource{tickets: tickets}
}

// FetchSince returns tickets whose CreatedOn is strictly after since.
func (m *MockTicketSource) FetchSince(ctx context.Context, since domain.Checkpoint) (*domain.TicketBatch, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, since)
	m.mu.Unlock()

	if m.FetchFn != nil {
		return m.FetchFn(since)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Ticket
	for _, t := range m.tickets {
		newer, err := domain.Checkpoint(t.CreatedOn).After(since)
		if err != nil || !newer {
			continue
		}
		out = append(out, t)
	}
	return domain.NewTicketBatch(out), nil
}

// AddTickets appends tickets to the source
func (m *MockTicketSource) AddTickets(tickets ...*domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = append(m.tickets, tickets...)
}
