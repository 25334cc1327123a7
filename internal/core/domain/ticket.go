package domain

import (
	"strconv"
)

// Ticket is a resolved incident normalised from the ticket source.
// Fields missing in the source record are left empty rather than dropped.
type Ticket struct {
	Number   string `json:"ticket_number"`
	Title    string `json:"title"`
	Query    string `json:"query"`
	Answer   string `json:"answer"`
	URL      string `json:"url"`
	Created  *int64 `json:"created"`   // epoch seconds, nil when unparseable
	OpenedAt string `json:"opened_at"` // ISO-8601, empty when unparseable

	// CreatedOn is the source's native creation timestamp.
	// It becomes the next checkpoint when this ticket is the latest of a batch.
	CreatedOn string `json:"created_on"`
}

// Ordinal returns the numeric ordinal derived from the ticket number.
func (t *Ticket) Ordinal() int64 {
	return TicketOrdinal(t.Number)
}

// TicketOrdinal extracts the first run of digits from a ticket number.
// Returns -1 when the number has no digits or the run does not fit in int64.
func TicketOrdinal(number string) int64 {
	start := -1
	for i := 0; i < len(number); i++ {
		isDigit := number[i] >= '0' && number[i] <= '9'
		if isDigit && start < 0 {
			start = i
		}
		if !isDigit && start >= 0 {
			return parseOrdinal(number[start:i])
		}
	}
	if start < 0 {
		return -1
	}
	return parseOrdinal(number[start:])
}

func parseOrdinal(digits string) int64 {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// LatestTicket returns the ticket with the highest ordinal.
// Ties keep the first ticket seen. Returns nil for an empty slice.
func LatestTicket(tickets []*Ticket) *Ticket {
	var latest *Ticket
	for _, t := range tickets {
		if t == nil {
			continue
		}
		if latest == nil || t.Ordinal() > latest.Ordinal() {
			latest = t
		}
	}
	return latest
}

// TicketBatch is the result of one fetch against the ticket source.
type TicketBatch struct {
	Tickets []*Ticket `json:"tickets"`

	// LatestUpdateTime is the raw creation timestamp of the latest ticket.
	// Empty when the batch is empty or the latest ticket has no timestamp.
	LatestUpdateTime string `json:"latest_update_time,omitempty"`
}

// NewTicketBatch builds a batch and selects its checkpoint candidate.
func NewTicketBatch(tickets []*Ticket) *TicketBatch {
	batch := &TicketBatch{Tickets: tickets}
	if latest := LatestTicket(tickets); latest != nil {
		batch.LatestUpdateTime = latest.CreatedOn
	}
	return batch
}

// Empty reports whether the batch carries no tickets.
func (b *TicketBatch) Empty() bool {
	return b == nil || len(b.Tickets) == 0
}
