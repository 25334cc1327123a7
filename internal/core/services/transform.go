package services

import (
	"fmt"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

// ticketBodyFormat is the stored body of a ticket unit.
const ticketBodyFormat = "Ticket query/question: %s \n - Ticket answer/solution: %s"

// TicketBody renders the retrievable text of a ticket.
func TicketBody(t *domain.Ticket) string {
	return fmt.Sprintf(ticketBodyFormat, t.Query, t.Answer)
}

// PrepareTicketUnits maps tickets one-to-one onto retrievable units, keeping order.
// The unit id is the ticket number so a re-run overwrites instead of duplicating.
func PrepareTicketUnits(tickets []*domain.Ticket) []*domain.RetrievableUnit {
	units := make([]*domain.RetrievableUnit, 0, len(tickets))
	for i, t := range tickets {
		var created any
		if t.Created != nil {
			created = *t.Created
		}
		units = append(units, &domain.RetrievableUnit{
			ID:       ticketUnitID(i, t),
			Document: TicketBody(t),
			Metadata: map[string]any{
				"ticket_number": t.Number,
				"ticket_title":  t.Title,
				"url":           t.URL,
				"created":       created,
				"opened_at":     t.OpenedAt,
			},
		})
	}
	return units
}

func ticketUnitID(pos int, t *domain.Ticket) string {
	if t.Number != "" {
		return t.Number
	}
	created := "unknown"
	if t.Created != nil {
		created = fmt.Sprintf("%d", *t.Created)
	}
	return fmt.Sprintf("ticket-%d-%s", pos, created)
}

// DocumentUnits maps processed chunks onto units with ids {source}_{position}.
func DocumentUnits(source string, chunks []driven.Chunk) []*domain.RetrievableUnit {
	units := make([]*domain.RetrievableUnit, 0, len(chunks))
	for _, c := range chunks {
		units = append(units, &domain.RetrievableUnit{
			ID:       fmt.Sprintf("%s_%d", source, c.Position),
			Document: c.Content,
			Metadata: map[string]any{"source": source},
		})
	}
	return units
}
