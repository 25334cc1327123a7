package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFileStatusConstants(t *testing.T) {
	if FileStatusSuccess != "success" {
		t.Errorf("expected FileStatusSuccess = 'success', got %s", FileStatusSuccess)
	}
	if FileStatusSkipped != "skipped" {
		t.Errorf("expected FileStatusSkipped = 'skipped', got %s", FileStatusSkipped)
	}
	if FileStatusFailed != "failed" {
		t.Errorf("expected FileStatusFailed = 'failed', got %s", FileStatusFailed)
	}
}

func TestSyncOutcome_JSON(t *testing.T) {
	outcome := &SyncOutcome{
		RunID:            "run-1",
		Collection:       TicketCollectionName,
		Success:          true,
		Message:          SyncMessageNoTicket,
		TicketsProcessed: 0,
		Timestamp:        time.Date(2025, 7, 3, 15, 16, 53, 0, time.UTC),
		Err:              errors.New("hidden"),
	}

	raw, err := json.Marshal(outcome)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)

	if !strings.Contains(body, `"tickets_processed":0`) {
		t.Errorf("expected tickets_processed in %s", body)
	}
	if strings.Contains(body, "latest_update_time") {
		t.Errorf("expected latest_update_time to be omitted in %s", body)
	}
	if strings.Contains(body, "hidden") {
		t.Errorf("error must not be serialised: %s", body)
	}
}
