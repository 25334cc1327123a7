package domain

import "time"

// Ticket sync outcome messages.
const (
	SyncMessageSuccess  = "Tickets synced successfully"
	SyncMessageNoTicket = "No new tickets to process"
	SyncMessageErrorFmt = "Error during ticket sync: %s"
)

// SyncOutcome is the structured result of one ticket sync run.
// Failures are reported here rather than returned as errors.
type SyncOutcome struct {
	RunID              string    `json:"run_id"`
	Collection         string    `json:"collection"`
	Success            bool      `json:"success"`
	Message            string    `json:"message"`
	TicketsProcessed   int       `json:"tickets_processed"`
	LatestUpdateTime   string    `json:"latest_update_time,omitempty"`
	CheckpointAdvanced bool      `json:"checkpoint_advanced"`
	SourceUnavailable  bool      `json:"source_unavailable,omitempty"`
	Timestamp          time.Time `json:"timestamp"`

	// Err is the error that ended the run, nil on success.
	Err error `json:"-"`
}

// DocumentSyncResult describes one stored document.
type DocumentSyncResult struct {
	Source       string `json:"source"`
	ChunksStored int    `json:"chunks_stored"`
	Collection   string `json:"collection"`
}

// UploadedDocument is a raw document handed to the document sync.
type UploadedDocument struct {
	Name    string
	Content []byte
}

// FileStatus is the per-file status of a multi-document sync.
type FileStatus string

const (
	FileStatusSuccess FileStatus = "success"
	FileStatusSkipped FileStatus = "skipped"
	FileStatusFailed  FileStatus = "failed"
)

// DocumentFileResult reports what happened to one file of a multi-document sync.
type DocumentFileResult struct {
	Filename     string     `json:"filename"`
	Status       FileStatus `json:"status"`
	ChunksStored int        `json:"chunks_stored,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// CheckpointInfo is the externally visible checkpoint of a collection.
type CheckpointInfo struct {
	Collection     string `json:"collection"`
	LastUpdateTime string `json:"last_update_time"`
}
