package domain

import "time"

// UploadStatus tracks one ingestion call from start to finish.
type UploadStatus string

const (
	UploadRunning   UploadStatus = "running"
	UploadSucceeded UploadStatus = "succeeded"
	UploadFailed    UploadStatus = "failed"
)

// Upload is the bookkeeping row written for every ingest call that gets past
// parsing. Transactions reference it through UploadID.
type Upload struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	FileName       string       `json:"file_name"`
	Mode           Mode         `json:"mode"`
	ChecksumSHA256 string       `json:"checksum_sha256"`
	ArchiveURI     string       `json:"archive_uri,omitempty"`
	Status         UploadStatus `json:"status"`
	TotalParsed    int          `json:"total_parsed"`
	ProcessedCount int          `json:"processed_count"`
	FailedCount    int          `json:"failed_count"`
	ErrorMessage   string       `json:"error_message,omitempty"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     *time.Time   `json:"finished_at,omitempty"`
}
