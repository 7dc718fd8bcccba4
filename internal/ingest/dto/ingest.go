package dto

import (
	"time"

	"jobtrack-backend/internal/ingest/domain"
)

type IngestResponse struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// IngestErrorResponse carries the counts of work committed before the run
// aborted.
type IngestErrorResponse struct {
	ErrorKind domain.ErrorKind `json:"errorKind"`
	Message   string           `json:"message"`
	Scanned   int              `json:"scanned"`
	Created   int              `json:"created"`
	Updated   int              `json:"updated"`
}

type HistoryResponse struct {
	Events          []domain.EmailEvent `json:"events"`
	LastProcessedAt *time.Time          `json:"last_processed_at"`
}
