package domain

import trackerdomain "jobtrack-backend/internal/tracker/domain"

// Result counts what one ingestion run did.
type Result struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// StatusChange describes an application that an email created or advanced.
type StatusChange struct {
	OwnerID       string
	ApplicationID string
	Company       string
	Position      string
	From          trackerdomain.LifecycleStatus
	To            trackerdomain.LifecycleStatus
	Subject       string
	Created       bool
}
