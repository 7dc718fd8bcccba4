package domain

import (
	"time"

	trackerdomain "jobtrack-backend/internal/tracker/domain"
)

// EmailEvent is the ledger entry for one processed message. The dedup key is
// (UserID, ExternalID); forced reprocessing overwrites the detection fields
// but never the key.
type EmailEvent struct {
	ID               string                         `json:"id" gorm:"primaryKey"`
	UserID           string                         `json:"user_id" gorm:"not null;uniqueIndex:idx_email_events_owner_external"`
	ExternalID       string                         `json:"external_id" gorm:"not null;uniqueIndex:idx_email_events_owner_external"`
	Subject          string                         `json:"subject"`
	Sender           string                         `json:"sender"`
	Snippet          string                         `json:"snippet"`
	DetectedStatus   *trackerdomain.LifecycleStatus `json:"detected_status,omitempty" gorm:"type:varchar(16)"`
	DetectedCompany  *string                        `json:"detected_company,omitempty"`
	DetectedPosition *string                        `json:"detected_position,omitempty"`
	ReceivedAt       time.Time                      `json:"received_at"`
	ProcessedAt      time.Time                      `json:"processed_at"`
	CreatedAt        time.Time                      `json:"created_at"`
	UpdatedAt        time.Time                      `json:"updated_at"`
}

func (EmailEvent) TableName() string {
	return "email_events"
}

// NewEmailEvent builds the ledger entry for msg. A nil signal records a
// message that carried no recognizable status.
func NewEmailEvent(ownerID string, msg *ExternalMessage, signal *trackerdomain.Signal, processedAt time.Time) *EmailEvent {
	ev := &EmailEvent{
		UserID:      ownerID,
		ExternalID:  msg.ExternalID,
		Subject:     msg.Subject,
		Sender:      msg.Sender,
		Snippet:     msg.Snippet,
		ReceivedAt:  msg.ReceivedAt,
		ProcessedAt: processedAt,
	}
	if signal != nil {
		status := signal.Status
		ev.DetectedStatus = &status
		if signal.HasCompany() {
			company := signal.Company
			ev.DetectedCompany = &company
		}
		if signal.HasPosition() {
			position := signal.Position
			ev.DetectedPosition = &position
		}
	}
	return ev
}
