package domain

import "time"

// Application tracks one owner's progress on one job.
//
// CreatedAt is the earliest evidence of the application, not the insert
// time. Merges only ever move it earlier.
type Application struct {
	ID         string          `json:"id" gorm:"primaryKey"`
	UserID     string          `json:"user_id" gorm:"not null;uniqueIndex:idx_applications_owner_job"`
	JobID      string          `json:"job_id" gorm:"not null;uniqueIndex:idx_applications_owner_job"`
	Job        *Job            `json:"job,omitempty" gorm:"foreignKey:JobID"`
	Status     LifecycleStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Activities []Activity      `json:"activities,omitempty" gorm:"foreignKey:ApplicationID"`
}

func (Application) TableName() string {
	return "applications"
}

type ActivityKind string

const (
	ActivityEmail  ActivityKind = "EMAIL"
	ActivityManual ActivityKind = "MANUAL"
)

// Activity is an append-only audit entry. Entries are written once and
// removed only together with their application.
type Activity struct {
	ID            string          `json:"id" gorm:"primaryKey"`
	ApplicationID string          `json:"application_id" gorm:"not null;index"`
	Kind          ActivityKind    `json:"kind" gorm:"type:varchar(16);not null"`
	Status        LifecycleStatus `json:"status" gorm:"type:varchar(16);not null"`
	Details       string          `json:"details"`
	ExternalID    *string         `json:"external_id,omitempty" gorm:"index"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (Activity) TableName() string {
	return "application_activities"
}

// StatusCount is one bucket of the per-status summary.
type StatusCount struct {
	Status LifecycleStatus `json:"status"`
	Count  int64           `json:"count"`
}
