package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"jobtrack-backend/internal/tracker/domain"
)

// ActivityRepository only appends; entries are never edited.
type ActivityRepository interface {
	Append(ctx context.Context, activity *domain.Activity) error
	ListByApplication(ctx context.Context, applicationID string) ([]domain.Activity, error)
	ListRecentByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Activity, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Append(ctx context.Context, activity *domain.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return eris.Wrap(err, "activities: append")
	}
	return nil
}

// ListByApplication returns the log oldest first.
func (r *activityRepository) ListByApplication(ctx context.Context, applicationID string) ([]domain.Activity, error) {
	var activities []domain.Activity
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&activities).Error
	if err != nil {
		return nil, eris.Wrap(err, "activities: list")
	}
	return activities, nil
}

func (r *activityRepository) ListRecentByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Activity, error) {
	var activities []domain.Activity
	err := r.db.WithContext(ctx).
		Joins("JOIN applications ON applications.id = application_activities.application_id").
		Where("applications.user_id = ?", ownerID).
		Order("application_activities.created_at DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, eris.Wrap(err, "activities: list recent")
	}
	return activities, nil
}
