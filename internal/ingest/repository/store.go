package repository

import (
	"context"

	"gorm.io/gorm"

	trackerrepo "jobtrack-backend/internal/tracker/repository"
)

// Store is everything one ingestion run writes: the ledger and the tracker.
// Transaction gives both the same database transaction so a message's ledger
// entry commits together with its merge.
type Store interface {
	Events() EmailEventRepository
	Tracker() trackerrepo.Repositories
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Events() EmailEventRepository {
	return NewEmailEventRepository(s.db)
}

func (s *gormStore) Tracker() trackerrepo.Repositories {
	return trackerrepo.NewRepositories(s.db)
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
