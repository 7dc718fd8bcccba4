package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups the tracker repositories so callers can run several
// of them inside one transaction.
type Repositories interface {
	Companies() CompanyRepository
	Jobs() JobRepository
	Applications() ApplicationRepository
	Activities() ActivityRepository
	Transaction(ctx context.Context, fn func(tx Repositories) error) error
}

type gormRepositories struct {
	db *gorm.DB
}

// NewRepositories creates gorm-backed tracker repositories.
func NewRepositories(db *gorm.DB) Repositories {
	return &gormRepositories{db: db}
}

func (r *gormRepositories) Companies() CompanyRepository {
	return NewCompanyRepository(r.db)
}

func (r *gormRepositories) Jobs() JobRepository {
	return NewJobRepository(r.db)
}

func (r *gormRepositories) Applications() ApplicationRepository {
	return NewApplicationRepository(r.db)
}

func (r *gormRepositories) Activities() ActivityRepository {
	return NewActivityRepository(r.db)
}

func (r *gormRepositories) Transaction(ctx context.Context, fn func(tx Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{db: tx})
	})
}
