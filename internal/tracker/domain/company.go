package domain

import (
	"strings"
	"time"
)

// Company is looked up by NameKey, so "Acme  corp" and "ACME Corp" resolve
// to the same row. Name keeps the casing of the first reference.
type Company struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	NameKey   string    `json:"-" gorm:"uniqueIndex;not null"`
	Location  *string   `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// CompanyKey normalizes a company name for lookups: trimmed, lowercased and
// with inner whitespace collapsed.
func CompanyKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Job is a position at a company, unique per (company, title).
type Job struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CompanyID string    `json:"company_id" gorm:"not null;uniqueIndex:idx_jobs_company_title"`
	Title     string    `json:"title" gorm:"not null;uniqueIndex:idx_jobs_company_title"`
	Company   *Company  `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
