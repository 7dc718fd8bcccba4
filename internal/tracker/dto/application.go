package dto

import "jobtrack-backend/internal/tracker/domain"

// CreateApplicationRequest adds an application by hand. Status defaults to
// SAVED and an empty position becomes "Unknown Role".
type CreateApplicationRequest struct {
	Company  string  `json:"company" binding:"required"`
	Position string  `json:"position"`
	Location *string `json:"location"`
	Status   string  `json:"status"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// StatsResponse carries one count for every lifecycle status, zeros included.
type StatsResponse struct {
	Counts map[domain.LifecycleStatus]int64 `json:"counts"`
	Total  int64                            `json:"total"`
}

type ApplicationListResponse struct {
	Applications []domain.Application `json:"applications"`
	Total        int                  `json:"total"`
}

type ActivityListResponse struct {
	Activities []domain.Activity `json:"activities"`
}
