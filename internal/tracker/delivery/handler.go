package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"jobtrack-backend/internal/tracker/domain"
	"jobtrack-backend/internal/tracker/dto"
	"jobtrack-backend/internal/tracker/usecase"
)

// ApplicationHandler serves the manual application endpoints.
type ApplicationHandler struct {
	applications usecase.ApplicationUsecase
	logger       *zap.Logger
}

func NewApplicationHandler(applications usecase.ApplicationUsecase, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, logger: logger}
}

// Register mounts the handler on an authenticated group.
func (h *ApplicationHandler) Register(api *gin.RouterGroup) {
	apps := api.Group("/applications")
	apps.POST("", h.CreateApplication)
	apps.GET("", h.ListApplications)
	apps.GET("/stats", h.GetStats)
	apps.GET("/:id", h.GetApplication)
	apps.PATCH("/:id", h.UpdateStatus)
	apps.DELETE("/:id", h.DeleteApplication)

	api.GET("/activity", h.RecentActivity)
}

// CreateApplication adds an application by hand
// POST /api/applications
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.applications.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// ListApplications returns the user's applications, newest first, or ranked
// by relevance when q is set.
// GET /api/applications?status=INTERVIEW&q=acme
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	userID := c.GetString("userID")

	var (
		apps []domain.Application
		err  error
	)
	if q := c.Query("q"); q != "" {
		apps, err = h.applications.Search(c.Request.Context(), userID, q, c.Query("status"))
	} else {
		apps, err = h.applications.List(c.Request.Context(), userID, c.Query("status"))
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ApplicationListResponse{Applications: apps, Total: len(apps)})
}

// GET /api/applications/:id
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	app, err := h.applications.Get(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// UpdateStatus overrides the status by hand
// PATCH /api/applications/:id
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.applications.UpdateStatus(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// DELETE /api/applications/:id
func (h *ApplicationHandler) DeleteApplication(c *gin.Context) {
	if err := h.applications.Delete(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Application deleted successfully"})
}

// GET /api/applications/stats
func (h *ApplicationHandler) GetStats(c *gin.Context) {
	stats, err := h.applications.Stats(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RecentActivity returns the latest activity across all applications
// GET /api/activity?limit=20
func (h *ApplicationHandler) RecentActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(usecase.DefaultActivityLimit)))

	activities, err := h.applications.RecentActivity(c.Request.Context(), c.GetString("userID"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ActivityListResponse{Activities: activities})
}

func (h *ApplicationHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrApplicationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
	case errors.Is(err, usecase.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, usecase.ErrApplicationExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Application already exists"})
	case errors.Is(err, usecase.ErrInvalidStatus), errors.Is(err, usecase.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("application request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
