package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"jobtrack-backend/internal/ingest/domain"
	"jobtrack-backend/internal/ingest/dto"
	"jobtrack-backend/internal/ingest/usecase"
)

// IngestHandler exposes the ingestion trigger.
type IngestHandler struct {
	ingest usecase.IngestUsecase
	logger *zap.Logger
}

func NewIngestHandler(ingest usecase.IngestUsecase, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{ingest: ingest, logger: logger}
}

func (h *IngestHandler) Register(api *gin.RouterGroup) {
	api.POST("/ingest", h.RunIngest)
	api.GET("/ingest/history", h.GetHistory)
}

// RunIngest scans the linked mailbox once
// POST /api/ingest?force=1
func (h *IngestHandler) RunIngest(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	res, err := h.ingest.Run(c.Request.Context(), c.GetString("userID"), force)
	if err != nil {
		kind := domain.KindOf(err)
		if kind == domain.KindInternal {
			h.logger.Error("ingest failed", zap.String("user_id", c.GetString("userID")), zap.Error(err))
		}
		c.JSON(StatusFor(kind), dto.IngestErrorResponse{
			ErrorKind: kind,
			Message:   domain.MessageOf(err),
			Scanned:   res.Scanned,
			Created:   res.Created,
			Updated:   res.Updated,
		})
		return
	}

	c.JSON(http.StatusOK, dto.IngestResponse{
		Scanned: res.Scanned,
		Created: res.Created,
		Updated: res.Updated,
	})
}

// GetHistory lists recently processed messages
// GET /api/ingest/history?limit=50
func (h *IngestHandler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(usecase.DefaultHistoryLimit)))

	hist, err := h.ingest.History(c.Request.Context(), c.GetString("userID"), limit)
	if err != nil {
		kind := domain.KindOf(err)
		c.JSON(StatusFor(kind), gin.H{"errorKind": kind, "message": domain.MessageOf(err)})
		return
	}
	c.JSON(http.StatusOK, dto.HistoryResponse{Events: hist.Events, LastProcessedAt: hist.LastProcessedAt})
}

// StatusFor maps an ingestion error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNoLinkedAccount:
		return http.StatusNotFound
	case domain.KindCredentialRefreshFailed:
		return http.StatusForbidden
	case domain.KindProviderRequestFailed:
		return http.StatusBadGateway
	case domain.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
