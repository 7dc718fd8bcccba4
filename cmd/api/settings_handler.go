package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ingestusecase "jobtrack-backend/internal/ingest/usecase"
	"jobtrack-backend/pkg/config"
)

// IngestSettings is the ingestion configuration the frontend displays next
// to the sync button.
type IngestSettings struct {
	MaxResults         int64    `json:"max_results"`
	RecencyWindowDays  int      `json:"recency_window_days"`
	AutoSyncMinutes    int      `json:"auto_sync_minutes"`
	SubjectKeywords    []string `json:"subject_keywords"`
	SenderKeywords     []string `json:"sender_keywords"`
	PushNotifications  bool     `json:"push_notifications"`
	IMAPAccountsActive bool     `json:"imap_accounts_active"`
}

type SettingsHandler struct {
	settings IngestSettings
}

func NewSettingsHandler(cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{settings: IngestSettings{
		MaxResults:         cfg.Ingest.MaxResults,
		RecencyWindowDays:  int(cfg.Ingest.RecencyWindow.Hours() / 24),
		AutoSyncMinutes:    int(cfg.Ingest.AutoSyncInterval.Minutes()),
		SubjectKeywords:    ingestusecase.DefaultSubjectKeywords,
		SenderKeywords:     ingestusecase.DefaultSenderKeywords,
		PushNotifications:  cfg.Google.ProjectID != "",
		IMAPAccountsActive: cfg.IMAP.EncryptionKey != "",
	}}
}

func (h *SettingsHandler) Register(api *gin.RouterGroup) {
	api.GET("/settings/ingest", h.GetIngestSettings)
}

// GET /api/settings/ingest
func (h *SettingsHandler) GetIngestSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings)
}
