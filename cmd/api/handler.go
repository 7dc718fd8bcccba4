package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	authDelivery "jobtrack-backend/internal/auth/delivery"
	ingestDelivery "jobtrack-backend/internal/ingest/delivery"
	trackerDelivery "jobtrack-backend/internal/tracker/delivery"
)

type Handler struct {
	app             *App
	accountHandler  *authDelivery.AccountHandler
	trackerHandler  *trackerDelivery.ApplicationHandler
	ingestHandler   *ingestDelivery.IngestHandler
	settingsHandler *SettingsHandler
}

func NewHandler(app *App) *Handler {
	return &Handler{
		app:             app,
		accountHandler:  authDelivery.NewAccountHandler(app.AccountsUC, app.Logger),
		trackerHandler:  trackerDelivery.NewApplicationHandler(app.Applications, app.Logger),
		ingestHandler:   ingestDelivery.NewIngestHandler(app.Ingest, app.Logger),
		settingsHandler: NewSettingsHandler(app.Config),
	}
}

// Router builds the gin engine with middleware and routes.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.app.Logger.Named("http")))

	// CORS middleware
	allowed := h.app.Config.Server.FrontendURL
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowed == "" || origin == allowed) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}

// Start serves until ctx is done, then drains in-flight requests.
func (h *Handler) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.app.Logger.Info("server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "http: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "http: shutdown")
	}
	h.app.Logger.Info("server stopped")
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
