package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	api "jobtrack-backend/cmd/api"
	"jobtrack-backend/internal/ingest/scheduler"
	"jobtrack-backend/internal/notification"
	"jobtrack-backend/pkg/fcm"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, auto-sync and Gmail push listener",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := api.NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.Migrate(); err != nil {
		return err
	}

	// Push notifications are optional; ingestion works without them.
	if cfg.Firebase.CredentialsFile != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.Firebase.CredentialsFile, logger)
		if err != nil {
			logger.Warn("FCM disabled", zap.Error(err))
		} else {
			app.Ingest.SetNotifier(notification.NewStatusNotifier(app.FCMTokens, fcmClient, logger))
		}
	} else {
		logger.Info("firebase.credentials_file not set, FCM disabled")
	}

	autoSync := scheduler.NewAutoSyncScheduler(app.Accounts, app.Ingest, cfg.Ingest.AutoSyncInterval, logger)
	autoSync.Start(ctx)
	defer autoSync.Stop()

	if cfg.Google.ProjectID != "" {
		client, err := notification.NewPubSubClient(ctx, cfg.Google.ProjectID, cfg.Google.CredentialsFile)
		if err != nil {
			logger.Warn("gmail push disabled", zap.Error(err))
		} else {
			defer client.Close()

			listener := notification.NewService(client, cfg.TopicName(), cfg.Google.PubSubSubscription, app.Accounts, app.Ingest, logger)
			go func() {
				if err := listener.Start(ctx); err != nil {
					logger.Error("gmail push listener stopped", zap.Error(err))
				}
			}()

			renewer := notification.NewWatchRenewer(app.Accounts, app.Credentials, app.Gmail, cfg.TopicResource(), logger)
			renewer.Start(ctx)
			defer renewer.Stop()
		}
	} else {
		logger.Info("google.project_id not set, gmail push disabled")
	}

	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}
	return api.NewHandler(app).Start(ctx, fmt.Sprintf(":%d", port))
}
