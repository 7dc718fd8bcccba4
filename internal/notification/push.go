package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	authrepo "jobtrack-backend/internal/auth/repository"
	"jobtrack-backend/internal/ingest/domain"
	"jobtrack-backend/pkg/fcm"
)

// PushSender delivers one notification to many devices and reports the
// tokens that failed.
type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// StatusNotifier pushes status changes to the owner's registered devices.
type StatusNotifier struct {
	tokens authrepo.FCMTokenRepository
	sender PushSender
	logger *zap.Logger
}

func NewStatusNotifier(tokens authrepo.FCMTokenRepository, sender PushSender, logger *zap.Logger) *StatusNotifier {
	return &StatusNotifier{tokens: tokens, sender: sender, logger: logger.Named("push")}
}

func (n *StatusNotifier) NotifyStatusChange(ctx context.Context, change domain.StatusChange) error {
	registered, err := n.tokens.GetTokensByUserID(ctx, change.OwnerID)
	if err != nil {
		return err
	}
	if len(registered) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(registered))
	for _, t := range registered {
		tokens = append(tokens, t.Token)
	}

	failed, err := n.sender.SendToDevices(ctx, tokens, BuildStatusNotification(change))
	if err != nil {
		return err
	}

	// Tokens FCM rejected belong to uninstalled apps or expired browsers.
	for _, token := range failed {
		if err := n.tokens.DeleteToken(ctx, token); err != nil {
			n.logger.Warn("prune fcm token", zap.String("user_id", change.OwnerID), zap.Error(err))
		}
	}
	n.logger.Debug("status change pushed",
		zap.String("user_id", change.OwnerID),
		zap.Int("devices", len(tokens)-len(failed)),
		zap.Int("pruned", len(failed)))
	return nil
}

// BuildStatusNotification renders a status change for a device.
func BuildStatusNotification(change domain.StatusChange) fcm.NotificationData {
	title := fmt.Sprintf("%s: %s", change.Company, change.To)
	body := fmt.Sprintf("%s moved from %s to %s", change.Position, change.From, change.To)
	if change.Created {
		title = "New application: " + change.Company
		body = fmt.Sprintf("%s detected as %s", change.Position, change.To)
	}
	if change.Subject != "" {
		body += "\n" + change.Subject
	}

	return fcm.NotificationData{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":           "status_change",
			"application_id": change.ApplicationID,
			"status":         string(change.To),
		},
		ClickAction: "/applications/" + change.ApplicationID,
	}
}
