package fcm

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
	logger          *zap.Logger
}

// NewClient creates a new FCM client using the provided credentials file.
// An empty file falls back to application default credentials.
func NewClient(ctx context.Context, credentialsFile string, logger *zap.Logger) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "fcm: init firebase app")
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "fcm: messaging client")
	}

	logger = logger.Named("fcm")
	logger.Info("client initialized")
	return &Client{messagingClient: messagingClient, logger: logger}, nil
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title string
	Body  string
	Data  map[string]string
	// ClickAction is the path opened when the notification is clicked.
	ClickAction string
}

// SendToDevices sends a push notification to multiple device tokens.
// Returns the tokens that failed to receive it.
func (c *Client) SendToDevices(ctx context.Context, tokens []string, notification NotificationData) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, BuildMulticast(tokens, notification))
	if err != nil {
		return nil, eris.Wrap(err, "fcm: send multicast")
	}

	c.logger.Debug("multicast sent",
		zap.Int("success", response.SuccessCount),
		zap.Int("failure", response.FailureCount))
	return FailedTokens(tokens, response), nil
}

// BuildMulticast renders notification for the web push channel the
// frontend listens on.
func BuildMulticast(tokens []string, notification NotificationData) *messaging.MulticastMessage {
	data := make(map[string]string, len(notification.Data)+1)
	for k, v := range notification.Data {
		data[k] = v
	}
	if notification.ClickAction != "" {
		data["click_action"] = notification.ClickAction
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: data,
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: notification.Title,
				Body:  notification.Body,
				Icon:  "/icon-192.svg",
			},
		},
	}
	if notification.ClickAction != "" {
		msg.Webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: notification.ClickAction}
	}
	return msg
}

// FailedTokens pairs a batch response with the tokens it was sent to.
func FailedTokens(tokens []string, response *messaging.BatchResponse) []string {
	var failed []string
	for i, resp := range response.Responses {
		if i < len(tokens) && !resp.Success {
			failed = append(failed, tokens[i])
		}
	}
	return failed
}
