// Package notification connects the ingestion pipeline to Google push
// services: Gmail change notifications in, status-change pushes out.
package notification

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	authdomain "jobtrack-backend/internal/auth/domain"
	authrepo "jobtrack-backend/internal/auth/repository"
	"jobtrack-backend/internal/ingest/domain"
	"jobtrack-backend/internal/ingest/usecase"
)

// GmailNotification is the payload Gmail publishes on every mailbox change.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// NewPubSubClient connects to Pub/Sub with the given credentials file, or
// application default credentials when it is empty.
func NewPubSubClient(ctx context.Context, projectID, credentialsFile string, opts ...option.ClientOption) (*pubsub.Client, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "pubsub: new client")
	}
	return client, nil
}

// Service turns Gmail push notifications into ingestion runs for the owner of
// the changed mailbox.
type Service struct {
	pubsubClient *pubsub.Client
	accounts     authrepo.AccountRepository
	ingest       usecase.IngestUsecase
	topicName    string
	subName      string
	logger       *zap.Logger

	mu sync.Mutex
	// last history id seen per mailbox address
	lastHistoryID map[string]uint64
}

func NewService(client *pubsub.Client, topicName, subName string, accounts authrepo.AccountRepository, ingest usecase.IngestUsecase, logger *zap.Logger) *Service {
	return &Service{
		pubsubClient:  client,
		accounts:      accounts,
		ingest:        ingest,
		topicName:     topicName,
		subName:       subName,
		logger:        logger.Named("pubsub"),
		lastHistoryID: make(map[string]uint64),
	}
}

// Start ensures the subscription exists and blocks receiving messages until
// ctx is done.
func (s *Service) Start(ctx context.Context) error {
	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("listening for gmail notifications", zap.String("subscription", s.subName))
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := s.HandleMessage(ctx, msg.Data); err != nil {
			s.logger.Warn("gmail notification not handled", zap.String("message_id", msg.ID), zap.Error(err))
		}
		// Pushes are hints; a failed run is caught up by the next push or
		// the auto-sync sweep, so redelivery buys nothing.
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return eris.Wrap(err, "pubsub: receive")
	}
	return nil
}

func (s *Service) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "pubsub: check subscription %s", s.subName)
	}
	if exists {
		return sub, nil
	}

	topic := s.pubsubClient.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "pubsub: check topic %s", s.topicName)
	}
	if !topicExists {
		return nil, eris.Errorf("pubsub: topic %s does not exist", s.topicName)
	}

	sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 60 * time.Second,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "pubsub: create subscription %s", s.subName)
	}
	s.logger.Info("created subscription", zap.String("subscription", s.subName))
	return sub, nil
}

// HandleMessage decodes one notification and runs a non-forced ingestion for
// the mailbox's owner. Stale or repeated history ids are ignored.
func (s *Service) HandleMessage(ctx context.Context, data []byte) error {
	var notification GmailNotification
	if err := json.Unmarshal(data, &notification); err != nil {
		return eris.Wrap(err, "pubsub: decode notification")
	}
	address := strings.ToLower(strings.TrimSpace(notification.EmailAddress))
	if address == "" {
		return eris.New("pubsub: notification without email address")
	}

	if !s.advance(address, notification.HistoryID) {
		s.logger.Debug("skipping stale notification",
			zap.String("email", address),
			zap.Uint64("history_id", notification.HistoryID))
		return nil
	}

	account, err := s.accounts.FindByEmail(ctx, authdomain.ProviderGoogle, address)
	if err != nil {
		return err
	}
	if account == nil {
		s.logger.Debug("notification for unknown mailbox", zap.String("email", address))
		return nil
	}

	res, err := s.ingest.Run(ctx, account.UserID, false)
	if err != nil {
		return eris.Wrapf(err, "pubsub: ingest for %s (%s)", account.UserID, domain.KindOf(err))
	}
	s.logger.Debug("push-triggered ingestion done",
		zap.String("user_id", account.UserID),
		zap.Int("scanned", res.Scanned),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated))
	return nil
}

func (s *Service) advance(address string, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastHistoryID[address]; ok && historyID <= last {
		return false
	}
	s.lastHistoryID[address] = historyID
	return true
}
