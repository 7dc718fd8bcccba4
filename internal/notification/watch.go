package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	authdomain "jobtrack-backend/internal/auth/domain"
	authrepo "jobtrack-backend/internal/auth/repository"
	authusecase "jobtrack-backend/internal/auth/usecase"
)

// Gmail drops a watch after seven days; renewing daily keeps a margin.
const DefaultWatchInterval = 24 * time.Hour

// Watcher registers push notifications for one Gmail inbox.
type Watcher interface {
	Watch(ctx context.Context, cred *authdomain.Credential, topicName string) (uint64, time.Time, error)
}

// WatchRenewer keeps Gmail watches alive for every linked Google account.
type WatchRenewer struct {
	accounts    authrepo.AccountRepository
	credentials authusecase.CredentialRefresher
	watcher     Watcher
	topic       string
	interval    time.Duration
	logger      *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWatchRenewer(accounts authrepo.AccountRepository, credentials authusecase.CredentialRefresher, watcher Watcher, topic string, logger *zap.Logger) *WatchRenewer {
	return &WatchRenewer{
		accounts:    accounts,
		credentials: credentials,
		watcher:     watcher,
		topic:       topic,
		interval:    DefaultWatchInterval,
		logger:      logger.Named("watch"),
		stopChan:    make(chan struct{}),
	}
}

// Start renews all watches now and then once per interval.
func (w *WatchRenewer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.RenewAll(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.RenewAll(ctx)
			case <-w.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *WatchRenewer) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

// RenewAll returns how many watches were registered.
func (w *WatchRenewer) RenewAll(ctx context.Context) int {
	accounts, err := w.accounts.ListAll(ctx)
	if err != nil {
		w.logger.Error("list linked accounts", zap.Error(err))
		return 0
	}

	renewed := 0
	for _, account := range accounts {
		if account.Provider != authdomain.ProviderGoogle {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if w.renew(ctx, account.UserID) {
			renewed++
		}
	}
	w.logger.Info("gmail watches renewed", zap.Int("renewed", renewed))
	return renewed
}

func (w *WatchRenewer) renew(ctx context.Context, ownerID string) bool {
	res, err := w.credentials.Obtain(ctx, ownerID)
	if err != nil {
		w.logger.Warn("credential lookup failed", zap.String("user_id", ownerID), zap.Error(err))
		return false
	}
	if !res.State.Usable() || res.Credential == nil || res.Credential.Provider != authdomain.ProviderGoogle {
		w.logger.Warn("no usable gmail credential",
			zap.String("user_id", ownerID),
			zap.String("state", string(res.State)))
		return false
	}

	historyID, expires, err := w.watcher.Watch(ctx, res.Credential, w.topic)
	if err != nil {
		w.logger.Warn("gmail watch failed", zap.String("user_id", ownerID), zap.Error(err))
		return false
	}
	w.logger.Debug("gmail watch registered",
		zap.String("user_id", ownerID),
		zap.Uint64("history_id", historyID),
		zap.Time("expires", expires))
	return true
}
