package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	authrepo "jobtrack-backend/internal/auth/repository"
	"jobtrack-backend/internal/ingest/domain"
	"jobtrack-backend/internal/ingest/usecase"
)

// AutoSyncScheduler periodically runs a non-forced ingestion for every owner
// with a linked mailbox, one owner at a time.
type AutoSyncScheduler struct {
	accounts authrepo.AccountRepository
	ingest   usecase.IngestUsecase
	interval time.Duration
	logger   *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewAutoSyncScheduler(accounts authrepo.AccountRepository, ingest usecase.IngestUsecase, interval time.Duration, logger *zap.Logger) *AutoSyncScheduler {
	return &AutoSyncScheduler{
		accounts: accounts,
		ingest:   ingest,
		interval: interval,
		logger:   logger.Named("autosync"),
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduler loop. The first sweep runs after one interval
// so a restart does not hit every mailbox at once.
func (s *AutoSyncScheduler) Start(ctx context.Context) {
	s.logger.Info("starting auto-sync scheduler", zap.Duration("interval", s.interval))

	ctx, cancel := context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.SyncAll(ctx)
			case <-s.stopChan:
				s.logger.Info("scheduler stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()
}

// Stop ends the loop and waits for a sweep in progress to notice.
func (s *AutoSyncScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

// SyncAll runs one sweep. Failures for one owner are logged and do not stop
// the sweep.
func (s *AutoSyncScheduler) SyncAll(ctx context.Context) {
	accounts, err := s.accounts.ListAll(ctx)
	if err != nil {
		s.logger.Error("list linked accounts", zap.Error(err))
		return
	}

	seen := make(map[string]bool, len(accounts))
	var synced, failed int
	for _, account := range accounts {
		if seen[account.UserID] {
			continue
		}
		seen[account.UserID] = true

		if ctx.Err() != nil {
			return
		}

		res, err := s.ingest.Run(ctx, account.UserID, false)
		if err != nil {
			failed++
			s.logger.Warn("auto-sync failed",
				zap.String("user_id", account.UserID),
				zap.String("kind", string(domain.KindOf(err))),
				zap.Error(err))
			continue
		}
		synced++
		if res.Created > 0 || res.Updated > 0 {
			s.logger.Info("auto-sync found changes",
				zap.String("user_id", account.UserID),
				zap.Int("created", res.Created),
				zap.Int("updated", res.Updated))
		}
	}

	s.logger.Debug("auto-sync sweep done", zap.Int("owners", synced), zap.Int("failed", failed))
}
