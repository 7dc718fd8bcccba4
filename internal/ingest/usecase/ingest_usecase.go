package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	authdomain "jobtrack-backend/internal/auth/domain"
	authusecase "jobtrack-backend/internal/auth/usecase"
	"jobtrack-backend/internal/ingest/domain"
	"jobtrack-backend/internal/ingest/repository"
	trackerdomain "jobtrack-backend/internal/tracker/domain"
	trackerusecase "jobtrack-backend/internal/tracker/usecase"
	"jobtrack-backend/pkg/jobsignal"
	"jobtrack-backend/pkg/mailtext"
)

// Recruiting traffic filters. Providers OR the subject and sender groups.
var (
	DefaultSubjectKeywords = []string{
		"application",
		"applying",
		"interview",
		"assessment",
		"offer",
		"candidacy",
		"next steps",
	}
	DefaultSenderKeywords = []string{
		"careers",
		"recruiting",
		"talent",
		"jobs",
		"greenhouse",
		"lever",
		"workday",
		"ashbyhq",
	}
)

const (
	DefaultMaxResults    = 50
	DefaultRecencyWindow = 30 * 24 * time.Hour
	DefaultRunTimeout    = 10 * time.Minute
)

type Config struct {
	MaxResults      int64
	RecencyWindow   time.Duration
	SubjectKeywords []string
	SenderKeywords  []string
	// RunTimeout bounds one batch independently of the callers waiting on it.
	RunTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxResults:      DefaultMaxResults,
		RecencyWindow:   DefaultRecencyWindow,
		SubjectKeywords: DefaultSubjectKeywords,
		SenderKeywords:  DefaultSenderKeywords,
		RunTimeout:      DefaultRunTimeout,
	}
}

// Notifier is told about every committed merge that created or advanced an
// application.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, change domain.StatusChange) error
}

// IngestUsecase runs ingestion batches. Run returns the counts gathered so
// far together with the error when a batch aborts; messages committed before
// the abort stay committed.
type IngestUsecase interface {
	Run(ctx context.Context, ownerID string, force bool) (domain.Result, error)
	// History lists the owner's most recent ledger entries.
	History(ctx context.Context, ownerID string, limit int) (*History, error)
	SetNotifier(n Notifier)
}

type History struct {
	Events          []domain.EmailEvent
	LastProcessedAt *time.Time
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

type ingestUsecase struct {
	credentials authusecase.CredentialRefresher
	mailboxes   domain.MailboxOpener
	store       repository.Store
	merger      *trackerusecase.Merger
	cfg         Config
	logger      *zap.Logger
	now         func() time.Time

	flightsMu sync.Mutex
	flights   map[string]*flight

	notifierMu sync.RWMutex
	notifier   Notifier
}

func NewIngestUsecase(credentials authusecase.CredentialRefresher, mailboxes domain.MailboxOpener, store repository.Store, merger *trackerusecase.Merger, cfg Config, logger *zap.Logger) IngestUsecase {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	return &ingestUsecase{
		credentials: credentials,
		mailboxes:   mailboxes,
		store:       store,
		merger:      merger,
		cfg:         cfg,
		logger:      logger.Named("ingest"),
		now:         time.Now,
		flights:     map[string]*flight{},
	}
}

// SetNotifier wires status-change notifications after creation.
func (u *ingestUsecase) SetNotifier(n Notifier) {
	u.notifierMu.Lock()
	defer u.notifierMu.Unlock()
	u.notifier = n
}

// flight is one batch shared by every caller that triggered it while it
// ran. Its context is detached from any single caller: it ends on timeout or
// once every caller waiting on it has gone away.
type flight struct {
	context.Context
	cancel context.CancelFunc
	done   chan struct{}

	result domain.Result
	err    error

	mu      sync.Mutex
	callers []context.Context
}

func newFlight(parent context.Context, timeout time.Duration) *flight {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)
	return &flight{Context: ctx, cancel: cancel, done: make(chan struct{})}
}

// Err also reports cancellation as soon as the last caller is gone, without
// waiting for Done to be closed.
func (f *flight) Err() error {
	if err := f.Context.Err(); err != nil {
		return err
	}
	if f.abandoned() {
		return context.Canceled
	}
	return nil
}

func (f *flight) join(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callers = append(f.callers, ctx)
}

func (f *flight) abandoned() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.callers {
		if c.Err() == nil {
			return false
		}
	}
	return len(f.callers) > 0
}

func (u *ingestUsecase) Run(ctx context.Context, ownerID string, force bool) (domain.Result, error) {
	if ownerID == "" {
		return domain.Result{}, domain.Errorf(domain.KindUnauthorized, "no authenticated owner")
	}

	// Overlapping triggers for the same owner and mode share one batch.
	key := ownerID + ":" + strconv.FormatBool(force)
	u.flightsMu.Lock()
	f, shared := u.flights[key]
	if !shared {
		f = newFlight(ctx, u.cfg.RunTimeout)
		u.flights[key] = f
		go u.fly(key, f, ownerID, force)
	}
	f.join(ctx)
	u.flightsMu.Unlock()

	if shared {
		u.logger.Debug("joined running ingestion", zap.String("user_id", ownerID), zap.Bool("force", force))
	}

	stop := context.AfterFunc(ctx, func() {
		if f.abandoned() {
			f.cancel()
		}
	})
	defer stop()

	select {
	case <-f.done:
	case <-ctx.Done():
		if !f.abandoned() {
			// Others still wait on the batch; only this caller leaves.
			return domain.Result{}, domain.NewError(domain.KindCanceled, "ingestion canceled", ctx.Err())
		}
		<-f.done
	}
	return f.result, f.err
}

func (u *ingestUsecase) fly(key string, f *flight, ownerID string, force bool) {
	defer f.cancel()
	f.result, f.err = u.run(f, ownerID, force)

	u.flightsMu.Lock()
	delete(u.flights, key)
	u.flightsMu.Unlock()
	close(f.done)
}

func (u *ingestUsecase) run(ctx context.Context, ownerID string, force bool) (domain.Result, error) {
	start := u.now()
	logger := u.logger.With(zap.String("user_id", ownerID), zap.Bool("force", force))

	cred, err := u.credential(ctx, ownerID)
	if err != nil {
		logger.Warn("ingestion not started", zap.String("kind", string(domain.KindOf(err))), zap.Error(err))
		return domain.Result{}, err
	}

	mailbox, err := u.mailboxes.Open(ctx, cred)
	if err != nil {
		return domain.Result{}, providerFailure(ctx, "open mailbox", err)
	}
	defer func() {
		if err := mailbox.Close(); err != nil {
			logger.Debug("close mailbox", zap.Error(err))
		}
	}()

	ids, err := mailbox.ListMessageIDs(ctx, u.query(force), u.cfg.MaxResults)
	if err != nil {
		err = providerFailure(ctx, "list messages", err)
		logger.Warn("listing messages failed", zap.Error(err))
		return domain.Result{}, err
	}

	var result domain.Result
	for _, id := range ids {
		if ctx.Err() != nil {
			return result, canceled(ctx, result, logger)
		}

		if !force {
			seen, err := u.store.Events().HasProcessed(ctx, ownerID, id)
			if err != nil {
				return result, u.internal(ctx, "ledger lookup", err)
			}
			if seen {
				continue
			}
		}

		result.Scanned++

		msg, err := mailbox.GetMessage(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return result, canceled(ctx, result, logger)
			}
			// A revoked token fails every remaining fetch the same way.
			if domain.KindOf(err) == domain.KindCredentialRefreshFailed {
				return result, err
			}
			logger.Warn("skipping message", zap.String("external_id", id), zap.Error(err))
			continue
		}

		merged, err := u.apply(ctx, ownerID, msg, force)
		if err != nil {
			return result, u.internal(ctx, "apply message", err)
		}

		switch {
		case merged.Created():
			result.Created++
		case merged.Updated():
			result.Updated++
		default:
			continue
		}
		u.notify(ctx, ownerID, msg, merged)
	}

	logger.Info("ingestion finished",
		zap.Int("listed", len(ids)),
		zap.Int("scanned", result.Scanned),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Duration("took", u.now().Sub(start)))
	return result, nil
}

// apply classifies msg and commits its ledger entry and merge together.
func (u *ingestUsecase) apply(ctx context.Context, ownerID string, msg *domain.ExternalMessage, force bool) (trackerusecase.MergeResult, error) {
	extracted := mailtext.Extract(msg.Body)
	var detected *trackerdomain.Signal
	if signal, ok := jobsignal.Classify(jobsignal.Input{
		Subject: msg.Subject,
		Sender:  msg.Sender,
		Snippet: msg.Snippet,
		Body:    extracted.Text(),
	}); ok {
		detected = &signal
	}

	var merged trackerusecase.MergeResult
	err := u.store.Transaction(ctx, func(tx repository.Store) error {
		event := domain.NewEmailEvent(ownerID, msg, detected, u.now())
		if err := tx.Events().Record(ctx, event); err != nil {
			return err
		}
		if detected == nil {
			return nil
		}
		var err error
		merged, err = u.merger.Merge(ctx, tx.Tracker(), trackerusecase.MergeInput{
			OwnerID:    ownerID,
			Signal:     *detected,
			Subject:    msg.Subject,
			ExternalID: msg.ExternalID,
			ReceivedAt: msg.ReceivedAt,
			Force:      force,
		})
		return err
	})
	if err != nil {
		return trackerusecase.MergeResult{}, err
	}
	if detected == nil {
		merged.Outcome = trackerusecase.MergeSkipped
	}
	return merged, nil
}

func (u *ingestUsecase) History(ctx context.Context, ownerID string, limit int) (*History, error) {
	if ownerID == "" {
		return nil, domain.Errorf(domain.KindUnauthorized, "no authenticated owner")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	events, err := u.store.Events().ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, domain.NewError(domain.KindInternal, "list history failed", err)
	}
	last, err := u.store.Events().LastProcessedAt(ctx, ownerID)
	if err != nil {
		return nil, domain.NewError(domain.KindInternal, "list history failed", err)
	}
	return &History{Events: events, LastProcessedAt: last}, nil
}

func (u *ingestUsecase) credential(ctx context.Context, ownerID string) (*authdomain.Credential, error) {
	res, err := u.credentials.Obtain(ctx, ownerID)
	if err != nil {
		return nil, u.internal(ctx, "credential lookup", err)
	}
	switch res.State {
	case authdomain.CredentialNoAccount:
		return nil, domain.Errorf(domain.KindNoLinkedAccount, "no mailbox account is linked")
	case authdomain.CredentialRefreshFailed:
		return nil, domain.Errorf(domain.KindCredentialRefreshFailed, "mailbox access has expired, reconnect the account")
	}
	if !res.State.Usable() || res.Credential == nil {
		return nil, domain.Errorf(domain.KindInternal, "credential lookup ended in state %s", res.State)
	}
	return res.Credential, nil
}

func (u *ingestUsecase) query(force bool) domain.SearchQuery {
	q := domain.SearchQuery{
		NewerThan:       u.cfg.RecencyWindow,
		SubjectKeywords: u.cfg.SubjectKeywords,
		SenderKeywords:  u.cfg.SenderKeywords,
	}
	if force {
		q.NewerThan = 0
	}
	return q
}

func (u *ingestUsecase) notify(ctx context.Context, ownerID string, msg *domain.ExternalMessage, merged trackerusecase.MergeResult) {
	u.notifierMu.RLock()
	notifier := u.notifier
	u.notifierMu.RUnlock()
	if notifier == nil || merged.Application == nil {
		return
	}

	change := domain.StatusChange{
		OwnerID:       ownerID,
		ApplicationID: merged.Application.ID,
		From:          merged.Previous,
		To:            merged.Application.Status,
		Subject:       msg.Subject,
		Created:       merged.Created(),
	}
	if merged.Company != nil {
		change.Company = merged.Company.Name
	}
	if merged.Job != nil {
		change.Position = merged.Job.Title
	}
	if err := notifier.NotifyStatusChange(ctx, change); err != nil {
		u.logger.Warn("status change notification failed",
			zap.String("user_id", ownerID),
			zap.String("application_id", change.ApplicationID),
			zap.Error(err))
	}
}

func (u *ingestUsecase) internal(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return domain.NewError(domain.KindCanceled, "ingestion canceled", ctx.Err())
	}
	u.logger.Error(op+" failed", zap.Error(err))
	return domain.NewError(domain.KindInternal, op+" failed", err)
}

// providerFailure keeps a kind the mailbox already assigned and reports
// anything else as a failed provider request.
func providerFailure(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return domain.NewError(domain.KindCanceled, "ingestion canceled", ctx.Err())
	}
	var kinded *domain.Error
	if errors.As(err, &kinded) {
		return err
	}
	return domain.NewError(domain.KindProviderRequestFailed, op+" failed", err)
}

func canceled(ctx context.Context, result domain.Result, logger *zap.Logger) error {
	logger.Info("ingestion canceled",
		zap.Int("scanned", result.Scanned),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated))
	return domain.NewError(domain.KindCanceled, "ingestion canceled", ctx.Err())
}
