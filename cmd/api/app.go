package api

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "jobtrack-backend/internal/auth/domain"
	authrepo "jobtrack-backend/internal/auth/repository"
	authusecase "jobtrack-backend/internal/auth/usecase"
	ingestdomain "jobtrack-backend/internal/ingest/domain"
	ingestrepo "jobtrack-backend/internal/ingest/repository"
	ingestusecase "jobtrack-backend/internal/ingest/usecase"
	trackerrepo "jobtrack-backend/internal/tracker/repository"
	trackerusecase "jobtrack-backend/internal/tracker/usecase"
	"jobtrack-backend/pkg/config"
	"jobtrack-backend/pkg/crypto"
	"jobtrack-backend/pkg/database"
	"jobtrack-backend/pkg/gmail"
	"jobtrack-backend/pkg/imap"
)

// App holds the wired services shared by every command.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB

	Accounts  authrepo.AccountRepository
	FCMTokens authrepo.FCMTokenRepository

	Gmail        *gmail.Opener
	Credentials  authusecase.CredentialRefresher
	Auth         authusecase.AuthUsecase
	AccountsUC   authusecase.AccountUsecase
	Applications trackerusecase.ApplicationUsecase
	Ingest       ingestusecase.IngestUsecase
}

// NewApp connects to the database and wires repositories and use cases.
// Push services are left to the serve command.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, err
	}

	var sealer *crypto.Sealer
	if cfg.IMAP.EncryptionKey != "" {
		sealer, err = crypto.NewSealer(cfg.IMAP.EncryptionKey)
		if err != nil {
			return nil, eris.Wrap(err, "app: imap sealer")
		}
	} else {
		logger.Warn("imap.encryption_key not set, IMAP accounts disabled")
	}

	accounts := authrepo.NewAccountRepository(db)
	fcmTokens := authrepo.NewFCMTokenRepository(db)

	gmailOpener := gmail.NewOpener(logger, gmail.WithRateLimit(cfg.Gmail.RequestsPerSecond, cfg.Gmail.Burst))
	openers := ingestdomain.ProviderOpeners{
		authdomain.ProviderGoogle: gmailOpener,
		authdomain.ProviderIMAP:   imap.NewOpener(logger),
	}

	credentials := authusecase.NewCredentialRefresher(accounts,
		authusecase.NewGoogleExchanger(cfg.Google.ClientID, cfg.Google.ClientSecret), sealer, logger)

	ingestCfg := ingestusecase.DefaultConfig()
	ingestCfg.MaxResults = cfg.Ingest.MaxResults
	ingestCfg.RecencyWindow = cfg.Ingest.RecencyWindow

	return &App{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		Accounts:     accounts,
		FCMTokens:    fcmTokens,
		Gmail:        gmailOpener,
		Credentials:  credentials,
		Auth:         authusecase.NewAuthUsecase(cfg.JWT.Secret),
		AccountsUC:   authusecase.NewAccountUsecase(accounts, fcmTokens, sealer, logger),
		Applications: trackerusecase.NewApplicationUsecase(trackerrepo.NewRepositories(db), logger),
		Ingest: ingestusecase.NewIngestUsecase(credentials, openers, ingestrepo.NewStore(db),
			trackerusecase.NewMerger(logger), ingestCfg, logger),
	}, nil
}

func (a *App) Migrate() error {
	return database.Migrate(a.DB, database.Models()...)
}

func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return eris.Wrap(err, "app: sql handle")
	}
	return sqlDB.Close()
}
