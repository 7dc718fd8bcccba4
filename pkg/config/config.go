package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// MinAutoSyncInterval is the floor applied to ingest.auto_sync_interval.
const MinAutoSyncInterval = 5 * time.Minute

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Google   GoogleConfig   `mapstructure:"google"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	Gmail    GmailConfig    `mapstructure:"gmail"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	IMAP     IMAPConfig     `mapstructure:"imap"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	FrontendURL string `mapstructure:"frontend_url"`
}

// DatabaseConfig selects the gorm dialector. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type GoogleConfig struct {
	ClientID           string `mapstructure:"client_id"`
	ClientSecret       string `mapstructure:"client_secret"`
	ProjectID          string `mapstructure:"project_id"`
	PubSubTopic        string `mapstructure:"pubsub_topic"`
	PubSubSubscription string `mapstructure:"pubsub_subscription"`
	CredentialsFile    string `mapstructure:"credentials_file"`
}

type FirebaseConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

// GmailConfig throttles calls made against the Gmail API per process.
type GmailConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type IngestConfig struct {
	MaxResults       int64         `mapstructure:"max_results"`
	RecencyWindow    time.Duration `mapstructure:"recency_window"`
	AutoSyncInterval time.Duration `mapstructure:"auto_sync_interval"`
}

type IMAPConfig struct {
	// EncryptionKey seals stored IMAP passwords. Any non-empty passphrase works.
	EncryptionKey string `mapstructure:"encryption_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads .env, an optional config.yaml in the working directory and the
// process environment, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "PORT", "SERVER_PORT"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.frontend_url", "http://localhost:3000")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.project_id", "")
	v.SetDefault("google.pubsub_topic", "gmail-updates")
	v.SetDefault("google.pubsub_subscription", "")
	v.SetDefault("google.credentials_file", "")
	v.SetDefault("firebase.credentials_file", "")
	v.SetDefault("gmail.requests_per_second", 5.0)
	v.SetDefault("gmail.burst", 5)
	v.SetDefault("ingest.max_results", 50)
	v.SetDefault("ingest.recency_window", "720h")
	v.SetDefault("ingest.auto_sync_interval", "30m")
	v.SetDefault("imap.encryption_key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Ingest.AutoSyncInterval < MinAutoSyncInterval {
		cfg.Ingest.AutoSyncInterval = MinAutoSyncInterval
	}
	if cfg.Google.PubSubSubscription == "" {
		cfg.Google.PubSubSubscription = shortName(cfg.Google.PubSubTopic) + "-sub"
	}

	return &cfg, nil
}

// Validate checks the settings every command needs to reach storage.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return eris.New("config: database.url is required")
	}
	return nil
}

// ValidateServer additionally checks what the HTTP API needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWT.Secret == "" {
		return eris.New("config: jwt.secret is required")
	}
	return nil
}

// TopicName returns the short Pub/Sub topic id even when a full resource name
// ("projects/p/topics/t") was configured.
func (c *Config) TopicName() string {
	return shortName(c.Google.PubSubTopic)
}

// TopicResource returns the full topic name Gmail watch requests expect.
func (c *Config) TopicResource() string {
	if strings.Contains(c.Google.PubSubTopic, "/") {
		return c.Google.PubSubTopic
	}
	return "projects/" + c.Google.ProjectID + "/topics/" + c.Google.PubSubTopic
}

func shortName(resource string) string {
	if parts := strings.Split(resource, "/"); len(parts) > 1 {
		return parts[len(parts)-1]
	}
	return resource
}
