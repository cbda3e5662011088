package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables.
type Config struct {
	APIKey     string `envconfig:"FOOTBALL_DATA_API_KEY"`
	APIBaseURL string `envconfig:"API_BASE_URL" default:"https://api.football-data.org/v4"`

	Competitions []string `envconfig:"COMPETITIONS" default:"PL"`
	Teams        []string `envconfig:"TEAMS"`

	SquadDBPath string `envconfig:"SQUAD_DB_PATH" required:"true"`
	BackupDir   string `envconfig:"BACKUP_DIR" default:"data/backups"`
	LogoDir     string `envconfig:"LOGO_DIR" default:"data/assets/logos"`
	KitDir      string `envconfig:"KIT_DIR" default:"data/assets/kits"`
	LedgerPath  string `envconfig:"LEDGER_PATH" default:"assets.db"`

	ScrapeBaseURL string `envconfig:"SCRAPE_BASE_URL" default:"https://www.pesmaster.com"`

	MaxParallel int           `envconfig:"MAX_PARALLEL" default:"5"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`

	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"500ms"`
	RetryMaxDelay    time.Duration `envconfig:"RETRY_MAX_DELAY" default:"5s"`

	LogLevel          string `envconfig:"LOG_LEVEL" default:"INFO"`
	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`

	Telemetry struct {
		Enabled      bool   `split_words:"true" default:"true"`
		OTLPEndpoint string `envconfig:"TELEMETRY_OTLP_ENDPOINT"`
		BindAddress  string `split_words:"true" default:"127.0.0.1:9100"`
	}
}

// Team is one configured asset target, scoped to a competition.
type Team struct {
	CompetitionCode string
	Name            string
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	return &cfg, nil
}

// TeamList parses the TEAMS entries, each of the form "CODE:Team Name".
func (c *Config) TeamList() ([]Team, error) {
	teams := make([]Team, 0, len(c.Teams))

	for _, entry := range c.Teams {
		code, name, ok := strings.Cut(entry, ":")
		if !ok || code == "" || name == "" {
			return nil, fmt.Errorf("invalid team entry %q, want CODE:Team Name", entry)
		}

		teams = append(teams, Team{CompetitionCode: strings.TrimSpace(code), Name: strings.TrimSpace(name)})
	}

	return teams, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
