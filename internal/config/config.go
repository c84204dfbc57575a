package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"statement-reconciliation-backend/internal/services/matching"
	"statement-reconciliation-backend/pkg/logger"
)

const EnvPrefix = "RECON"

// Keys read from the environment (RECON_<KEY>) or bound CLI flags.
const (
	KeyDatabaseURL       = "database_url"
	KeyHTTPAddr          = "http_addr"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	KeyCORSOrigins       = "cors_origins"
	KeyMatchMinScore     = "match_min_score"
	KeyMatchSuggestScore = "match_suggest_score"
	KeyMatchWindowDays   = "match_window_days"
	KeyMatchWorkers      = "match_workers"
)

type Config struct {
	DatabaseURL string
	HTTPAddr    string
	LogLevel    string
	LogFormat   logger.Format
	CORSOrigins []string
	Matching    matching.Config
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are not an error; variables already set win.
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

func SetDefaults(v *viper.Viper) {
	m := matching.DefaultConfig()

	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
	v.SetDefault(KeyCORSOrigins, "http://localhost:3000")
	v.SetDefault(KeyMatchMinScore, m.MinScore)
	v.SetDefault(KeyMatchSuggestScore, m.SuggestScore)
	v.SetDefault(KeyMatchWindowDays, m.CandidateWindowDays)
	v.SetDefault(KeyMatchWorkers, m.Workers)
}

// Load reads the configuration out of v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	m := matching.DefaultConfig()
	m.MinScore = v.GetInt(KeyMatchMinScore)
	m.SuggestScore = v.GetInt(KeyMatchSuggestScore)
	m.CandidateWindowDays = v.GetInt(KeyMatchWindowDays)
	m.Workers = v.GetInt(KeyMatchWorkers)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}

	cfg := &Config{
		DatabaseURL: strings.TrimSpace(v.GetString(KeyDatabaseURL)),
		HTTPAddr:    v.GetString(KeyHTTPAddr),
		LogLevel:    v.GetString(KeyLogLevel),
		LogFormat:   logger.Format(strings.ToLower(v.GetString(KeyLogFormat))),
		CORSOrigins: splitList(v.GetString(KeyCORSOrigins)),
		Matching:    m,
	}

	switch cfg.LogFormat {
	case logger.TextFormat, logger.JSONFormat:
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	return cfg, nil
}

func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.LogLevel
	lc.Format = c.LogFormat
	return lc
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
