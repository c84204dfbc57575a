package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"statement-reconciliation-backend/internal/config"
)

const (
	keyTenant = "tenant"
	keyOutput = "output"
)

var (
	cfgFile string
	version = "dev"
	commit  = "unknown"
	date    = "unknown"

	v = config.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Bank statement reconciliation operator tool",
	Long: `Reconciler imports bank statements and reconciles them against bookings
using the same database as the HTTP service.

Examples:
  reconciler import --tenant 3f0c... --file january.csv
  reconciler automatch --tenant 3f0c... --batch 0190...
  reconciler summary --tenant 3f0c... --from 2025-01-01 --to 2025-01-31
  reconciler batches --tenant 3f0c... --output json`,
	Version:       getVersionString(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (optional)")
	flags.String("database-url", "", "Postgres connection string (env RECON_DATABASE_URL)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")
	flags.String("tenant", "", "tenant id (required)")
	flags.StringP("output", "o", "text", "output format: text, json")

	// Operators want import and report output, not request chatter.
	v.SetDefault(config.KeyLogLevel, "warn")

	_ = v.BindPFlag(config.KeyDatabaseURL, flags.Lookup("database-url"))
	_ = v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = v.BindPFlag(keyTenant, flags.Lookup("tenant"))
	_ = v.BindPFlag(keyOutput, flags.Lookup("output"))
}

// initConfig reads the .env file, an optional config file and environment
// variables.
func initConfig() {
	config.LoadDotEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		cobra.CheckErr(v.ReadInConfig())
	}
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(ver, c, d string) {
	version = ver
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}

func tenantFlag() (uuid.UUID, error) {
	raw := v.GetString(keyTenant)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--tenant is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid tenant id %q", raw)
	}
	return id, nil
}

func outputFlag() (string, error) {
	switch out := v.GetString(keyOutput); out {
	case "text", "json":
		return out, nil
	default:
		return "", fmt.Errorf("invalid output format %q, expected text or json", out)
	}
}

func parseDateFlag(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q, expected YYYY-MM-DD", name, raw)
	}
	return &t, nil
}
