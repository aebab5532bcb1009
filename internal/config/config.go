package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// SQLite
	DBPath string `json:"db_path"`

	// FreeScout (optional; contact id -> email resolution)
	FreeScout FreeScoutConfig `json:"freescout"`

	// Public base URL for survey links
	BaseURL string `json:"base_url"`

	// HTTP server
	ListenAddr string `json:"listen_addr"`
	AdminToken string `json:"admin_token"`

	// Email gateway
	Email EmailConfig `json:"email"`

	// Broadcast webhook
	BroadcastURL     string        `json:"broadcast_url"`
	BroadcastTimeout time.Duration `json:"broadcast_timeout"`

	// Sweep cadence in serve mode
	SweepInterval time.Duration `json:"sweep_interval"`

	// Cleanup
	RetentionDays int  `json:"retention_days"`
	AutoVacuum    bool `json:"auto_vacuum"`

	// Operational
	DryRun           bool   `json:"dry_run"`
	Verbose          bool   `json:"verbose"`
	LogFormat        string `json:"log_format"`
	Stats            bool   `json:"stats"`
	Serve            bool   `json:"-"`
	CheckConnections bool   `json:"-"`
	InitDB           bool   `json:"-"`
	StatsOnly        bool   `json:"-"`
	Cleanup          bool   `json:"-"`
	ShowVersion      bool   `json:"-"`
}

type FreeScoutConfig struct {
	DSN     string        `json:"dsn"`
	Timeout time.Duration `json:"timeout"`
}

type EmailConfig struct {
	GatewayURL    string        `json:"gateway_url"`
	Timeout       time.Duration `json:"timeout"`
	RetryAttempts int           `json:"retry_attempts"`
}

func ParseFlags() *Config {
	cfg := &Config{}

	configFile := flag.String("config-file", "", "Path to JSON configuration file")

	// SQLite flags
	flag.StringVar(&cfg.DBPath, "db-path", "./nps.db", "Path to SQLite database")

	// FreeScout flags
	flag.StringVar(&cfg.FreeScout.DSN, "freescout-dsn", "", "FreeScout database DSN for contact email resolution (optional)")
	flag.DurationVar(&cfg.FreeScout.Timeout, "freescout-timeout", 30*time.Second, "FreeScout connection timeout")

	// Survey link base URL
	flag.StringVar(&cfg.BaseURL, "base-url", "https://support.example.com", "Public base URL for survey links (required)")

	// HTTP server flags
	flag.StringVar(&cfg.ListenAddr, "listen-addr", ":8087", "Address for -serve mode")
	flag.StringVar(&cfg.AdminToken, "admin-token", "", "Bearer token for the admin API (required in -serve mode)")

	// Email gateway flags
	flag.StringVar(&cfg.Email.GatewayURL, "email-gateway", "", "Email gateway URL (empty: delivery treated as success)")
	flag.DurationVar(&cfg.Email.Timeout, "email-timeout", 10*time.Second, "Email gateway request timeout")
	flag.IntVar(&cfg.Email.RetryAttempts, "email-retry-attempts", 3, "Email gateway retry attempts")

	// Broadcast flags
	flag.StringVar(&cfg.BroadcastURL, "broadcast-webhook", "", "Platform broadcast webhook URL (optional)")
	flag.DurationVar(&cfg.BroadcastTimeout, "broadcast-timeout", 5*time.Second, "Broadcast request timeout")

	// Sweep cadence
	flag.DurationVar(&cfg.SweepInterval, "sweep-interval", time.Hour, "Queue sweep interval in -serve mode")

	// Cleanup flags
	flag.IntVar(&cfg.RetentionDays, "retention-days", 90, "Days to retain delivered/skipped/failed survey records")
	flag.BoolVar(&cfg.AutoVacuum, "auto-vacuum", false, "Automatically vacuum database after cleanup")

	// Operational flags
	flag.BoolVar(&cfg.DryRun, "dry-run", false, "Report due surveys without sending or transitioning them")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")
	flag.StringVar(&cfg.LogFormat, "log-format", "text", "Log format (text or json)")
	flag.BoolVar(&cfg.Stats, "stats", false, "Print statistics at end")
	flag.BoolVar(&cfg.Serve, "serve", false, "Run the HTTP server and periodic sweeper (default: single sweep and exit)")
	flag.BoolVar(&cfg.CheckConnections, "check-connections", false, "Test connections and exit")
	flag.BoolVar(&cfg.InitDB, "init-db", false, "Initialize database and default settings, then exit")
	flag.BoolVar(&cfg.StatsOnly, "stats-only", false, "Print statistics and exit")
	flag.BoolVar(&cfg.Cleanup, "cleanup", false, "Clean up old records and exit")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	flag.Parse()

	if *configFile != "" {
		if err := cfg.LoadFromFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
			os.Exit(1)
		}
	}

	return cfg
}

func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations in the file may be strings like "2h"; decode through the
	// wrapper type first.
	var file fileConfig
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	file.apply(c)

	return nil
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("--base-url is required")
	}

	if c.FreeScout.DSN != "" {
		if err := validateDSN(c.FreeScout.DSN); err != nil {
			return fmt.Errorf("invalid DSN: %w", err)
		}
	}

	if c.Serve && c.AdminToken == "" {
		return fmt.Errorf("--admin-token is required in -serve mode")
	}

	if c.Serve && c.SweepInterval < time.Minute {
		return fmt.Errorf("--sweep-interval must be at least 1m")
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("--log-format must be text or json")
	}

	return nil
}

// validateDSN performs basic sanity checks on the MySQL DSN format.
func validateDSN(dsn string) error {
	if !strings.Contains(dsn, "@") || !strings.Contains(dsn, "/") {
		return fmt.Errorf("DSN must be in format 'user:password@tcp(host:port)/database?options'")
	}
	if strings.HasPrefix(dsn, "tcp://") {
		return fmt.Errorf("DSN should not include 'tcp://' scheme, use format: 'user:password@tcp(host:port)/database'")
	}
	return nil
}
