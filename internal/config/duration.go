package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration accepts JSON durations as either nanosecond numbers or strings
// like "30s" and "2h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case nil:
		return nil
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration format '%s': %w", value, err)
		}
		return nil
	default:
		return fmt.Errorf("invalid duration value: %v", value)
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d Duration) String() string {
	return d.Duration.String()
}

// fileConfig mirrors Config for the JSON config file, with flexible
// duration fields. Zero values leave the flag-provided value in place.
type fileConfig struct {
	DBPath string `json:"db_path"`

	FreeScout struct {
		DSN     string   `json:"dsn"`
		Timeout Duration `json:"timeout"`
	} `json:"freescout"`

	BaseURL    string `json:"base_url"`
	ListenAddr string `json:"listen_addr"`
	AdminToken string `json:"admin_token"`

	Email struct {
		GatewayURL    string   `json:"gateway_url"`
		Timeout       Duration `json:"timeout"`
		RetryAttempts int      `json:"retry_attempts"`
	} `json:"email"`

	BroadcastURL     string   `json:"broadcast_url"`
	BroadcastTimeout Duration `json:"broadcast_timeout"`
	SweepInterval    Duration `json:"sweep_interval"`

	RetentionDays int    `json:"retention_days"`
	AutoVacuum    *bool  `json:"auto_vacuum"`
	DryRun        *bool  `json:"dry_run"`
	Verbose       *bool  `json:"verbose"`
	LogFormat     string `json:"log_format"`
}

func (f fileConfig) apply(c *Config) {
	if f.DBPath != "" {
		c.DBPath = f.DBPath
	}
	if f.FreeScout.DSN != "" {
		c.FreeScout.DSN = f.FreeScout.DSN
	}
	if f.FreeScout.Timeout.Duration > 0 {
		c.FreeScout.Timeout = f.FreeScout.Timeout.Duration
	}
	if f.BaseURL != "" {
		c.BaseURL = f.BaseURL
	}
	if f.ListenAddr != "" {
		c.ListenAddr = f.ListenAddr
	}
	if f.AdminToken != "" {
		c.AdminToken = f.AdminToken
	}
	if f.Email.GatewayURL != "" {
		c.Email.GatewayURL = f.Email.GatewayURL
	}
	if f.Email.Timeout.Duration > 0 {
		c.Email.Timeout = f.Email.Timeout.Duration
	}
	if f.Email.RetryAttempts > 0 {
		c.Email.RetryAttempts = f.Email.RetryAttempts
	}
	if f.BroadcastURL != "" {
		c.BroadcastURL = f.BroadcastURL
	}
	if f.BroadcastTimeout.Duration > 0 {
		c.BroadcastTimeout = f.BroadcastTimeout.Duration
	}
	if f.SweepInterval.Duration > 0 {
		c.SweepInterval = f.SweepInterval.Duration
	}
	if f.RetentionDays > 0 {
		c.RetentionDays = f.RetentionDays
	}
	if f.AutoVacuum != nil {
		c.AutoVacuum = *f.AutoVacuum
	}
	if f.DryRun != nil {
		c.DryRun = *f.DryRun
	}
	if f.Verbose != nil {
		c.Verbose = *f.Verbose
	}
	if f.LogFormat != "" {
		c.LogFormat = f.LogFormat
	}
}
