// Package config loads the fanrelay configuration: the core bot runtime
// settings plus database, storage, relay and reminder sections.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/fanrelay/core/config"
	coredatabase "github.com/m3rciful/fanrelay/core/database"
	"github.com/m3rciful/fanrelay/internal/relay"
	"github.com/m3rciful/fanrelay/internal/scheduler"
	"github.com/m3rciful/fanrelay/internal/storage"
)

// StorageConfig selects the persistence driver.
type StorageConfig struct {
	Driver     string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// RelayConfig holds the operator settings of the relay engine.
type RelayConfig struct {
	AdminIDs       []int64 `yaml:"admin_ids" envconfig:"RELAY_ADMIN_IDS"`
	PaymentContact string  `yaml:"payment_contact" envconfig:"RELAY_PAYMENT_CONTACT"`
	RelayContact   string  `yaml:"relay_contact" envconfig:"RELAY_CONTACT"`
	BotName        string  `yaml:"bot_name" envconfig:"RELAY_BOT_NAME"`
	AdminLabel     string  `yaml:"admin_label" envconfig:"RELAY_ADMIN_LABEL"`
	Price          string  `yaml:"price" envconfig:"RELAY_PRICE"`
	// TermDays is the subscription length; 0 -> 30.
	TermDays int `yaml:"term_days" envconfig:"RELAY_TERM_DAYS"`
	// RemindWithinDays is the reminder window; 0 -> 3.
	RemindWithinDays int `yaml:"remind_within_days" envconfig:"RELAY_REMIND_WITHIN_DAYS"`
	// BroadcastRate caps batch sends per second; 0 disables pacing.
	BroadcastRate float64 `yaml:"broadcast_rate" envconfig:"RELAY_BROADCAST_RATE"`
}

// RemindersConfig controls the automatic reminder sweep.
type RemindersConfig struct {
	// Schedule is a cron spec; empty disables automatic sweeps.
	Schedule       string `yaml:"schedule" envconfig:"REMINDERS_SCHEDULE"`
	Timezone       string `yaml:"timezone" envconfig:"REMINDERS_TIMEZONE"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"REMINDERS_TIMEOUT_SECONDS"`

	loc *time.Location
}

// Location returns the parsed timezone, UTC when unset.
func (r RemindersConfig) Location() *time.Location {
	if r.loc == nil {
		return time.UTC
	}
	return r.loc
}

// Timeout bounds one automatic sweep.
func (r RemindersConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Config is the application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database  coredatabase.Config `yaml:"database"`
	Storage   StorageConfig       `yaml:"storage"`
	Relay     RelayConfig         `yaml:"relay"`
	Reminders RemindersConfig     `yaml:"reminders"`
}

// CoreConfig exposes the bot runtime section.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = storage.DriverPostgres
	case storage.DriverPostgres, storage.DriverSQLite, storage.DriverMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: postgres, sqlite, memory", c.Storage.Driver)
	}
	if c.Storage.Driver == storage.DriverPostgres {
		c.Database.Normalize()
	}
	if c.Storage.SQLitePath = strings.TrimSpace(c.Storage.SQLitePath); c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/fanrelay.db"
	}

	r := &c.Relay
	switch {
	case r.TermDays < 0:
		return fmt.Errorf("relay.term_days must be > 0")
	case r.TermDays == 0:
		r.TermDays = 30
	}
	switch {
	case r.RemindWithinDays < 0:
		return fmt.Errorf("relay.remind_within_days must be >= 0")
	case r.RemindWithinDays == 0:
		r.RemindWithinDays = 3
	}
	if r.BroadcastRate < 0 {
		return fmt.Errorf("relay.broadcast_rate must be >= 0")
	}
	r.PaymentContact = strings.TrimSpace(r.PaymentContact)
	r.RelayContact = strings.TrimSpace(r.RelayContact)

	rem := &c.Reminders
	rem.Schedule = strings.TrimSpace(rem.Schedule)
	if rem.Schedule != "" {
		if err := scheduler.Validate(rem.Schedule); err != nil {
			return fmt.Errorf("reminders.schedule: %w", err)
		}
	}
	if tz := strings.TrimSpace(rem.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid reminders.timezone %q: %w", rem.Timezone, err)
		}
		rem.loc = loc
	}
	if rem.TimeoutSeconds < 0 {
		return fmt.Errorf("reminders.timeout_seconds must be >= 0")
	}
	if rem.TimeoutSeconds == 0 {
		rem.TimeoutSeconds = 300
	}
	return nil
}

// Warnings lists settings that are legal but probably unintended.
func (c *Config) Warnings() []string {
	var out []string
	if len(c.Relay.AdminIDs) == 0 {
		out = append(out, "relay.admin_ids is empty; admin commands are unavailable")
	}
	if c.Relay.PaymentContact == "" {
		out = append(out, "relay.payment_contact is empty")
	}
	if c.Relay.RelayContact == "" {
		out = append(out, "relay.relay_contact is empty")
	}
	return out
}

// RelayEngineConfig converts the relay and reminder sections for relay.New.
func (c *Config) RelayEngineConfig() relay.Config {
	return relay.Config{
		AdminIDs:         append([]int64(nil), c.Relay.AdminIDs...),
		PaymentContact:   c.Relay.PaymentContact,
		RelayContact:     c.Relay.RelayContact,
		BotName:          c.Relay.BotName,
		AdminLabel:       c.Relay.AdminLabel,
		Price:            c.Relay.Price,
		TermDays:         c.Relay.TermDays,
		RemindWithinDays: c.Relay.RemindWithinDays,
		BroadcastRate:    c.Relay.BroadcastRate,
		Location:         c.Reminders.Location(),
	}
}
