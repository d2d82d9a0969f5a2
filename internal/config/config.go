// Package config loads application configuration and initializes logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Feeds    FeedsConfig    `yaml:"feeds" mapstructure:"feeds"`
	Sheets   SheetsConfig   `yaml:"sheets" mapstructure:"sheets"`
	Airtable AirtableConfig `yaml:"airtable" mapstructure:"airtable"`
	Sync     SyncConfig     `yaml:"sync" mapstructure:"sync"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the document store backend.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// FeedsConfig names the two tier feed documents.
type FeedsConfig struct {
	Tier1URL string `yaml:"tier1_url" mapstructure:"tier1_url"`
	Tier2URL string `yaml:"tier2_url" mapstructure:"tier2_url"`
}

// SheetsConfig holds spreadsheet API credentials and append targets.
type SheetsConfig struct {
	Token                  string `yaml:"token" mapstructure:"token"`
	InventorySpreadsheetID string `yaml:"inventory_spreadsheet_id" mapstructure:"inventory_spreadsheet_id"`
	InventoryRange         string `yaml:"inventory_range" mapstructure:"inventory_range"`
	DuplicateSpreadsheetID string `yaml:"duplicate_spreadsheet_id" mapstructure:"duplicate_spreadsheet_id"`
	DuplicateRange         string `yaml:"duplicate_range" mapstructure:"duplicate_range"`
}

// AirtableConfig holds the Airtable API key, the shared table name, and
// the base IDs keyed by the lowercased base name the tier-1 feed uses.
type AirtableConfig struct {
	Key   string            `yaml:"key" mapstructure:"key"`
	Table string            `yaml:"table" mapstructure:"table"`
	Bases map[string]string `yaml:"bases" mapstructure:"bases"`
}

// SyncConfig bounds the sync stage.
type SyncConfig struct {
	// MaxRecords caps how many records one run routes; the rest wait for
	// the next run.
	MaxRecords int `yaml:"max_records" mapstructure:"max_records"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FEEDBACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "feedback.db")
	v.SetDefault("sheets.inventory_range", "A1:A50000")
	v.SetDefault("sheets.duplicate_range", "A1:D50000")
	v.SetDefault("airtable.table", "Page feedback")
	v.SetDefault("sync.max_records", 150)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields every run needs before any stage starts.
func (c *Config) Validate() error {
	switch {
	case c.Feeds.Tier1URL == "":
		return eris.New("config: feeds.tier1_url is required")
	case c.Feeds.Tier2URL == "":
		return eris.New("config: feeds.tier2_url is required")
	case c.Sheets.Token == "":
		return eris.New("config: sheets.token is required")
	case c.Sheets.InventorySpreadsheetID == "":
		return eris.New("config: sheets.inventory_spreadsheet_id is required")
	case c.Sheets.DuplicateSpreadsheetID == "":
		return eris.New("config: sheets.duplicate_spreadsheet_id is required")
	case c.Airtable.Key == "":
		return eris.New("config: airtable.key is required")
	case c.Airtable.Table == "":
		return eris.New("config: airtable.table is required")
	case c.Sync.MaxRecords <= 0:
		return eris.New("config: sync.max_records must be positive")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
