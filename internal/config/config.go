package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gyeh/ehiledger/internal/ledger"
)

// Config holds all runtime configuration for an ehiledger run.
type Config struct {
	DSN          string
	LogFormat    string `validate:"oneof=text json"` // "text" or "json"
	LogLevel     string `validate:"oneof=debug info warn error"`
	InputPath    string
	VisitMapPath string
	DBPath       string // SQLite export database
	OutPath      string // report JSON
	CleanPath    string // Clean Projection JSON
	ParquetPath  string
	TSVDir       string
	SchemaDir    string
	Source       string
	Workers      int `validate:"min=1,max=64"`
	DryRun       bool
	Policy       ledger.Policy
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	ActionRules      []ledger.ActionRule `yaml:"action_rules"`
	DefaultSign      int                 `yaml:"default_sign"`
	RejectedStatuses []string            `yaml:"rejected_statuses"`
	Workers          int                 `yaml:"workers"`
	Source           string              `yaml:"source"`
}

var validate = validator.New()

// Default returns a Config with the built-in policy and a single worker.
func Default() Config {
	return Config{
		LogFormat: "text",
		LogLevel:  "info",
		Workers:   1,
		Policy:    ledger.DefaultPolicy(),
	}
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// Keys left out of the file keep their current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if len(yc.ActionRules) > 0 {
		c.Policy.Rules = yc.ActionRules
	}
	if yc.DefaultSign != 0 {
		c.Policy.DefaultSign = yc.DefaultSign
	}
	if len(yc.RejectedStatuses) > 0 {
		c.Policy.RejectedStatuses = yc.RejectedStatuses
	}
	if yc.Workers != 0 {
		c.Workers = yc.Workers
	}
	if yc.Source != "" {
		c.Source = yc.Source
	}
	if err := validate.Struct(c.Policy); err != nil {
		return fmt.Errorf("invalid policy in %s: %w", path, err)
	}
	return nil
}

// Validate checks the fields shared by every command.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateInput checks the input document and optional visit map.
func (c *Config) ValidateInput() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.InputPath == "" {
		return fmt.Errorf("--in is required")
	}
	if _, err := os.Stat(c.InputPath); err != nil {
		return fmt.Errorf("input not accessible: %w", err)
	}
	if c.VisitMapPath != "" && c.DBPath != "" {
		return fmt.Errorf("--visit-map and --db are mutually exclusive")
	}
	return nil
}

// ValidateLoad checks the loader inputs and, unless this is a dry run, that
// a sink is named. A SQLite path wins over a DSN.
func (c *Config) ValidateLoad() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TSVDir == "" {
		return fmt.Errorf("--dir is required")
	}
	if st, err := os.Stat(c.TSVDir); err != nil || !st.IsDir() {
		return fmt.Errorf("tsv dir not accessible: %s", c.TSVDir)
	}
	if c.DBPath == "" && c.DSN == "" && !c.DryRun {
		return fmt.Errorf("--sqlite or --dsn is required")
	}
	return nil
}

// ValidateWithDSN checks the DSN field.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or DATABASE_URL is required")
	}
	return nil
}
