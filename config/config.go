// Package config loads viewer configuration from the environment
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/subtlepseudonym/forcelog"
)

const Prefix = "FORCELOG"

// Config represents the viewer configuration
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Pipeline PipelineConfig `envconfig:"PIPELINE"`
	Logging  LoggingConfig  `envconfig:"LOGGING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr            string        `envconfig:"ADDR" default:":8080" validate:"required"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"30s" validate:"gt=0"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
	MaxUploadBytes  int64         `envconfig:"MAX_UPLOAD_BYTES" default:"33554432" validate:"gt=0"`
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"2h" validate:"gt=0"`
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m" validate:"gt=0"`
}

// PipelineConfig controls how uploads are normalized and aggregated
type PipelineConfig struct {
	GroupBy      string `envconfig:"GROUP_BY" default:"head,target"`
	Precision    int    `envconfig:"PRECISION" default:"2" validate:"gte=0,lte=10"`
	UnknownTable string `envconfig:"UNKNOWN_TABLE"`
	MaxRows      int    `envconfig:"MAX_ROWS" default:"0" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `envconfig:"FORMAT" default:"text" validate:"oneof=text json"`
}

// Load reads an optional dotenv file followed by FORCELOG_* environment
// variables. Variables already set in the environment take precedence over
// the dotenv file.
func Load(dotenv string) (*Config, error) {
	if dotenv != "" {
		err := godotenv.Load(dotenv)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := forcelog.ParseGroupBy(c.Pipeline.GroupBy); err != nil {
		return fmt.Errorf("validate: pipeline group by: %w", err)
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	return nil
}

// NewPipeline builds the aggregation pipeline described by the config
func (c *Config) NewPipeline() (*forcelog.Pipeline, error) {
	groupBy, err := forcelog.ParseGroupBy(c.Pipeline.GroupBy)
	if err != nil {
		return nil, err
	}

	p := forcelog.DefaultPipeline()
	p.GroupBy = groupBy
	p.Precision = c.Pipeline.Precision
	p.Read.UnknownTable = c.Pipeline.UnknownTable
	p.Read.MaxRows = c.Pipeline.MaxRows

	return p, nil
}

// NewLogger builds a slog logger for level and format
func NewLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("log format: unknown format %q", format)
}

func (c *Config) Logger() (*slog.Logger, error) {
	return NewLogger(c.Logging.Level, c.Logging.Format)
}
