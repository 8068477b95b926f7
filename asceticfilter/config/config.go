// Package config loads filter settings from YAML and turns them into builder
// options and a logger.
package config

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	filter "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
)

const EnvPostgresDSN = "FILTER_POSTGRES_DSN"

type Settings struct {
	Filter   FilterSettings   `yaml:"filter"`
	Logging  LoggingSettings  `yaml:"logging"`
	Postgres PostgresSettings `yaml:"postgres"`
}

type FilterSettings struct {
	// Strict rejects unknown operators; otherwise they match nothing.
	Strict         bool `yaml:"strict"`
	IgnoreCase     bool `yaml:"ignore_case"`
	LengthOrdering bool `yaml:"length_ordering"`
	PathCacheSize  int  `yaml:"path_cache_size"`
}

type LoggingSettings struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

type PostgresSettings struct {
	DSN string `yaml:"dsn"`
}

func Default() *Settings {
	return &Settings{
		Filter: FilterSettings{
			Strict:        true,
			PathCacheSize: filter.DefaultPathCacheSize,
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// Load reads settings from path over the defaults. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrap(err, "failed to read config")
		default:
			if err := yaml.Unmarshal(data, s); err != nil {
				return nil, errors.Wrap(err, "failed to parse config")
			}
		}
	}
	s.applyEnvOverrides()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyEnvOverrides() {
	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		s.Postgres.DSN = dsn
	}
}

func (s *Settings) Validate() error {
	if s.Filter.PathCacheSize < 0 {
		return errors.Errorf("filter.path_cache_size must not be negative, got %d", s.Filter.PathCacheSize)
	}
	if _, err := zapcore.ParseLevel(s.Logging.Level); err != nil {
		return errors.Wrap(err, "logging.level")
	}
	return nil
}

// Options translates the filter section into builder options.
func (s *Settings) Options(logger *zap.Logger) ([]filter.Option, error) {
	resolver, err := filter.NewResolver(s.Filter.PathCacheSize)
	if err != nil {
		return nil, err
	}
	opts := []filter.Option{filter.WithResolver(resolver)}
	if logger != nil {
		opts = append(opts, filter.WithLogger(logger))
	}
	if !s.Filter.Strict {
		opts = append(opts, filter.Lenient())
	}
	if s.Filter.IgnoreCase {
		opts = append(opts, filter.WithIgnoreCase())
	}
	if s.Filter.LengthOrdering {
		opts = append(opts, filter.WithLengthOrdering())
	}
	return opts, nil
}

// NewLogger builds a production logger, or a development one when requested.
func NewLogger(s LoggingSettings) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if s.Development {
		config = zap.NewDevelopmentConfig()
	}
	if s.Level != "" {
		level, err := zapcore.ParseLevel(s.Level)
		if err != nil {
			return nil, errors.Wrap(err, "logging.level")
		}
		config.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}
	return logger, nil
}
