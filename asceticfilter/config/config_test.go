package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	filter "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv(EnvPostgresDSN, "")
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvPostgresDSN, "")
	s, err := Load(writeConfig(t, `
filter:
  strict: false
  ignore_case: true
  path_cache_size: 16
logging:
  level: debug
  development: true
postgres:
  dsn: postgres://localhost/filters
`))
	require.NoError(t, err)
	assert.False(t, s.Filter.Strict)
	assert.True(t, s.Filter.IgnoreCase)
	assert.False(t, s.Filter.LengthOrdering)
	assert.Equal(t, 16, s.Filter.PathCacheSize)
	assert.Equal(t, "debug", s.Logging.Level)
	assert.Equal(t, "postgres://localhost/filters", s.Postgres.DSN)
}

func TestEnvOverridesDSN(t *testing.T) {
	t.Setenv(EnvPostgresDSN, "postgres://env/filters")
	s, err := Load(writeConfig(t, "postgres:\n  dsn: postgres://file/filters\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/filters", s.Postgres.DSN)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	_, err := Load(writeConfig(t, "logging:\n  level: loud\n"))
	assert.Error(t, err)
	_, err = Load(writeConfig(t, "filter:\n  path_cache_size: -1\n"))
	assert.Error(t, err)
	_, err = Load(writeConfig(t, "filter: [\n"))
	assert.Error(t, err)
}

type row struct {
	Name string
	Age  int
}

func TestOptions(t *testing.T) {
	s := Default()
	s.Filter.Strict = false
	s.Filter.IgnoreCase = true
	opts, err := s.Options(nil)
	require.NoError(t, err)
	b := filter.NewBuilder(opts...)

	name, err := filter.ResolvePath[row](b.Resolver(), "name")
	require.NoError(t, err)

	p, err := filter.Build(b, name, "resembles", []any{"x"}, "")
	require.NoError(t, err)
	assert.False(t, p(row{Name: "x"}))

	p, err = filter.Build(b, name, "=", []any{"ANA"}, "")
	require.NoError(t, err)
	assert.True(t, p(row{Name: "ana"}))

	_, err = filter.Build(filter.NewBuilder(), name, "resembles", []any{"x"}, "")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingSettings{Level: "warn"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	logger, err = NewLogger(LoggingSettings{Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(LoggingSettings{Level: "loud"})
	assert.Error(t, err)
}
