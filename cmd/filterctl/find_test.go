package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/config"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/utils/testutils"
)

func TestFindErrors(t *testing.T) {
	t.Setenv(config.EnvPostgresDSN, "")
	doc := writeFile(t, "doc.json", `{"city": "Lisbon"}`)

	_, err := execute(t, "find", "--criteria", doc)
	assert.ErrorContains(t, err, "--table")

	_, err = execute(t, "find", "--criteria", doc, "--table", "venues")
	assert.ErrorContains(t, err, "postgres.dsn")

	settings := writeFile(t, "filter.yaml", "postgres:\n  dsn: postgres://localhost/none\n")
	_, err = execute(t, "--config", settings, "find", "--table", "venues")
	assert.ErrorContains(t, err, "--criteria")
}

func TestFindIntegration(t *testing.T) {
	if !testutils.HasDatabase() {
		t.Skip("DB_HOST is not set")
	}
	ctx := context.Background()
	pool, err := testutils.NewPgxPool(ctx)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `CREATE TABLE filterctl_venues (id bigint PRIMARY KEY, city text NOT NULL)`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DROP TABLE filterctl_venues`)
	})
	_, err = pool.Exec(ctx, `INSERT INTO filterctl_venues VALUES (1, 'Lisbon'), (2, 'Porto'), (3, 'Braga')`)
	require.NoError(t, err)

	t.Setenv(config.EnvPostgresDSN, testutils.DSN())
	doc := writeFile(t, "doc.yaml", "city:\n  '!=': Porto\n")

	out, err := execute(t, "find", "--criteria", doc, "--table", "filterctl_venues", "--order", "-city")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id": 1, "city": "Lisbon"}, {"id": 3, "city": "Braga"}]`, out)

	out, err = execute(t, "find", "--criteria", doc, "--table", "filterctl_venues", "--count")
	require.NoError(t, err)
	assert.Equal(t, "2", strings.TrimSpace(out))
}
