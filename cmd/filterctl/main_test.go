package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const people = `[
	{"name": "Ana", "age": 30, "city": "Lisbon"},
	{"name": "Mariana", "age": 25, "city": "Porto"},
	{"name": "Bruno", "age": 17, "city": "Lisbon"},
	{"name": "Marina", "age": 40, "city": "Braga"}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func names(t *testing.T, output string) []string {
	t.Helper()
	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &records))
	result := make([]string, len(records))
	for i, r := range records {
		result[i] = r["name"].(string)
	}
	return result
}

func TestMatch(t *testing.T) {
	input := writeFile(t, "people.json", people)
	doc := writeFile(t, "adults.json", `{"age": {">=": 18}}`)

	out, err := execute(t, "match", "--criteria", doc, "--input", input)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Mariana", "Marina"}, names(t, out))
}

func TestMatchYAMLDocument(t *testing.T) {
	input := writeFile(t, "people.json", people)
	doc := writeFile(t, "lisbon.yaml", "city: Lisbon\nname:\n  starts: B\n")

	out, err := execute(t, "match", "--criteria", doc, "--input", input)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bruno"}, names(t, out))
}

func TestMatchOrdersAndPages(t *testing.T) {
	input := writeFile(t, "people.json", people)
	doc := writeFile(t, "adults.json", `{"age": {">=": 18}}`)

	out, err := execute(t, "match", "--criteria", doc, "--input", input,
		"--similar-field", "name", "--terms", "mari")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mariana", "Marina", "Ana"}, names(t, out))

	out, err = execute(t, "match", "--criteria", doc, "--input", input,
		"--similar-field", "name", "--terms", "mari", "--page", "2", "--size", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana"}, names(t, out))
}

func TestMatchErrors(t *testing.T) {
	input := writeFile(t, "people.json", people)

	_, err := execute(t, "match", "--input", input)
	assert.ErrorContains(t, err, "--criteria")

	doc := writeFile(t, "odd.json", `{"age": {"divisibleby": 3}}`)
	_, err = execute(t, "match", "--criteria", doc, "--input", input)
	assert.Error(t, err)

	doc = writeFile(t, "adults.json", `{"age": {">=": 18}}`)
	broken := writeFile(t, "broken.json", `{"name": "Ana"}`)
	_, err = execute(t, "match", "--criteria", doc, "--input", broken)
	assert.ErrorContains(t, err, "JSON array")
}

func TestMatchLenientConfig(t *testing.T) {
	input := writeFile(t, "people.json", people)
	doc := writeFile(t, "odd.json", `{"age": {"divisibleby": 3}}`)
	settings := writeFile(t, "filter.yaml", "filter:\n  strict: false\nlogging:\n  level: error\n")

	out, err := execute(t, "--config", settings, "match", "--criteria", doc, "--input", input)
	require.NoError(t, err)
	assert.Empty(t, names(t, out))
}

func TestSQL(t *testing.T) {
	doc := writeFile(t, "doc.json", `{"age": {">": 18}, "city": ["Lisbon", "Porto"]}`)

	out, err := execute(t, "sql", "--criteria", doc, "--columns", "city=address.city", "--placeholder-index", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"age" > $2 AND ("address"."city" = $3 OR "address"."city" = $4)`, lines[0])
	assert.JSONEq(t, `[18, "Lisbon", "Porto"]`, lines[1])
}

func TestSQLIgnoreCase(t *testing.T) {
	doc := writeFile(t, "doc.json", `{"name": {"contains": "an"}}`)
	settings := writeFile(t, "filter.yaml", "filter:\n  ignore_case: true\n")

	out, err := execute(t, "--config", settings, "sql", "--criteria", doc)
	require.NoError(t, err)
	assert.Equal(t, "\"name\" ILIKE $1\n[\"%an%\"]\n", out)
}
