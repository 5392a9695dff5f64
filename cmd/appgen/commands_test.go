package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbyapp/nbyapp/internal/app"
)

var appIDRe = regexp.MustCompile(`App ID: (app_\d+)`)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LLM_USE_MOCK", "true")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_DSN", filepath.Join(dir, "apps.db"))
	t.Setenv("EXPORT_DIR", filepath.Join(dir, "userapps"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := &cli{}
	err := c.execute(context.Background(), args, &out, &out)
	return out.String(), err
}

func TestServicesCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "services")
	require.NoError(t, err)
	assert.Contains(t, out, "OpenAI (openai)")
	assert.Contains(t, out, "* gpt-4o")
	assert.Contains(t, out, "Anthropic Claude (claude)")
	assert.Contains(t, out, "deepseek-coder")
}

func TestGenerateListShowDelete(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "generate", "--service", "claude", "a", "habit", "tracker")
	require.NoError(t, err)
	assert.Contains(t, out, "Mock mode enabled")
	assert.Contains(t, out, "Created file: index.html")
	assert.Contains(t, out, "Created file: styles.css")
	assert.Contains(t, out, "Created file: app.js")
	assert.Contains(t, out, "Generation completed successfully")

	m := appIDRe.FindStringSubmatch(out)
	require.Len(t, m, 2)
	id := m[1]

	_, err = os.Stat(filepath.Join(dir, "userapps", id, "index.html"))
	assert.NoError(t, err)

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, `App from "a habit tracker"`)

	out, err = run(t, "show", "--json", id)
	require.NoError(t, err)
	var rec app.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "a habit tracker", rec.Idea)
	assert.Equal(t, "claude-3-opus-20240229", rec.ModelID)
	assert.Len(t, rec.Files, 3)

	out, err = run(t, "show", "--file", "index.html", id)
	require.NoError(t, err)
	assert.Contains(t, out, "a habit tracker")

	out, err = run(t, "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+id)

	_, err = run(t, "show", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGenerateErrors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "generate", "--service", "gemini", "an", "idea")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown service")

	_, err = run(t, "generate", "an", "idea")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service")

	_, err = run(t, "generate", "--service", "openai")
	require.Error(t, err)
}

func TestFailingCommandReleasesComponents(t *testing.T) {
	setupEnv(t)

	c := &cli{}
	var out bytes.Buffer
	err := c.execute(context.Background(), []string{"show", "app_404"}, &out, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Nil(t, c.components)
	assert.Nil(t, c.logger)

	err = c.execute(context.Background(), []string{"generate", "--service", "gemini", "an", "idea"}, &out, &out)
	require.Error(t, err)
	assert.Nil(t, c.components)

	_, err = run(t, "list")
	assert.NoError(t, err)
}
