package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	for _, k := range []string{"CADENCE_CONFIG", "CADENCE_BACKEND", "CADENCE_DB", "CADENCE_STORE_URL", "CADENCE_CATALOG"} {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CADENCE_LOG_LEVEL", "error")
	return &cli{t: t, db: filepath.Join(t.TempDir(), "cadence.db")}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--db", c.db}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run("", args...)
	require.NoError(c.t, err, out)
	return out
}

var createdRe = regexp.MustCompile(`Created run (\S+) `)

func (c *cli) newRun(args ...string) string {
	c.t.Helper()
	out := c.mustRun(append([]string{"new"}, args...)...)
	m := createdRe.FindStringSubmatch(out)
	require.Len(c.t, m, 2, out)
	return m[1]
}

func TestCLI_RunLifecycle(t *testing.T) {
	c := newCLI(t)
	id := c.newRun("--name", "evening drills")

	assert.Contains(t, c.mustRun("list"), id)

	show := c.mustRun("show", id)
	assert.Contains(t, show, "evening drills")
	assert.Contains(t, show, "String Basics [beginner]")
	assert.Contains(t, show, "Queue:      1/")

	next := c.mustRun("next", id)
	assert.Contains(t, next, "string-basics")
	assert.Contains(t, next, "Difficulty:  beginner")

	served := c.mustRun("serve", id)
	assert.Contains(t, served, "String Basics (beginner): String length")

	rec := c.mustRun("record", id, "correct", "--elapsed", "30s")
	assert.Contains(t, rec, "Recorded correct on string-basics: 1/1 solved (100%), streak 1")

	stats := c.mustRun("stats", id)
	assert.Contains(t, stats, "string-basics")
	assert.Contains(t, stats, "Promotions: 0")

	assert.Contains(t, c.mustRun("advance", id), "Now at 2/")
	assert.Contains(t, c.mustRun("jump", id, "1"), "Now at 1/")
	_, err := c.run("", "jump", id, "0")
	assert.Error(t, err)

	assert.Contains(t, c.mustRun("status", id, "paused"), "paused")
	assert.Contains(t, c.mustRun("reset", id), "Cleared all stats")
	assert.Contains(t, c.mustRun("stats", id), "No attempts recorded")

	c.mustRun("delete", id)
	_, err = c.run("", "show", id)
	assert.Error(t, err)
}

func TestCLI_PromotionEvents(t *testing.T) {
	c := newCLI(t)
	id := c.newRun()

	for range 3 {
		c.mustRun("record", id, "correct")
	}
	events := c.mustRun("events", id)
	assert.Contains(t, events, "promotion")
	assert.Contains(t, events, "beginner -> intermediate")
	assert.Contains(t, c.mustRun("stats", id), "Promotions: 1")
}

func TestCLI_ExportImport(t *testing.T) {
	c := newCLI(t)
	id := c.newRun()
	c.mustRun("record", id, "partial")

	file := filepath.Join(t.TempDir(), "run.json")
	c.mustRun("export", id, "--out", file)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "cadence-run", doc["format"])

	assert.Contains(t, c.mustRun("import", file), "Run id already in use")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"format":"cadence-run"`), 0o644))
	_, err = c.run("", "import", bad)
	assert.ErrorContains(t, err, "invalid_json")
}

func TestCLI_Practice(t *testing.T) {
	c := newCLI(t)
	id := c.newRun()

	out, err := c.run("c\nx\ni\nq\n", "practice", id, "--count", "3")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Question 1/3")
	assert.Contains(t, out, "Question 3/3")
	assert.Contains(t, out, "Summary: 1/2 correct")

	assert.Contains(t, c.mustRun("show", id), "Questions:  2")
}

func TestCLI_CatalogAndVersion(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("catalog", "--module", "string-manipulation")
	assert.Contains(t, out, "string-basics")
	assert.NotContains(t, out, "array-basics")

	_, err := c.run("", "catalog", "--module", "nope")
	assert.Error(t, err)

	assert.Equal(t, "cadence (devel)\n", c.mustRun("version"))
}

func TestCLI_MigrateNothing(t *testing.T) {
	c := newCLI(t)
	assert.Contains(t, c.mustRun("migrate"), "Nothing to migrate")
}

func TestCLI_BadBackend(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "--backend", "etcd", "list")
	assert.ErrorContains(t, err, "unknown store backend")
	rootCmd.PersistentFlags().Set("backend", "")
}
