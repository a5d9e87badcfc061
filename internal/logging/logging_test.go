package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/assert"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		assert.NilError(t, err)
		assert.Equal(t, got, want)
	}
	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestNewWritesFileAtDebug(t *testing.T) {
	dir := t.TempDir()
	console, err := os.Create(filepath.Join(dir, "console.txt"))
	assert.NilError(t, err)
	defer console.Close()

	logger, closer, err := New(Options{Dir: filepath.Join(dir, "logs"), Level: "warn", Console: console})
	assert.NilError(t, err)
	logger = logger.With("component", "books")
	logger.Debug("debug line")
	logger.Warn("isbn does not exist", "isbn", 111)
	assert.NilError(t, closer.Close())

	file, err := os.ReadFile(filepath.Join(dir, "logs", FileName))
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(string(file), "debug line"))
	assert.Assert(t, strings.Contains(string(file), "component=books"))
	assert.Assert(t, strings.Contains(string(file), "isbn=111"))

	out, err := os.ReadFile(console.Name())
	assert.NilError(t, err)
	assert.Assert(t, !strings.Contains(string(out), "debug line"), "console is at warn")
	assert.Assert(t, strings.Contains(string(out), "isbn does not exist"))
}
