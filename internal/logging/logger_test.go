package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledLoggerIsNoop(t *testing.T) {
	require.NoError(t, Initialize(Settings{DebugMode: false}))
	defer CloseAll()

	l := Get(CategoryEngine)
	require.NotNil(t, l)
	l.Info("nothing should be written %d", 1)
	assert.False(t, IsDebugMode())
	assert.False(t, IsCategoryEnabled(CategoryEngine))
}

func TestCategoriesWriteSeparateFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Settings{
		DebugMode:  true,
		Level:      "debug",
		Dir:        dir,
		Categories: map[string]bool{"narration": false},
	}))
	defer CloseAll()

	Get(CategoryEngine).Info("day %d starts", 2)
	Get(CategoryAgent).With("player", "Haiku").Debug("attempt %d", 1)
	Get(CategoryNarration).Info("should be filtered")
	Sync()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Len(t, names, 2)

	var engineLog string
	for _, n := range names {
		if strings.HasSuffix(n, "_engine.log") {
			data, err := os.ReadFile(filepath.Join(dir, n))
			require.NoError(t, err)
			engineLog = string(data)
		}
		assert.NotContains(t, n, "narration")
	}
	assert.Contains(t, engineLog, "day 2 starts")
}

func TestDebugModeRequiresDir(t *testing.T) {
	err := Initialize(Settings{DebugMode: true})
	assert.Error(t, err)
	CloseAll()
}

func TestLevelParsing(t *testing.T) {
	assert.Equal(t, "warn", defaultLevel("WARNING"))
	assert.Equal(t, "info", defaultLevel("verbose"))
	assert.Equal(t, "debug", defaultLevel(" debug "))
}
