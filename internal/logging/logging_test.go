package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "forge.log")
	require.NoError(t, Init(Config{Level: "debug", Format: "json", OutputPath: path}))

	L().Debug("turn started", zap.String("model", "llama3-70b-8192"))
	require.NoError(t, Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(b, &entry))
	require.Equal(t, "turn started", entry["msg"])
	require.Equal(t, "llama3-70b-8192", entry["model"])
}

func TestSetLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.log")
	require.NoError(t, Init(Config{Level: "info", OutputPath: path}))

	SetLevel("error")
	S().Infow("dropped")
	require.NoError(t, Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, b)
}
