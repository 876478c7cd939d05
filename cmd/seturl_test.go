package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSetServerURL_PersistsToConfigFile(t *testing.T) {
	tmpDir := chdirTemp(t)

	path := filepath.Join(tmpDir, "config.yaml")
	content := []byte("server:\n  url: http://old.internal:1234\n  reconnect_delay_ms: 750\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	require.NoError(t, setServerURL(path, "https://flows.example.com"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	require.Equal(t, "https://flows.example.com", parsed["server"]["url"])
	require.EqualValues(t, 750, parsed["server"]["reconnect_delay_ms"], "other server keys preserved")
}

func TestSetServerURL_RejectsInvalidURL(t *testing.T) {
	tmpDir := chdirTemp(t)
	path := filepath.Join(tmpDir, "config.yaml")

	require.Error(t, setServerURL(path, "ftp://example.com"))
	require.Error(t, setServerURL(path, "not a url"))

	// Nothing was written for rejected URLs.
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestSetURLCommand_WritesUsedConfigFile(t *testing.T) {
	tmpDir := chdirTemp(t)

	cfgPath := filepath.Join(tmpDir, ".flowdeck", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(cfgPath), 0o755))
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  url: http://old:1\n"), 0o644))
	initConfig()

	require.NoError(t, setURLCmd.RunE(setURLCmd, []string{"http://localhost:9090"}))

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	var parsed map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	require.Equal(t, "http://localhost:9090", parsed["server"]["url"])
}
