package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/linechat/internal/config"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "linechat dev")
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linechat.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"warn\"\n[server]\naddr = \":7000\"\n"), 0644))

	configFile, logLevel = path, ""
	defer func() { configFile, logLevel = "", "" }()

	cfg, gotPath, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, path, gotPath)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, ":7000", cfg.Server.Addr)

	t.Setenv(config.EnvAddr, ":7100")
	logLevel = "debug"

	cfg, _, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "flag beats file")
	assert.Equal(t, ":7100", cfg.Server.Addr, "environment beats file")
}
