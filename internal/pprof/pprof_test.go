package pprof

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{HeapProfile: "heap.out"}.Enabled())
}

func TestHTTPEndpoint(t *testing.T) {
	h := NewHandler(Config{HTTPAddr: "127.0.0.1:0"})
	require.NoError(t, h.Start())
	defer h.Stop()

	require.NotNil(t, h.Addr())
	resp, err := http.Get("http://" + h.Addr().String() + "/debug/pprof/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "goroutine")

	require.NoError(t, h.Stop())
	assert.Nil(t, h.Addr())
	assert.NoError(t, h.Stop(), "second stop is a no-op")
}

func TestProfilesWrittenOnStop(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		CPUProfile:       filepath.Join(dir, "cpu.out"),
		HeapProfile:      filepath.Join(dir, "nested", "heap.out"),
		GoroutineProfile: filepath.Join(dir, "goroutine.out"),
	}

	h := NewHandler(cfg)
	require.NoError(t, h.Start())
	require.NoError(t, h.Stop())

	for _, path := range []string{cfg.CPUProfile, cfg.HeapProfile, cfg.GoroutineProfile} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Greater(t, info.Size(), int64(0), path)
	}
}
