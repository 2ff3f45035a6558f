package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with the relevant variables unset.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, k := range []string{"PORT", "NEWSAPI", "REDIS_ADDR", "APP_ENV"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "", cfg.APIKey)
	assert.Equal(t, "https://newsapi.org/v2/top-headlines", cfg.Endpoint)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, ":3000", cfg.Addr())
}

func TestLoad_PortPrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "8080")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port, "env beats default")

	cfg, err = Load("", []string{"9090"})
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port, "argument beats env")

	cfg, err = Load("", []string{"not-a-port"})
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port, "unparsable argument falls back to env")
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "newsboard.yaml")
	err := os.WriteFile(path, []byte("port: 4000\napi_key: from-file\ncache_ttl: 30s\nredis: cache:6379\n"), 0o644)
	require.NoError(t, err)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)

	t.Setenv("NEWSAPI", "from-env")
	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NEWSAPI=dotenv-key\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("NEWSAPI") })

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.APIKey)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "nope.yaml"), nil)
	assert.NoError(t, err)
}

func TestLoad_BadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1, 2"), 0o644))

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.CacheTTL = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Endpoint = ""
	assert.Error(t, cfg.Validate())
}
