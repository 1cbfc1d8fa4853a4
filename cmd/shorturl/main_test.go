package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	bc, err := loadConfig("../../configs")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", bc.Server.Http.Addr)
	assert.Equal(t, time.Second, bc.Server.Http.Timeout.AsDuration())
	assert.Equal(t, "0.0.0.0:9000", bc.Server.Grpc.Addr)
	assert.Equal(t, "redis", bc.Data.Store)
	assert.Equal(t, "shorturl", bc.Data.Namespace)
	assert.Equal(t, "127.0.0.1:6379", bc.Data.Redis.Addr)
	assert.Equal(t, 200*time.Millisecond, bc.Data.Redis.ReadTimeout.AsDuration())
	assert.Equal(t, "http://localhost:8000/", bc.App.ShorturlBase)
	assert.Equal(t, 6, bc.App.ShortcodeLength)
	assert.Equal(t, `^[a-z0-9-]{3,32}$`, bc.App.ShortcodeFormat)
	assert.Equal(t, 1000, bc.App.ShortcodeMaxAttempts)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SHORTURL_STORE", "memory")
	t.Setenv("SHORTURL_NAMESPACE", "links")
	t.Setenv("SHORTURL_BASE_URL", "https://sho.rt/")

	bc, err := loadConfig("../../configs")
	require.NoError(t, err)

	assert.Equal(t, "memory", bc.Data.Store)
	assert.Equal(t, "links", bc.Data.Namespace)
	assert.Equal(t, "https://sho.rt/", bc.App.ShorturlBase)
}

func TestLoadConfig_Sparse(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("data:\n  store: memory\n"), 0o600))

	bc, err := loadConfig(dir)
	require.NoError(t, err)
	require.NotNil(t, bc.Server)
	require.NotNil(t, bc.App)
	assert.Equal(t, "memory", bc.Data.Store)
}

func TestWireApp_Memory(t *testing.T) {
	t.Setenv("SHORTURL_STORE", "memory")
	t.Setenv("SHORTURL_HTTP_ADDR", "127.0.0.1:0")
	t.Setenv("SHORTURL_GRPC_ADDR", "127.0.0.1:0")

	bc, err := loadConfig("../../configs")
	require.NoError(t, err)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.App, log.DefaultLogger)
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, Name, app.Name())
}

func TestWireApp_BadShortcodeFormat(t *testing.T) {
	t.Setenv("SHORTURL_STORE", "memory")

	bc, err := loadConfig("../../configs")
	require.NoError(t, err)
	bc.App.ShortcodeFormat = "(["

	_, _, err = wireApp(bc.Server, bc.Data, bc.App, log.DefaultLogger)
	assert.Error(t, err)
}
