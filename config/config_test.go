package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExportConfigSanitize(t *testing.T) {
	cfg := ExportConfig{Delimiter: ";;", SearchLimit: -1}
	cfg.Sanitize()

	assert.Equal(t, ";", cfg.Delimiter)
	assert.Equal(t, ';', cfg.DelimiterRune())
	assert.Equal(t, defaultSearchLimit, cfg.SearchLimit)
	assert.Equal(t, defaultRequestTimeout, cfg.RequestTimeout)

	tab := ExportConfig{Delimiter: "\t", SearchLimit: 50, RequestTimeout: time.Minute}
	tab.Sanitize()
	assert.Equal(t, '\t', tab.DelimiterRune())
	assert.Equal(t, 50, tab.SearchLimit)
}

func TestHTTPConfigSanitize(t *testing.T) {
	cfg := HTTPConfig{}
	cfg.Sanitize()
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestAuthConfigHasServiceAccount(t *testing.T) {
	assert.False(t, AuthConfig{}.HasServiceAccount())
	assert.False(t, AuthConfig{ServiceUsername: "svc"}.HasServiceAccount())
	assert.False(t, AuthConfig{ServiceUsername: "  ", ServicePassword: "p"}.HasServiceAccount())
	assert.True(t, AuthConfig{ServiceUsername: "svc", ServicePassword: "p"}.HasServiceAccount())
}

func TestStorageConfigEnabled(t *testing.T) {
	assert.False(t, PostgresConfig{}.Enabled())
	assert.True(t, PostgresConfig{URL: "postgres://localhost/dms"}.Enabled())
	assert.False(t, RedisConfig{}.Enabled())
	assert.True(t, RedisConfig{Addr: "localhost:6379"}.Enabled())
}
