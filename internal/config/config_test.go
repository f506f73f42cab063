package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredDBEnv задает минимальный набор переменных, без которых Validate не пропустит конфиг
func setRequiredDBEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_HOST", "db")
	t.Setenv("DATABASE_USER", "eve")
	t.Setenv("DATABASE_DBNAME", "newedenfaces")
	t.Setenv("GIN_MODE", "release")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredDBEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "migrations", cfg.Database.MigrationsPath)
	assert.Equal(t, "single", cfg.Redis.Mode)
	assert.Equal(t, "https://api.eveonline.com", cfg.Identity.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Identity.Timeout)
	assert.Equal(t, time.Minute, cfg.Cache.CountTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.TopTTL)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.RateLimit.VotesPerMinute)
	assert.Equal(t, 5, cfg.RateLimit.RegisterPerMinute)
	assert.False(t, cfg.WebSocket.Cluster.Enabled)
	assert.Equal(t, "newedenfaces:presence", cfg.WebSocket.Cluster.PresenceChannel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredDBEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("IDENTITY_BASE_URL", "http://identity.local")
	t.Setenv("IDENTITY_TIMEOUT", "3s")
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")
	t.Setenv("WEBSOCKET_CLUSTER_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://identity.local", cfg.Identity.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Identity.Timeout)
	assert.Equal(t, "s3cret", cfg.Admin.JWTSecret)
	assert.True(t, cfg.WebSocket.Cluster.Enabled)
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	setRequiredDBEnv(t)
	t.Setenv("PORT", "9090")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: "4000"
cache:
  top_ttl: 5s
rate_limit:
  votes_per_minute: 10
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// env имеет приоритет над файлом
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Cache.TopTTL)
	assert.Equal(t, 10, cfg.RateLimit.VotesPerMinute)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	setRequiredDBEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Host: "db", User: "eve", DBName: "nef"},
			Identity: IdentityConfig{BaseURL: "http://x", Timeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing db name", func(c *Config) { c.Database.DBName = "" }, true},
		{"missing identity url", func(c *Config) { c.Identity.BaseURL = "" }, true},
		{"zero identity timeout", func(c *Config) { c.Identity.Timeout = 0 }, true},
		{"empty admin secret is only a warning", func(c *Config) { c.Admin.JWTSecret = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_ConnectionStrings(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", d.PostgresConnectionString())
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", d.PostgresURL())
}

func TestDatabaseConfig_PostgresURLEscapesCredentials(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "eve:ops", Password: "p@ss/w?rd:1", DBName: "newedenfaces", SSLMode: "disable"}

	u, err := url.Parse(d.PostgresURL())
	require.NoError(t, err)

	assert.Equal(t, "db", u.Hostname())
	assert.Equal(t, "5432", u.Port())
	assert.Equal(t, "eve:ops", u.User.Username())
	password, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss/w?rd:1", password)
	assert.Equal(t, "/newedenfaces", u.Path)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}
