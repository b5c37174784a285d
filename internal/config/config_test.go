package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9090
database:
  host: localhost
  user: dispatch
  database: dispatch
jwt:
  secret: `+testSecret+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9091, cfg.Server.HTTPPort)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, 3, cfg.Accounting.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.AccountingBackoff())
	assert.Equal(t, 24*time.Hour, cfg.PickupLookahead())
	assert.Equal(t, "0 */15 * * * *", cfg.Scheduler.FlagOverdueReturns)
	assert.Equal(t, "postgres://dispatch:@localhost:5432/dispatch?sslmode=disable", cfg.GetDatabaseConnectionString())
	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddress())
	assert.Equal(t, "0.0.0.0:9091", cfg.GetHTTPAddress())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  http_port: 8080
database:
  driver: postgres
  host: localhost
  user: dispatch
  database: dispatch
jwt:
  secret: short
`)
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "8181")
	t.Setenv("EVENTS_ASYNC_DISPATCH", "true")
	t.Setenv("BOARD_ALLOWED_ORIGINS", "https://board.example,https://ops.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 8181, cfg.Server.HTTPPort)
	assert.True(t, cfg.Events.AsyncDispatch)
	assert.Equal(t, []string{"https://board.example", "https://ops.example"}, cfg.Board.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Port: 9090},
			Database: DatabaseConfig{Driver: "memory"},
			JWT:      JWTConfig{Secret: testSecret},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid memory", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unknown database driver"},
		{"postgres needs host", func(c *Config) { c.Database.Driver = "postgres" }, "database host is required"},
		{"short secret", func(c *Config) { c.JWT.Secret = "abc" }, "at least 32 characters"},
		{"sendgrid needs sender", func(c *Config) { c.SendGrid.APIKey = "key" }, "sendgrid from"},
		{"push needs project", func(c *Config) { c.Push.Enabled = true }, "project_id"},
		{"accounting needs queue", func(c *Config) { c.Accounting.Enabled = true }, "queue_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRouteSecurity(t *testing.T) {
	assert.Equal(t, SecurityPublic, RouteSecurity("/healthz"))
	assert.Equal(t, SecurityAccess, RouteSecurity("/api/v1/reservations/{id}/settle"))
	assert.Equal(t, SecurityAccess, RouteSecurity("/unlisted"))
}
