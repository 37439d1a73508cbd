package config

import (
	"os"
	"path/filepath"
	"testing"

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

func TestLoad(t *testing.T) {
	t.Run("File with defaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9000
  grpc_port: 9001
database:
  host: db
  user: rental
  database: rental
jwt:
  secret: `+testSecret+`
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, StoreTypePostgres, cfg.Store.Type)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "0 0 2 * * *", cfg.Scheduler.MarkOverdueReservations)
		assert.Equal(t, "postgres://rental:@db:5432/rental?sslmode=disable", cfg.GetDatabaseConnectionString())
		assert.Equal(t, ":9001", cfg.GetGRPCAddress())
	})

	t.Run("Environment overrides file", func(t *testing.T) {
		path := writeConfig(t, `
store:
  type: memory
jwt:
  secret: `+testSecret+`
log:
  level: info
`)
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("SERVER_PORT", "7070")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, ":7070", cfg.GetServerAddress())
		assert.Empty(t, cfg.GetGRPCAddress())
	})

	t.Run("Environment only", func(t *testing.T) {
		t.Setenv("STORE_TYPE", "MEMORY")
		t.Setenv("JWT_SECRET", testSecret)

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, StoreTypeMemory, cfg.Store.Type)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Store: StoreConfig{Type: StoreTypeMemory}, JWT: JWTConfig{Secret: testSecret}}
	}

	cfg := valid()
	cfg.JWT.Secret = "short"
	assert.ErrorContains(t, cfg.Validate(), "at least 32")

	cfg = valid()
	cfg.Store.Type = "redis"
	assert.ErrorContains(t, cfg.Validate(), "unknown store type")

	cfg = valid()
	cfg.Store.Type = StoreTypePostgres
	assert.ErrorContains(t, cfg.Validate(), "database host")

	cfg = valid()
	cfg.Scheduler.MarkOverdueReservations = "every day"
	assert.ErrorContains(t, cfg.Validate(), "schedule")

	cfg = valid()
	cfg.Server.Port = 8080
	cfg.Server.GRPCPort = 8080
	assert.Error(t, cfg.Validate())
}

func TestRouteSecurity(t *testing.T) {
	assert.Equal(t, SecurityPublic, RouteSecurity("ListEquipment"))
	assert.Equal(t, SecurityAdmin, RouteSecurity("SweepOverdue"))
	assert.Equal(t, SecurityAccess, RouteSecurity("SomethingNew"))
}
