package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pharmacy-inventory/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("INVENTORY_STORE", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Inventory.HoldTimeout)
	assert.Equal(t, 3, cfg.Inventory.MaxRetries)
	assert.Equal(t, "memory", cfg.Inventory.Store)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 25, cfg.DB.MaxConns)
	assert.Equal(t, 2, cfg.DB.MinConns)
	assert.Equal(t, 5*time.Second, cfg.Inventory.LockTimeout)
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Setenv("INVENTORY_STORE", "memory")
	t.Setenv("INVENTORY_HOLD_TIMEOUT", "90s")
	t.Setenv("INVENTORY_SWEEP_INTERVAL", "30")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_MAX_CONNS", "40")
	t.Setenv("DB_MIN_CONNS", "4")
	t.Setenv("DB_MAX_CONN_IDLE_TIME", "5m")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Inventory.HoldTimeout)
	assert.Equal(t, 30*time.Second, cfg.Inventory.SweepInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 40, cfg.DB.MaxConns)
	assert.Equal(t, 4, cfg.DB.MinConns)
	assert.Equal(t, 5*time.Minute, cfg.DB.MaxConnIdleTime)
}

func TestLoad_StoreInvalido(t *testing.T) {
	t.Setenv("INVENTORY_STORE", "redis")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_PoolInvalido(t *testing.T) {
	t.Setenv("INVENTORY_STORE", "memory")
	t.Setenv("DB_MAX_CONNS", "2")
	t.Setenv("DB_MIN_CONNS", "5")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w", DBName: "farmacia", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw@db:5432/farmacia?sslmode=disable", c.DSN())
}
