package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pharmacy-inventory/pkg/logger"
)

func TestLogger_CamposDeServicioYComponente(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&buf, logger.Config{Env: "production", Level: "info", Service: "pharmacy-inventory"})

	sweeper := l.Component("sweeper")
	sweeper.Info().Int("expired", 2).Msg("barrido")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "pharmacy-inventory", line["service"])
	assert.Equal(t, "sweeper", line["component"])
	assert.Equal(t, float64(2), line["expired"])
}

func TestLogger_NivelFiltra(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&buf, logger.Config{Level: "warn"})

	l.Info().Msg("no se escribe")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("sí se escribe")
	assert.NotZero(t, buf.Len())
}
