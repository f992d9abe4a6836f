package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9001, cfg.Listen.Port)
	assert.Equal(t, 3, cfg.Game.CardsPerPile)
	assert.Equal(t, int64(1), cfg.Game.TickSize)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("PIT_GAME_CARDS_PER_PILE", "5")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Game.CardsPerPile)
}

func TestValidate_RejectsBadTickSize(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Game.TickSize = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Listen.Port = 0
	assert.Error(t, cfg.Validate())
}
