package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Platewise", cfg.App.Name)
	assert.Equal(t, 20, cfg.Planner.K)
	assert.Equal(t, 2, cfg.Planner.MaxRepairs)
	assert.Equal(t, 2.0, cfg.Planner.RejectMultiplier)
	assert.Equal(t, 5*time.Second, cfg.Planner.EmbedTimeout)
	assert.Equal(t, 5*time.Second, cfg.Planner.SearchTimeout)
	assert.Equal(t, 20*time.Second, cfg.Planner.GenerateTimeout)
	assert.Equal(t, 1.0, cfg.Planner.WeightCalories)
	assert.Equal(t, 0.5, cfg.Planner.WeightCarbs)
	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.False(t, cfg.IsProduction())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PLATEWISE_PLANNER_K", "12")
	t.Setenv("PLATEWISE_AI_PROVIDER", "openai")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Planner.K)
	assert.Equal(t, "openai", cfg.AI.Provider)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("PLATEWISE_PLANNER_K", "2")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("PLATEWISE_PLANNER_K", "20")
	t.Setenv("PLATEWISE_AI_PROVIDER", "bedrock")
	_, err = Load("")
	assert.Error(t, err)
}
