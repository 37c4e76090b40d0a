package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTracker_Defaults(t *testing.T) {
	cfg, err := LoadTracker([]string{"ORD-20261016-120000-0001"})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, "ORD-20261016-120000-0001", cfg.OrderRef)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestLoadTracker_FlagsBeatEnvironment(t *testing.T) {
	t.Setenv("TRACKER_API_URL", "http://env:8080")
	t.Setenv("TRACKER_POLL", "2s")

	cfg, err := LoadTracker([]string{"--order", "CB1", "--api-url", "http://flag:8080"})
	require.NoError(t, err)

	assert.Equal(t, "http://flag:8080", cfg.APIURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "CB1", cfg.OrderRef)
}

func TestLoadTracker_RequiresOrder(t *testing.T) {
	_, err := LoadTracker(nil)
	assert.Error(t, err)

	_, err = LoadTracker([]string{"--order", "7", "--poll", "0s"})
	assert.Error(t, err)
}
