package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Booking.SlotCapacity)
	assert.Equal(t, "retain", cfg.Booking.PersistFailure)
	assert.Equal(t, DefaultOfferings, cfg.Booking.Offerings)
	assert.Equal(t, 1440, cfg.Booking.SessionTTLMinutes)
}

func TestLoadRequiresBotToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load()
	assert.ErrorContains(t, err, "TELEGRAM_BOT_TOKEN")
}

func TestLoadRejectsNonPositiveSlotCapacity(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("SLOT_CAPACITY", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "SLOT_CAPACITY")
}

func TestLoadRejectsUnknownPersistPolicy(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("PERSIST_FAILURE_POLICY", "explode")

	_, err := Load()
	assert.ErrorContains(t, err, "PERSIST_FAILURE_POLICY")
}
