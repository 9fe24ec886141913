package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 5000
block_size: 16
backlog_capacity: 8
ring_capacity: 2
warmup_packets: 0
capture_core_id: 2
consumer_core_id: 3
rcv_buffer_bytes: 1MB
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.EqualValues(t, 5000, cfg.Port)
	assert.Equal(t, 16, cfg.BlockSize)
	assert.Equal(t, 8, cfg.BacklogCapacity)
	assert.Equal(t, 2, cfg.RingCapacity)
	assert.Equal(t, 0, cfg.WarmupPackets)
	assert.Equal(t, 2, cfg.CaptureCoreID)
	assert.Equal(t, 3, cfg.ConsumerCoreID)
	// PayloadSize was not overridden; the default must survive.
	assert.Equal(t, 8200, cfg.PayloadSize)
}

func Test_ValidateRejectsNonPowerOfTwoBlockSize(t *testing.T) {
	cfg := Default()
	cfg.BlockSize = 100

	err := cfg.Validate()
	assert.Error(t, err)
}

func Test_ValidateAcceptsDefaults(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func Test_LoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
