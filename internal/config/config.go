// Package config loads the YAML configuration describing a capture
// pipeline deployment.
package config

import (
	"fmt"
	"math/bits"
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"github.com/kiranshila/grex-packet-capture/common/logging"
	"github.com/kiranshila/grex-packet-capture/internal/xcapture"
)

// Config describes a capture pipeline deployment.
type Config struct {
	// Port is the UDP port the endpoint binds.
	Port uint16 `yaml:"port"`
	// PayloadSize is the fixed datagram size P, in bytes.
	PayloadSize int `yaml:"payload_size"`
	// BlockSize is the number of payloads per block B. Must be a power
	// of two.
	BlockSize int `yaml:"block_size"`
	// BacklogCapacity is the reorder backlog's maximum entry count K.
	BacklogCapacity int `yaml:"backlog_capacity"`
	// RingCapacity is the number of pre-allocated block buffers R.
	RingCapacity int `yaml:"ring_capacity"`
	// WarmupPackets is the number of datagrams drained and discarded
	// before capture begins, W.
	WarmupPackets int `yaml:"warmup_packets"`
	// BlockLimit bounds the number of blocks the driver assembles
	// before exiting; 0 means run until shutdown.
	BlockLimit int `yaml:"block_limit"`
	// CaptureCoreID is the core the capture thread is pinned to.
	CaptureCoreID int `yaml:"capture_core_id"`
	// ConsumerCoreID is the core the consumer thread is pinned to.
	ConsumerCoreID int `yaml:"consumer_core_id"`
	// RcvBufferBytes is the requested SO_RCVBUF size.
	RcvBufferBytes datasize.ByteSize `yaml:"rcv_buffer_bytes"`

	// Logging is the ambient logging sub-document.
	Logging logging.Config `yaml:"logging"`
}

// Default returns the reference deployment's configuration: 8200-byte
// payloads, 2^15-payload blocks, a 4096-entry backlog, a 4-slot ring,
// and a 1M-packet warm-up.
func Default() Config {
	return Config{
		Port:            60000,
		PayloadSize:     8200,
		BlockSize:       1 << 15,
		BacklogCapacity: 4096,
		RingCapacity:    4,
		WarmupPackets:   1_000_000,
		BlockLimit:      0,
		CaptureCoreID:   0,
		ConsumerCoreID:  1,
		RcvBufferBytes:  256 * datasize.MB,
	}
}

// Load reads and decodes a YAML configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config %q: %w", path, err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the parameter invariants the pipeline requires at
// startup.
func (c *Config) Validate() error {
	if c.BlockSize <= 0 || bits.OnesCount(uint(c.BlockSize)) != 1 {
		return &xcapture.ConfigError{Msg: fmt.Sprintf("block_size %d is not a power of two", c.BlockSize)}
	}
	if c.PayloadSize < 8 {
		return &xcapture.ConfigError{Msg: fmt.Sprintf("payload_size %d is too small to hold the count header", c.PayloadSize)}
	}
	if c.BacklogCapacity <= 0 {
		return &xcapture.ConfigError{Msg: fmt.Sprintf("backlog_capacity must be positive, got %d", c.BacklogCapacity)}
	}
	if c.RingCapacity <= 0 {
		return &xcapture.ConfigError{Msg: fmt.Sprintf("ring_capacity must be positive, got %d", c.RingCapacity)}
	}
	return nil
}
