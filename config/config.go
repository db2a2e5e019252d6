package config

import (
	"errors"
	"fmt"
	"time"

	"vote-ledger/encryption"
	"vote-ledger/pow"
)

// Config is the runtime configuration of the ledger service.
type Config struct {
	StorageDir        string        `yaml:"storage_dir"`
	Port              int           `yaml:"port"`
	Difficulty        int           `yaml:"difficulty"`
	MaxMiningAttempts int           `yaml:"max_mining_attempts"`
	YieldEvery        int           `yaml:"yield_every"`
	QueueSize         int           `yaml:"queue_size"`
	ReceiptCacheSize  int           `yaml:"receipt_cache_size"`
	SessionDuration   time.Duration `yaml:"session_duration"`
	ShardCount        int           `yaml:"shard_count"`
	ShardThreshold    int           `yaml:"shard_threshold"`
	Encoder           string        `yaml:"encoder"` // RSA2048 or ECIES
	LogLevel          string        `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		StorageDir:        "data",
		Port:              8080,
		Difficulty:        2,
		MaxMiningAttempts: pow.DefaultMaxAttempts,
		YieldEvery:        pow.DefaultYieldEvery,
		QueueSize:         100,
		ReceiptCacheSize:  10000,
		SessionDuration:   24 * time.Hour,
		ShardCount:        5,
		ShardThreshold:    3,
		Encoder:           encryption.FormatSimulated,
		LogLevel:          "info",
	}
}

var ErrInvalidConfig = errors.New("config: invalid")

// Validate rejects settings the ledger cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.StorageDir == "":
		return fmt.Errorf("%w: storage_dir is empty", ErrInvalidConfig)
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	case c.Difficulty < 0 || c.Difficulty > 64:
		return fmt.Errorf("%w: difficulty %d out of range 0..64", ErrInvalidConfig, c.Difficulty)
	case c.MaxMiningAttempts <= 0:
		return fmt.Errorf("%w: max_mining_attempts must be positive", ErrInvalidConfig)
	case c.YieldEvery <= 0:
		return fmt.Errorf("%w: yield_every must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.ReceiptCacheSize <= 0:
		return fmt.Errorf("%w: receipt_cache_size must be positive", ErrInvalidConfig)
	case c.SessionDuration <= 0:
		return fmt.Errorf("%w: session_duration must be positive", ErrInvalidConfig)
	case c.ShardThreshold < 2 || c.ShardThreshold > c.ShardCount || c.ShardCount > 255:
		return fmt.Errorf("%w: need 2 <= shard_threshold (%d) <= shard_count (%d) <= 255",
			ErrInvalidConfig, c.ShardThreshold, c.ShardCount)
	}
	switch c.Encoder {
	case encryption.FormatSimulated, encryption.FormatSealed:
	default:
		return fmt.Errorf("%w: unknown encoder %q", ErrInvalidConfig, c.Encoder)
	}
	return nil
}
