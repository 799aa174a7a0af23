package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/rjwvandenberg/bdfs/ice"
)

const (
	CONFIG_PATH = "BDFS_CONFIG"
)

var (
	ErrMissingKey = errors.New("config: key is not set")
	ErrInvalidKey = errors.New("config: key must be hex encoded")
)

type Config struct {
	Key         string `yaml:"key" env:"BDFS_KEY"`
	Level       int    `yaml:"level" env:"BDFS_LEVEL" env-default:"0"`
	Workers     int    `yaml:"workers" env:"BDFS_WORKERS" env-default:"0"`
	ChunkBlocks int    `yaml:"chunk_blocks" env:"BDFS_CHUNK_BLOCKS" env-default:"4096"`
	LogLevel    string `yaml:"log_level" env:"BDFS_LOG_LEVEL" env-default:"info"`
}

// Load reads the config file at path, or the file named by BDFS_CONFIG when
// path is empty, with environment variables taking precedence. Without any
// file the configuration comes from the environment alone.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(CONFIG_PATH)
	}

	var cfg Config
	if path != "" {
		slog.Debug("Loading config", slog.String("path", path))
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: cannot load config file: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: cannot read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the key encoding and that the key length matches the level.
func (c *Config) Validate() error {
	key, err := c.KeyBytes()
	if err != nil {
		return err
	}
	level, err := ice.NewLevel(c.Level)
	if err != nil {
		return err
	}
	if len(key) != level.KeySize() {
		return fmt.Errorf("%w: %d bytes, level %d needs %d", ice.ErrInvalidKeyLength, len(key), c.Level, level.KeySize())
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) KeyBytes() ([]byte, error) {
	if c.Key == "" {
		return nil, ErrMissingKey
	}
	key, err := hex.DecodeString(strings.TrimSpace(c.Key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// CipherKey builds the ICE key described by the configuration.
func (c *Config) CipherKey() (*ice.Key, error) {
	key, err := c.KeyBytes()
	if err != nil {
		return nil, err
	}
	defer clear(key)
	return ice.NewCipher(key, c.Level)
}

func ParseLogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", s)
	}
	return l, nil
}
