/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrNoConfig is returned by LoadConfig when the file is missing.
var ErrNoConfig = errors.New("config file does not exist")

// Config is the on-disk utgallery configuration
type Config struct {
	DataDir  string   `yaml:"data_dir"`
	Port     int      `yaml:"port"`
	Bind     string   `yaml:"bind"`
	Security Security `yaml:"security"`
	Logging  Logging  `yaml:"logging"`
	Scan     Scan     `yaml:"scan"`
	Writer   Writer   `yaml:"writer"`
	Catalog  Catalog  `yaml:"catalog"`
}

// Security holds the API key. "auto" means one is generated at bootstrap.
type Security struct {
	APIKey string `yaml:"api_key"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Scan controls how gallery files are walked
type Scan struct {
	Workers    int  `yaml:"workers"` // 0 means GOMAXPROCS
	Streaming  bool `yaml:"streaming"`
	Parallel   bool `yaml:"parallel"` // default mode for full scans
	BufferSize int  `yaml:"buffer_size"`
}

// Writer controls gallery appends
type Writer struct {
	FsyncInterval time.Duration `yaml:"fsync_interval"` // 0 syncs every append, negative only on close
	BufferSize    int           `yaml:"buffer_size"`
}

// Catalog locates the pending-template catalog
type Catalog struct {
	Dir string `yaml:"dir"` // defaults to <data_dir>/catalog
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:  "./data",
		Port:     8080,
		Bind:     "127.0.0.1",
		Security: Security{APIKey: "auto"},
		Logging:  Logging{Level: "info", Format: "console"},
		Writer:   Writer{FsyncInterval: time.Second, BufferSize: 64 * 1024},
	}
}

// LoadConfig reads a YAML config. Settings missing from the file keep their
// defaults.
func LoadConfig(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config path %s", configPath)
	}

	data, err := os.ReadFile(absPath)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNoConfig, "%s", absPath)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	return config, nil
}

// SaveConfig writes config as YAML, readable only by the owner.
func SaveConfig(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// Validate reports the first setting that cannot be used
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Newf("port %d out of range", c.Port)
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, "logging.level")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return errors.Newf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.Scan.Workers < 0 {
		return errors.New("scan.workers cannot be negative")
	}
	if c.Scan.BufferSize < 0 || c.Writer.BufferSize < 0 {
		return errors.New("buffer sizes cannot be negative")
	}
	return nil
}

// GalleryDir returns the directory holding gallery files
func (c *Config) GalleryDir() string {
	return filepath.Join(c.DataDir, "galleries")
}

// CatalogDir returns the catalog database directory
func (c *Config) CatalogDir() string {
	if c.Catalog.Dir != "" {
		return c.Catalog.Dir
	}
	return filepath.Join(c.DataDir, "catalog")
}

// GenerateSecureKey returns length random bytes, hex encoded.
func GenerateSecureKey(length int) (string, error) {
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return "", errors.Wrap(err, "failed to generate secure key")
	}
	return hex.EncodeToString(key), nil
}

// BootstrapConfig writes a default config with a freshly generated API key.
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, err
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, errors.Wrap(err, "failed to save bootstrap config")
	}
	return config, nil
}

// GetDefaultConfigPath returns ~/.config/utgallery/config.yaml, or a file in
// the working directory when there is no home.
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./utgallery.yaml"
	}
	return filepath.Join(homeDir, ".config", "utgallery", "config.yaml")
}

func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
