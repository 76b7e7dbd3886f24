// Package storeconfig loads store.toml, the store's on-disk
// configuration file, applying defaults for anything the file omits.
package storeconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the store's full configuration, cascading from built-in
// defaults, then a store.toml file if one is found.
type Config struct {
	// DictionaryBlockSize is the front-coding block size used when a
	// builder constructs new layer dictionaries.
	DictionaryBlockSize int `toml:"dictionary_block_size"`

	// LabelLockTimeoutSeconds bounds how long a directory label store
	// waits to acquire the advisory file lock for a CAS update.
	LabelLockTimeoutSeconds int `toml:"label_lock_timeout_seconds"`

	// CacheEnabled controls whether OpenDirectoryStore wraps its layer
	// store in the weak-reference process cache.
	CacheEnabled bool `toml:"cache_enabled"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`

	// LogJSON selects JSON log output over text.
	LogJSON bool `toml:"log_json"`

	// LogFilePath, if set, tees logging to a rotating file.
	LogFilePath string `toml:"log_file_path"`
}

// LabelLockTimeout returns LabelLockTimeoutSeconds as a time.Duration.
func (c Config) LabelLockTimeout() time.Duration {
	return time.Duration(c.LabelLockTimeoutSeconds) * time.Second
}

// Default returns the built-in configuration used when no store.toml
// is present.
func Default() Config {
	return Config{
		DictionaryBlockSize:     8,
		LabelLockTimeoutSeconds: 30,
		CacheEnabled:            true,
		LogLevel:                "info",
		LogJSON:                 false,
	}
}

// Load reads path and overlays it onto Default(). A missing file is
// not an error: it just means the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("storeconfig: reading %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("storeconfig: parsing %s: %w", path, err)
	}
	return cfg, nil
}
