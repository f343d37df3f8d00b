package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "ASYNCTASK"

var defaults = map[string]any{
	"pool.name":             "default-pool",
	"pool.workers":          0,
	"pool.forced_workers":   0,
	"pool.debug":            false,
	"pool.history_capacity": 100,
	"log.level":             "info",
	"log.development":       false,
}

// Load reads configuration from defaults, the optional config file at path and
// the environment. Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	return LoadFrom(viper.New(), path)
}

// LoadFrom is Load on a caller-provided viper instance, so command line flags
// bound to v take part in the lookup.
func LoadFrom(v *viper.Viper, path string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key := range defaults {
		envVar := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration without consulting the
// environment or any file.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Name:            defaults["pool.name"].(string),
			HistoryCapacity: defaults["pool.history_capacity"].(int),
		},
		Log: LogConfig{
			Level: defaults["log.level"].(string),
		},
	}
}
