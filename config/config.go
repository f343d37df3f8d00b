package config

import "github.com/Swind/go-async-task/core"

// Config holds all library configuration.
type Config struct {
	Pool PoolConfig `mapstructure:"pool"`
	Log  LogConfig  `mapstructure:"log"`
}

// PoolConfig contains the settings of a worker pool.
type PoolConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	// Workers of 0 means one less than the number of CPUs, at least one.
	Workers int `mapstructure:"workers" validate:"gte=0,lte=4096"`
	// ForcedWorkers overrides Workers when set.
	ForcedWorkers   int  `mapstructure:"forced_workers" validate:"gte=0,lte=4096"`
	Debug           bool `mapstructure:"debug"`
	HistoryCapacity int  `mapstructure:"history_capacity" validate:"gte=0,lte=100000"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level       string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// Options converts the pool settings into core.PoolOptions.
// Hooks (logger, metrics, panic handler) are left for the caller to set.
func (c PoolConfig) Options() core.PoolOptions {
	return core.PoolOptions{
		Workers:         c.Workers,
		ForcedWorkers:   c.ForcedWorkers,
		Debug:           c.Debug,
		HistoryCapacity: c.HistoryCapacity,
	}
}
