// Package config loads worker pool and logging settings from defaults, an
// optional config file and ASYNCTASK_* environment variables, and validates
// them before they are turned into core.PoolOptions.
package config
