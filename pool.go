package asynctask

import (
	"sync"

	"github.com/Swind/go-async-task/config"
	"github.com/Swind/go-async-task/core"
	"github.com/Swind/go-async-task/observability/zaplog"
)

// =============================================================================
// Default Pool Helper (Singleton)
// =============================================================================

var (
	defaultPool    *core.WorkerPool
	defaultLogger  *zaplog.Logger
	defaultStopped bool
	defaultMu      sync.Mutex
)

// InitDefaultPool creates the default pool with explicit options instead of
// the environment configuration. It returns false if the default pool already
// exists, in which case opts are ignored.
func InitDefaultPool(opts core.PoolOptions) bool {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool != nil {
		return false
	}

	defaultPool = core.NewWorkerPool("default-pool", opts)
	if defaultStopped {
		defaultPool.Shutdown()
	}
	return true
}

// DefaultPool returns the process-wide pool used by NewTask and NewAction.
// On first use it is built from config.Load("") (ASYNCTASK_* variables) with
// a zap logger. It is never replaced: after ShutdownDefaultPool it keeps
// returning the same stopped pool.
func DefaultPool() *core.WorkerPool {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool == nil {
		defaultPool = newDefaultPool()
		if defaultStopped {
			defaultPool.Shutdown()
		}
	}
	return defaultPool
}

func newDefaultPool() *core.WorkerPool {
	cfg, cfgErr := config.Load("")
	if cfgErr != nil {
		cfg = config.Default()
	}

	opts := cfg.Pool.Options()
	if logger, err := zaplog.New(cfg.Log.Level, cfg.Log.Development); err == nil {
		defaultLogger = logger
		opts.Logger = logger.Named(cfg.Pool.Name)
		if cfgErr != nil {
			defaultLogger.Warn("invalid default pool configuration, using defaults", core.F("error", cfgErr))
		}
	}

	return core.NewWorkerPool(cfg.Pool.Name, opts)
}

// ShutdownDefaultPool stops the default pool: running tasks complete, queued
// tasks are abandoned and later RunAsync calls fail with ErrPoolStopped.
// It is idempotent and the pool is never restarted.
//
// defaultMu is released before waiting for workers, so tasks still running
// may call DefaultPool and get ErrPoolStopped on enqueue.
func ShutdownDefaultPool() {
	defaultMu.Lock()
	defaultStopped = true
	pool, logger := defaultPool, defaultLogger
	defaultMu.Unlock()

	if pool != nil {
		pool.Shutdown()
	}
	if logger != nil {
		_ = logger.Sync()
	}
}
