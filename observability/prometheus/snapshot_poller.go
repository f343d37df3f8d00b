package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-async-task/core"
)

// PoolSnapshotProvider provides current pool stats snapshots. *core.WorkerPool implements it.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

var _ PoolSnapshotProvider = (*core.WorkerPool)(nil)

// poolGauges holds one gauge vector per PoolStats field, all labelled by pool.
type poolGauges struct {
	queued    *prom.GaugeVec
	active    *prom.GaugeVec
	abandoned *prom.GaugeVec
	workers   *prom.GaugeVec
	running   *prom.GaugeVec
}

func newPoolGauges(reg prom.Registerer) (poolGauges, error) {
	var g poolGauges
	specs := []struct {
		dst  **prom.GaugeVec
		name string
		help string
	}{
		{&g.queued, "pool_queued", "Queued tasks per pool."},
		{&g.active, "pool_active", "Tasks currently dispatched per pool."},
		{&g.abandoned, "pool_abandoned", "Tasks dropped at shutdown per pool."},
		{&g.workers, "pool_workers", "Worker count per pool."},
		{&g.running, "pool_running", "Pool running state (1=running, 0=stopped)."},
	}

	for _, s := range specs {
		vec, err := registerCollector(reg, prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: DefaultNamespace,
			Name:      s.name,
			Help:      s.help,
		}, []string{"pool"}))
		if err != nil {
			return poolGauges{}, err
		}
		*s.dst = vec
	}
	return g, nil
}

func (g poolGauges) set(pool string, stats core.PoolStats) {
	running := 0.0
	if stats.Running {
		running = 1
	}
	g.queued.WithLabelValues(pool).Set(float64(stats.Queued))
	g.active.WithLabelValues(pool).Set(float64(stats.Active))
	g.abandoned.WithLabelValues(pool).Set(float64(stats.Abandoned))
	g.workers.WithLabelValues(pool).Set(float64(stats.Workers))
	g.running.WithLabelValues(pool).Set(running)
}

func (g poolGauges) delete(pool string) {
	for _, vec := range []*prom.GaugeVec{g.queued, g.active, g.abandoned, g.workers, g.running} {
		vec.DeleteLabelValues(pool)
	}
}

// SnapshotPoller periodically exports pool Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration
	gauges   poolGauges

	mu    sync.Mutex
	pools map[string]PoolSnapshotProvider
	stop  func() // nil while not polling
}

// NewSnapshotPoller registers the pool gauges on reg (the default registerer
// when nil). A non-positive interval means one second.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauges, err := newPoolGauges(reg)
	if err != nil {
		return nil, err
	}
	return &SnapshotPoller{
		interval: interval,
		gauges:   gauges,
		pools:    make(map[string]PoolSnapshotProvider),
	}, nil
}

// AddPool starts exporting provider under name, replacing any previous one.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.pools[normalizeLabel(name, "pool")] = provider
	p.mu.Unlock()
}

// RemovePool stops exporting a pool and deletes its series.
func (p *SnapshotPoller) RemovePool(name string) {
	if p == nil {
		return
	}
	name = normalizeLabel(name, "pool")

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pools, name)
	p.gauges.delete(name)
}

// Start polls in the background until ctx ends or Stop is called.
// Calling Start while already polling does nothing.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}

	pollCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.poll(pollCtx)
	}()

	p.stop = func() {
		cancel()
		wg.Wait()
	}
}

// Stop ends polling and waits for the polling goroutine to exit. Safe to call repeatedly.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (p *SnapshotPoller) poll(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.collectOnce()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// collectOnce holds p.mu for the whole pass so a concurrent RemovePool
// cannot have its series written back.
func (p *SnapshotPoller) collectOnce() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, provider := range p.pools {
		p.gauges.set(name, provider.Stats())
	}
}
