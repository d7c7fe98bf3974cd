package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/models"
)

const DefaultTickInterval = 5 * time.Second

type RunnerConfig struct {
	Interval  time.Duration
	AfterTick func(event *models.SimulationEvent)
}

// Runner drives Store.Tick on a fixed interval in the background.
type Runner struct {
	store  *Store
	config RunnerConfig

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	ticks   uint64
}

func NewRunner(store *Store, cfg RunnerConfig) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	return &Runner{
		store:  store,
		config: cfg,
	}
}

// Start launches the tick loop. Calling it while running is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	go r.run(ctx)

	logger.WithField("interval", r.config.Interval.String()).Info("Simulation runner started")
}

func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()

	logger.Info("Simulation runner stopped")
}

func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Ticks reports how many ticks the runner has driven since construction.
func (r *Runner) Ticks() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

// TickOnce advances the simulation one step on the caller's goroutine,
// through the same path as the background loop.
func (r *Runner) TickOnce() *models.SimulationEvent {
	return r.tick()
}

func (r *Runner) tick() *models.SimulationEvent {
	event := r.store.Tick()

	r.mu.Lock()
	r.ticks++
	r.mu.Unlock()

	if r.config.AfterTick != nil {
		r.config.AfterTick(event)
	}
	return event
}
