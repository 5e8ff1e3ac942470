// Package dispatcher implements the single driver thread that matches
// idle processor engines to available jobs, drains their results into
// the job manager, and restarts engines that die unexpectedly (spec.md
// §4.4).
package dispatcher

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ivoronin/biggrep/internal/manager"
	"github.com/ivoronin/biggrep/internal/processor"
	"github.com/rs/zerolog"
)

// idlePassSleep is how long the dispatcher sleeps after a pass that
// placed no work, per spec.md §4.4 ("≈10 ms").
const idlePassSleep = 10 * time.Millisecond

// Dispatcher is the scheduler loop described in spec.md §4.4.
type Dispatcher struct {
	mgr    *manager.Manager
	logger zerolog.Logger

	mu      sync.Mutex
	engines []*processor.Engine

	live     atomic.Bool
	crashed  atomic.Bool
	loopDone chan struct{}
}

// New creates a Dispatcher driving jobs through mgr.
func New(mgr *manager.Manager, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{mgr: mgr, logger: logger}
}

// AddEngine registers e with the dispatcher and starts its run loop.
func (d *Dispatcher) AddEngine(e *processor.Engine) {
	d.mu.Lock()
	d.engines = append(d.engines, e)
	d.mu.Unlock()
	go e.Run()
}

// Engines returns a snapshot of the currently registered engines.
func (d *Dispatcher) Engines() []*processor.Engine {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*processor.Engine(nil), d.engines...)
}

// Start begins the dispatcher's driver loop in its own goroutine.
func (d *Dispatcher) Start() {
	d.live.Store(true)
	d.loopDone = make(chan struct{})
	go d.loop()
}

// Crashed reports whether the dispatcher's own loop exited due to a
// panic rather than Stop.
func (d *Dispatcher) Crashed() bool { return d.crashed.Load() }

func (d *Dispatcher) loop() {
	defer close(d.loopDone)
	defer func() {
		if r := recover(); r != nil {
			d.crashed.Store(true)
			d.logger.Error().Interface("panic", r).Msg("dispatcher crashed")
		}
	}()

	for d.live.Load() {
		if !d.pass() {
			time.Sleep(idlePassSleep)
		}
	}
}

// pass walks the engine list once, offering work and harvesting results.
// Returns true if any work was placed or harvested.
func (d *Dispatcher) pass() bool {
	engines := d.Engines()
	progressed := false

	for i, e := range engines {
		select {
		case <-e.Done():
			if e.Crashed() {
				d.replaceEngine(i, e)
				progressed = true
			}
			continue
		default:
		}

		proc := e.Processor()
		if proc.NeedsJob() {
			if j, ok := d.mgr.GetJob(proc.Kind()); ok {
				_ = proc.AddJob(j)
				progressed = true
			}
		}

		if results := proc.GetResults(); len(results) > 0 {
			for _, r := range results {
				d.mgr.PutJob(r)
			}
			progressed = true
		}
	}
	return progressed
}

// replaceEngine creates a fresh engine bound to the crashed engine's
// processor and starts it, per spec.md §4.4.
func (d *Dispatcher) replaceEngine(i int, dead *processor.Engine) {
	d.logger.Warn().Str("kind", dead.Processor().Kind().String()).Msg("restarting dead processor engine")
	replacement := processor.NewEngine(dead.Processor(), d.logger)

	d.mu.Lock()
	if i < len(d.engines) && d.engines[i] == dead {
		d.engines[i] = replacement
	} else {
		d.engines = append(d.engines, replacement)
	}
	d.mu.Unlock()

	go replacement.Run()
}

// Stop requests shutdown: stops the driver loop, stops every engine,
// waits for all engine goroutines to exit, and drains any results they
// produced before exiting (spec.md §9).
func (d *Dispatcher) Stop() {
	d.live.Store(false)
	if d.loopDone != nil {
		<-d.loopDone
	}

	engines := d.Engines()
	for _, e := range engines {
		e.Stop()
	}
	for _, e := range engines {
		<-e.Done()
	}

	for _, e := range engines {
		for _, r := range e.Processor().GetResults() {
			d.mgr.PutJob(r)
		}
	}
}
