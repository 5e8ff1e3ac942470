package processor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// idleSleep is the short sleep an engine takes when paused or out of
// work, favoring a simple poll loop over a condition variable.
const idleSleep = 5 * time.Millisecond

// Engine is a long-lived worker bound to one Processor. It runs do() in
// a loop, sleeping briefly when paused or idle, and supports cooperative
// pause/resume and graceful termination.
type Engine struct {
	proc   Processor
	logger zerolog.Logger

	pauseMu sync.Mutex
	paused  bool

	live    atomic.Bool
	crashed atomic.Bool
	done    chan struct{}
}

// NewEngine creates an Engine driving proc. The engine does not start
// running until Run is called (typically in its own goroutine).
func NewEngine(proc Processor, logger zerolog.Logger) *Engine {
	e := &Engine{proc: proc, logger: logger, done: make(chan struct{})}
	e.live.Store(true)
	return e
}

// Processor returns the processor this engine drives.
func (e *Engine) Processor() Processor { return e.proc }

// Pause suspends the engine's run loop before its next do() call. A
// do() already in flight always completes first (cooperative pausing).
func (e *Engine) Pause() {
	e.pauseMu.Lock()
	e.paused = true
	e.pauseMu.Unlock()
}

// Resume un-suspends the engine.
func (e *Engine) Resume() {
	e.pauseMu.Lock()
	e.paused = false
	e.pauseMu.Unlock()
}

// IsPaused reports whether the engine is currently paused.
func (e *Engine) IsPaused() bool {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()
	return e.paused
}

// Stop requests graceful termination; Run exits after its current do()
// call (if any) completes.
func (e *Engine) Stop() { e.live.Store(false) }

// Crashed reports whether Run exited due to a panic rather than Stop.
func (e *Engine) Crashed() bool { return e.crashed.Load() }

// Done returns a channel closed when Run has exited, for either reason.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Run executes the engine's loop until Stop is called or the processor
// panics. Always calls the processor's Clean on exit.
func (e *Engine) Run() {
	defer close(e.done)
	defer e.proc.Clean()
	defer func() {
		if r := recover(); r != nil {
			e.crashed.Store(true)
			e.logger.Error().Interface("panic", r).Msg("processor engine crashed")
		}
	}()

	for e.live.Load() {
		if e.IsPaused() {
			time.Sleep(idleSleep)
			continue
		}
		if err := e.proc.Do(); err != nil {
			if err == ErrNoWork {
				time.Sleep(idleSleep)
				continue
			}
			e.logger.Error().Err(err).Msg("processor do() failed")
		}
	}
}
