package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Valaery/worldengine/events"
	"github.com/Valaery/worldengine/logger"
)

// ErrPipelineShuttingDown is returned by ExecuteTurn once Shutdown has
// been called and the pipeline is no longer accepting new turns.
var ErrPipelineShuttingDown = errors.New("pipeline is shutting down")

const (
	errFailedToAcquireSlot   = "failed to acquire turn execution slot: %w"
	errShutdownTimeout       = "shutdown timeout after %v"
	errMiddlewareChainBroken = "middleware %q did not call next() - chain is broken"
	errMiddlewareCalledTwice = "middleware %q called next() multiple times"
)

// Pipeline runs one tab's fixed middleware chain against successive turns.
// Middleware are bound at construction time to the tab's dependencies
// (world store, conversation log, rule engine, gateway); Pipeline itself
// only owns the concurrency and shutdown harness, so a host process with
// many tabs shares one semaphore-bounded pool of "turns in flight" across
// all of them while every individual tab still runs its turns one at a
// time (the caller serializes ExecuteTurn calls per tab; nothing here
// prevents two different tabs' Pipelines from running concurrently).
type Pipeline struct {
	middleware []Middleware
	config     Config
	emitter    *events.Emitter

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	shutdownMu sync.RWMutex
	isShutdown bool
}

// SetEmitter wires the pipeline to publish TurnStarted/TurnCompleted events
// for every ExecuteTurn call, and makes the same emitter available to
// middleware via Context.Emitter.
func (p *Pipeline) SetEmitter(emitter *events.Emitter) {
	p.emitter = emitter
}

// NewPipeline builds a Pipeline with default resource limits.
func NewPipeline(middleware ...Middleware) *Pipeline {
	return NewPipelineWithConfig(Config{}, middleware...)
}

// NewPipelineWithConfig builds a Pipeline with explicit resource limits;
// zero-valued fields in cfg fall back to the package defaults.
func NewPipelineWithConfig(cfg Config, middleware ...Middleware) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		middleware: middleware,
		config:     cfg,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrentTurns),
	}
}

func (p *Pipeline) isShuttingDown() bool {
	p.shutdownMu.RLock()
	defer p.shutdownMu.RUnlock()
	return p.isShutdown
}

// Shutdown marks the pipeline as no longer accepting new turns and waits
// for in-flight turns to finish, up to the configured grace period. A
// timeout returns an error but does not forcibly cancel in-flight work —
// the caller decides whether to cancel the turn's own context.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.shutdownMu.Lock()
	p.isShutdown = true
	p.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timeout := p.config.GracefulShutdownTimeout
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf(errShutdownTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExecuteTurn runs the full middleware chain for one turn: ingest, intent
// extraction, pre-validation, pre-rules, narrator context assembly and
// inference, post-validation, post-rules, NPC scheduling and inference,
// and persistence — in whatever order the middleware list was built in by
// the caller (normally the thirteen-step order spec.md names).
func (p *Pipeline) ExecuteTurn(ctx context.Context, tabID string, input Input) (*Result, error) {
	if p.isShuttingDown() {
		return nil, ErrPipelineShuttingDown
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf(errFailedToAcquireSlot, err)
	}
	defer p.sem.Release(1)

	p.wg.Add(1)
	defer p.wg.Done()

	turnCtx, cancel := context.WithTimeout(ctx, p.config.TurnTimeout)
	defer cancel()

	tc := &Context{
		TabID:   tabID,
		Input:   input,
		Trace:   Trace{StartedAt: time.Now()},
		Emitter: p.emitter,
	}

	chainErr := p.executeChain(turnCtx, tc, 0)

	tc.Trace.Completed = time.Now()
	p.emitter.TurnCompleted(tc.Turn, tc.Trace.Completed.Sub(tc.Trace.StartedAt), tc.Cancelled)

	if chainErr != nil {
		return nil, chainErr
	}
	return &Result{
		NarratorText: tc.NarratorText,
		NPCOutputs:   tc.NPCOutputs,
		Trace:        tc.Trace,
	}, nil
}

// executeChain dispatches to middleware[index], verifying it calls next()
// exactly once. A middleware that never calls next() silently truncates
// the chain; one that calls it twice corrupts the call stack. Both are
// programming errors in the middleware, logged rather than panicked on,
// matching the defensive posture of the chain this is grounded on.
func (p *Pipeline) executeChain(ctx context.Context, tc *Context, index int) error {
	if err := ctx.Err(); err != nil {
		tc.Cancelled = true
		tc.Trace.event("cancelled", err.Error())
		return err
	}
	if index >= len(p.middleware) {
		return nil
	}

	mw := p.middleware[index]
	var nextCalled bool
	var chainErr error

	next := func() error {
		if nextCalled {
			logger.Warn(fmt.Sprintf(errMiddlewareCalledTwice, mw.Name()))
			return chainErr
		}
		nextCalled = true
		chainErr = p.executeChain(ctx, tc, index+1)
		return chainErr
	}

	err := mw.Process(tc, next)
	if !nextCalled && err == nil {
		logger.Warn(fmt.Sprintf(errMiddlewareChainBroken, mw.Name()))
	}
	return err
}
