package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dfarias/chessinsight/internal/logger"
	"github.com/dfarias/chessinsight/internal/models"
)

// Pool manages a fixed set of engine sessions so games can be analyzed in
// parallel without two goroutines sharing one session.
type Pool struct {
	engines chan *Engine
	mu      sync.Mutex
	closed  bool
	log     *logger.Logger
}

// NewPool starts size engine sessions. Any startup failure closes the sessions
// already opened and fails the pool; a partially-initialized pool is useless.
func NewPool(path string, depth int, moveTime time.Duration, size int) (*Pool, error) {
	if size <= 0 {
		size = 1
	}
	log := logger.Default().WithPrefix("engine-pool")

	pool := &Pool{
		engines: make(chan *Engine, size),
		log:     log,
	}

	log.Info("initializing engine pool with %d sessions", size)
	for i := 0; i < size; i++ {
		e, err := New(path, depth, moveTime)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.engines <- e
	}
	log.Info("engine pool ready")
	return pool, nil
}

// Acquire gets a session from the pool, blocking until one is free.
func (p *Pool) Acquire(ctx context.Context) (*Engine, error) {
	select {
	case e := <-p.engines:
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a session to the pool.
func (p *Pool) Release(e *Engine) {
	if e == nil {
		return
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		e.Close()
		return
	}
	select {
	case p.engines <- e:
	default:
		e.Close()
	}
}

// Evaluate acquires a session, evaluates one position, and releases it.
func (p *Pool) Evaluate(ctx context.Context, fen string) (models.PositionEvaluation, error) {
	e, err := p.Acquire(ctx)
	if err != nil {
		return models.PositionEvaluation{}, err
	}
	defer p.Release(e)
	return e.Evaluate(ctx, fen)
}

// Close shuts down every session in the pool.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	p.log.Info("closing engine pool")
	close(p.engines)
	for e := range p.engines {
		e.Close()
	}
}

// Available returns how many sessions are currently idle.
func (p *Pool) Available() int {
	return len(p.engines)
}
