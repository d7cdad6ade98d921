package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
)

var ErrPoolClosed = errors.New("engine pool closed")

type PoolConfig struct {
	BinaryPath string
	Options    Options
	// Capacity bounds live engine processes.
	Capacity int
}

// Pool hands out exclusive engine sessions. Every session is started with
// the pool's option set, so an idle session can serve any caller.
type Pool struct {
	binaryPath string
	opt        Options

	// a token is held for every live engine process
	slots chan struct{}
	idle  chan *Session

	mu     sync.Mutex
	closed bool
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("stockfish binary check: %w", err)
	}
	if err := validateOptions(cfg.Options); err != nil {
		return nil, err
	}

	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity()
	}
	return &Pool{
		binaryPath: cfg.BinaryPath,
		opt:        cfg.Options,
		slots:      make(chan struct{}, capacity),
		idle:       make(chan *Session, capacity),
	}, nil
}

// Capacity reports how many sessions may run at once.
func (p *Pool) Capacity() int { return cap(p.slots) }

// Acquire returns an idle session, starts a new one while under capacity,
// or waits for a release until ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		if p.isClosed() {
			return nil, ErrPoolClosed
		}

		select {
		case s := <-p.idle:
			if p.ready(ctx, s) {
				return s, nil
			}
			continue
		default:
		}

		select {
		case s := <-p.idle:
			if p.ready(ctx, s) {
				return s, nil
			}
		case p.slots <- struct{}{}:
			s, err := NewSession(ctx, p.binaryPath, p.opt)
			if err != nil {
				<-p.slots
				return nil, err
			}
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release returns session to the pool. A session whose last search failed
// is shut down instead, since its output stream may be out of step.
func (p *Pool) Release(session *Session, err error) {
	if session == nil {
		return
	}
	if err != nil || p.isClosed() {
		p.retire(session)
		return
	}
	select {
	case p.idle <- session:
	default:
		p.retire(session)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case s := <-p.idle:
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			<-p.slots
		default:
			return errors.Join(errs...)
		}
	}
}

// ready checks an idle session before handing it out and retires it when
// the engine stopped answering.
func (p *Pool) ready(ctx context.Context, s *Session) bool {
	if err := s.EnsureReady(ctx); err != nil {
		p.retire(s)
		return false
	}
	return true
}

func (p *Pool) retire(s *Session) {
	_ = s.Close()
	<-p.slots
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// DefaultCapacity sizes the pool from the CPU count, between 2 and 4.
func DefaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}
