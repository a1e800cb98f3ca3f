package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrShutdownTimeout is returned when the sweeper doesn't stop within timeout.
var ErrShutdownTimeout = errors.New("sweeper shutdown timed out")

// IdleSweeper removes forms that have been inactive for too long.
type IdleSweeper interface {
	SweepIdle(ctx context.Context, ttl time.Duration) (int, error)
}

// Sweeper periodically expires idle forms.
type Sweeper struct {
	interval time.Duration
	ttl      time.Duration
	target   IdleSweeper
	logger   *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds sweeper configuration.
type Config struct {
	Interval time.Duration
	IdleTTL  time.Duration
}

// NewSweeper creates a new sweeper.
func NewSweeper(cfg Config, target IdleSweeper, logger *slog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sweeper{
		interval: cfg.Interval,
		ttl:      cfg.IdleTTL,
		target:   target,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	s.logger.Info("starting idle sweeper", "interval", s.interval, "idle_ttl", s.ttl)

	s.wg.Add(1)
	go s.loop()
}

// Stop stops the sweep loop.
func (s *Sweeper) Stop(timeout time.Duration) error {
	s.logger.Info("stopping idle sweeper")
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("idle sweeper stopped")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	removed, err := s.target.SweepIdle(s.ctx, s.ttl)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("idle sweep failed", "error", err)
		}
		return
	}
	if removed > 0 {
		s.logger.Info("expired idle forms", "removed", removed)
	}
}
