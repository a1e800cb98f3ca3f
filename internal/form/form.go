// Package form implements the download form: its view state, URL platform
// detection and the simulated download session.
//
// A submit with a recognized URL starts a session made of two scheduled
// callbacks: a recurring tick that raises progress by a random amount up to
// a cap, and a one-shot completion that forces progress to 100. Both belong
// to the session context and stop when it ends. A trailing reset timer clears
// progress and the success message after completion.
package form

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/theme"
)

// Config holds the session timing.
type Config struct {
	TickInterval  time.Duration
	MaxIncrement  float64
	ProgressCap   float64
	CompleteAfter time.Duration
	ResetAfter    time.Duration
	Retry         RetryConfig
}

// DefaultConfig returns the standard session timing.
func DefaultConfig() Config {
	return Config{
		TickInterval:  200 * time.Millisecond,
		MaxIncrement:  15,
		ProgressCap:   90,
		CompleteAfter: 3 * time.Second,
		ResetAfter:    3 * time.Second,
		Retry:         DefaultRetryConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.MaxIncrement <= 0 {
		c.MaxIncrement = d.MaxIncrement
	}
	if c.ProgressCap <= 0 || c.ProgressCap >= 100 {
		c.ProgressCap = d.ProgressCap
	}
	if c.CompleteAfter <= 0 {
		c.CompleteAfter = d.CompleteAfter
	}
	if c.ResetAfter <= 0 {
		c.ResetAfter = d.ResetAfter
	}
	c.Retry = c.Retry.withDefaults()
	return c
}

// Request describes what a session was asked to fetch.
type Request struct {
	SessionID domain.SessionID
	URL       string
	Platform  domain.Platform
	Format    domain.Format
	Quality   domain.Quality
}

// Transfer performs the download for one session. It must return when ctx
// is cancelled. Any other error is reported to the user as a failure.
type Transfer func(ctx context.Context, req Request) error

// SimulatedTransfer returns a Transfer that waits d and never fails.
func SimulatedTransfer(d time.Duration) Transfer {
	return func(ctx context.Context, req Request) error {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// Hooks receive lifecycle notifications. They run outside the form lock on
// the goroutine that caused the transition and must not block.
type Hooks struct {
	OnStarted   func(domain.FormSnapshot)
	OnCompleted func(domain.FormSnapshot)
	OnFailed    func(domain.FormSnapshot, error)
	OnRejected  func(domain.FormSnapshot)
}

// Option configures a Form.
type Option func(*Form)

// WithID sets the form ID. Forms without one get a random UUID.
func WithID(id domain.FormID) Option {
	return func(f *Form) { f.id = id }
}

// WithTransfer replaces the simulated transfer.
func WithTransfer(t Transfer) Option {
	return func(f *Form) { f.transfer = t }
}

// WithRand sets the source of uniform values in [0,1) used for increments.
func WithRand(fn func() float64) Option {
	return func(f *Form) { f.rand = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Form) { f.logger = l }
}

// WithHooks sets the lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(f *Form) { f.hooks = h }
}

// Form is one download form instance. It is safe for concurrent use.
type Form struct {
	id       domain.FormID
	cfg      Config
	theme    theme.Theme
	transfer Transfer
	rand     func() float64
	logger   *slog.Logger
	hooks    Hooks

	mu         sync.Mutex
	url        string
	format     domain.Format
	quality    domain.Quality
	state      domain.FormState
	loading    bool
	progress   float64
	errMsg     string
	success    string
	sessionID  domain.SessionID
	gen        uint64 // bumped per started session; stale callbacks compare against it
	cancel     context.CancelFunc
	resetTimer *time.Timer
	closed     bool
	updatedAt  time.Time
	lastActive time.Time

	subMu       sync.RWMutex
	subscribers map[uint64]chan domain.FormSnapshot
	subSeq      uint64

	wg sync.WaitGroup
}

// New creates an idle form with default format and quality.
func New(cfg Config, th theme.Theme, opts ...Option) *Form {
	now := time.Now()
	f := &Form{
		cfg:         cfg.withDefaults(),
		theme:       th,
		rand:        rand.Float64,
		format:      domain.DefaultFormat,
		quality:     domain.DefaultQuality,
		state:       domain.FormStateIdle,
		updatedAt:   now,
		lastActive:  now,
		subscribers: make(map[uint64]chan domain.FormSnapshot),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.id == "" {
		f.id = domain.FormID(uuid.NewString())
	}
	if f.logger == nil {
		f.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f.logger = f.logger.With("form_id", f.id)
	if f.transfer == nil {
		f.transfer = SimulatedTransfer(f.cfg.CompleteAfter)
	}
	f.transfer = Retrying(f.transfer, f.cfg.Retry, f.logger)
	return f
}

// ID returns the form ID.
func (f *Form) ID() domain.FormID {
	return f.id
}

// Theme returns the theme the form draws its messages from.
func (f *Form) Theme() theme.Theme {
	return f.theme
}

// SetURL replaces the URL field.
func (f *Form) SetURL(rawURL string) {
	f.mu.Lock()
	f.url = rawURL
	snap := f.touchLocked()
	f.mu.Unlock()

	f.notify(snap)
}

// SetFormat replaces the format selection.
func (f *Form) SetFormat(format domain.Format) error {
	if _, err := domain.ParseFormat(string(format)); err != nil {
		return err
	}

	f.mu.Lock()
	f.format = format
	snap := f.touchLocked()
	f.mu.Unlock()

	f.notify(snap)
	return nil
}

// SetQuality replaces the quality selection.
func (f *Form) SetQuality(quality domain.Quality) error {
	if _, err := domain.ParseQuality(string(quality)); err != nil {
		return err
	}

	f.mu.Lock()
	f.quality = quality
	snap := f.touchLocked()
	f.mu.Unlock()

	f.notify(snap)
	return nil
}

// Apply updates every field set in the patch. Nothing changes if any field
// is invalid.
func (f *Form) Apply(p domain.FormPatch) error {
	if p.Format != nil {
		if _, err := domain.ParseFormat(string(*p.Format)); err != nil {
			return err
		}
	}
	if p.Quality != nil {
		if _, err := domain.ParseQuality(string(*p.Quality)); err != nil {
			return err
		}
	}

	f.mu.Lock()
	if p.URL != nil {
		f.url = *p.URL
	}
	if p.Format != nil {
		f.format = *p.Format
	}
	if p.Quality != nil {
		f.quality = *p.Quality
	}
	snap := f.touchLocked()
	f.mu.Unlock()

	f.notify(snap)
	return nil
}

// Platform returns the platform detected from the current URL.
func (f *Form) Platform() domain.Platform {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.DetectPlatform(f.url)
}

// Snapshot returns a copy of the current view state.
func (f *Form) Snapshot() domain.FormSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Busy reports whether a simulated session is running.
func (f *Form) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// LastActive returns the time of the last user interaction or state change.
func (f *Form) LastActive() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActive
}

// Submit validates the URL and starts a simulated session.
//
// It returns domain.ErrInvalidURL after setting the theme's invalid-URL
// message when the URL has no known platform, and domain.ErrBusy without
// touching state while a session is running. The session outlives ctx; only
// values are inherited from it.
func (f *Form) Submit(ctx context.Context) (domain.SessionID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return "", domain.ErrFormClosed
	}
	if f.loading {
		f.mu.Unlock()
		return "", domain.ErrBusy
	}

	prev := f.state
	f.state = domain.FormStateValidating
	f.errMsg = ""
	f.success = ""

	platform := domain.DetectPlatform(f.url)
	if !platform.Known() {
		f.errMsg = f.theme.InvalidURL
		f.state = domain.FormStateIdle
		snap := f.touchLocked()
		f.mu.Unlock()

		f.logger.Info("submit rejected", "url", snap.URL, "previous_state", prev)
		f.notify(snap)
		if f.hooks.OnRejected != nil {
			f.hooks.OnRejected(snap)
		}
		return "", domain.ErrInvalidURL
	}

	// A pending reset from the previous session would clobber this one.
	f.stopResetLocked()

	f.gen++
	gen := f.gen
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f.cancel = cancel
	f.sessionID = domain.SessionID(uuid.NewString())
	f.loading = true
	f.progress = 0
	f.state = domain.FormStateRunning

	req := Request{
		SessionID: f.sessionID,
		URL:       f.url,
		Platform:  platform,
		Format:    f.format,
		Quality:   f.quality,
	}
	snap := f.touchLocked()

	f.wg.Add(2)
	go f.tickLoop(sessionCtx, gen)
	go f.run(sessionCtx, gen, req)
	f.mu.Unlock()

	f.logger.Info("session started",
		"session_id", req.SessionID,
		"platform", platform,
		"format", req.Format,
		"quality", req.Quality,
	)
	f.notify(snap)
	if f.hooks.OnStarted != nil {
		f.hooks.OnStarted(snap)
	}
	return req.SessionID, nil
}

// Close cancels any running session and pending reset and closes all
// subscriber channels. It waits for session goroutines to exit.
func (f *Form) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.stopResetLocked()
	f.mu.Unlock()

	f.wg.Wait()

	f.subMu.Lock()
	for id, ch := range f.subscribers {
		close(ch)
		delete(f.subscribers, id)
	}
	f.subMu.Unlock()
}

func (f *Form) tickLoop(ctx context.Context, gen uint64) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !f.tick(gen) {
				return
			}
		}
	}
}

// tick advances progress once. It returns false when ticking should stop.
func (f *Form) tick(gen uint64) bool {
	f.mu.Lock()
	if gen != f.gen || !f.loading {
		f.mu.Unlock()
		return false
	}

	next := f.progress + f.rand()*f.cfg.MaxIncrement
	if next > f.cfg.ProgressCap {
		next = f.cfg.ProgressCap
	}
	if next > f.progress {
		f.progress = next
	}
	capped := f.progress >= f.cfg.ProgressCap
	snap := f.touchLocked()
	f.mu.Unlock()

	f.notify(snap)
	return !capped
}

func (f *Form) run(ctx context.Context, gen uint64, req Request) {
	defer f.wg.Done()

	err := f.transfer(ctx, req)
	if ctx.Err() != nil {
		// Closed mid-session.
		return
	}
	f.finish(gen, req, err)
}

func (f *Form) finish(gen uint64, req Request, transferErr error) {
	f.mu.Lock()
	if gen != f.gen || f.closed {
		f.mu.Unlock()
		return
	}

	if transferErr == nil {
		f.progress = 100
		f.success = f.theme.Success
	} else {
		f.errMsg = f.theme.Failure
	}
	f.loading = false
	f.state = domain.FormStateCompleting
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.resetTimer = time.AfterFunc(f.cfg.ResetAfter, func() { f.reset(gen) })
	snap := f.touchLocked()
	f.mu.Unlock()

	f.notify(snap)

	if transferErr != nil {
		err := fmt.Errorf("%w: %v", domain.ErrTransferFailed, transferErr)
		f.logger.Warn("session failed", "session_id", req.SessionID, "error", err)
		if f.hooks.OnFailed != nil {
			f.hooks.OnFailed(snap, err)
		}
		return
	}

	f.logger.Info("session completed", "session_id", req.SessionID)
	if f.hooks.OnCompleted != nil {
		f.hooks.OnCompleted(snap)
	}
}

func (f *Form) reset(gen uint64) {
	f.mu.Lock()
	if gen != f.gen || f.closed {
		f.mu.Unlock()
		return
	}

	f.resetTimer = nil
	f.progress = 0
	f.success = ""
	if f.state == domain.FormStateCompleting {
		f.state = domain.FormStateIdle
	}
	snap := f.touchLocked()
	f.mu.Unlock()

	f.notify(snap)
}

func (f *Form) stopResetLocked() {
	if f.resetTimer != nil {
		f.resetTimer.Stop()
		f.resetTimer = nil
	}
}

func (f *Form) touchLocked() domain.FormSnapshot {
	now := time.Now()
	f.updatedAt = now
	f.lastActive = now
	return f.snapshotLocked()
}

func (f *Form) snapshotLocked() domain.FormSnapshot {
	return domain.FormSnapshot{
		ID:        f.id,
		Theme:     f.theme.Name,
		URL:       f.url,
		Platform:  domain.DetectPlatform(f.url),
		Format:    f.format,
		Quality:   f.quality,
		State:     f.state,
		IsLoading: f.loading,
		Progress:  f.progress,
		Error:     f.errMsg,
		Success:   f.success,
		SessionID: f.sessionID,
		UpdatedAt: f.updatedAt,
	}
}
