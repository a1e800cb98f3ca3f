package form

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/theme"
)

func testConfig() Config {
	return Config{
		TickInterval:  2 * time.Millisecond,
		MaxIncrement:  15,
		ProgressCap:   90,
		CompleteAfter: 60 * time.Millisecond,
		ResetAfter:    60 * time.Millisecond,
	}
}

func plainTheme(t *testing.T) theme.Theme {
	t.Helper()
	th, err := theme.Lookup(theme.PlainName)
	if err != nil {
		t.Fatalf("lookup theme: %v", err)
	}
	return th
}

func questTheme(t *testing.T) theme.Theme {
	t.Helper()
	th, err := theme.Lookup(theme.QuestName)
	if err != nil {
		t.Fatalf("lookup theme: %v", err)
	}
	return th
}

func half() float64 { return 0.5 }

// waitFor polls the form until cond holds or the deadline passes.
func waitFor(t *testing.T, f *Form, timeout time.Duration, what string, cond func(domain.FormSnapshot) bool) domain.FormSnapshot {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		snap := f.Snapshot()
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last snapshot: %+v", what, snap)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNew_Defaults(t *testing.T) {
	f := New(Config{}, plainTheme(t))
	defer f.Close()

	snap := f.Snapshot()
	if snap.ID == "" {
		t.Error("ID should be generated")
	}
	if snap.Format != domain.FormatMP4 {
		t.Errorf("Format = %q, want mp4", snap.Format)
	}
	if snap.Quality != domain.Quality720p {
		t.Errorf("Quality = %q, want 720p", snap.Quality)
	}
	if snap.State != domain.FormStateIdle {
		t.Errorf("State = %q, want idle", snap.State)
	}
	if snap.IsLoading || snap.Progress != 0 || snap.Error != "" || snap.Success != "" {
		t.Errorf("unexpected initial state: %+v", snap)
	}
	if snap.Theme != theme.PlainName {
		t.Errorf("Theme = %q", snap.Theme)
	}
	if f.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", f.cfg)
	}
}

func TestNew_WithID(t *testing.T) {
	f := New(testConfig(), plainTheme(t), WithID("form-1"))
	defer f.Close()

	if f.ID() != "form-1" {
		t.Errorf("ID() = %q, want form-1", f.ID())
	}
}

func TestForm_SetFields(t *testing.T) {
	f := New(testConfig(), plainTheme(t))
	defer f.Close()

	f.SetURL("https://youtu.be/abc")
	if f.Platform() != domain.PlatformYouTube {
		t.Errorf("Platform() = %q, want youtube", f.Platform())
	}

	if err := f.SetFormat(domain.FormatWAV); err != nil {
		t.Fatalf("SetFormat: %v", err)
	}
	if err := f.SetQuality(domain.Quality1080p); err != nil {
		t.Fatalf("SetQuality: %v", err)
	}
	if err := f.SetFormat("avi"); !errors.Is(err, domain.ErrInvalidFormat) {
		t.Errorf("SetFormat(avi) = %v, want ErrInvalidFormat", err)
	}
	if err := f.SetQuality("4k"); !errors.Is(err, domain.ErrInvalidQuality) {
		t.Errorf("SetQuality(4k) = %v, want ErrInvalidQuality", err)
	}

	snap := f.Snapshot()
	if snap.Format != domain.FormatWAV || snap.Quality != domain.Quality1080p {
		t.Errorf("got format=%q quality=%q", snap.Format, snap.Quality)
	}
	if snap.Platform != domain.PlatformYouTube {
		t.Errorf("snapshot platform = %q", snap.Platform)
	}
}

func TestForm_Apply(t *testing.T) {
	f := New(testConfig(), plainTheme(t))
	defer f.Close()

	url := "https://x.com/a/status/1"
	format := domain.FormatMP3
	if err := f.Apply(domain.FormPatch{URL: &url, Format: &format}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	snap := f.Snapshot()
	if snap.URL != url || snap.Format != domain.FormatMP3 || snap.Quality != domain.Quality720p {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	// An invalid field rejects the whole patch.
	other := "https://youtube.com/watch?v=1"
	bad := domain.Quality("4k")
	if err := f.Apply(domain.FormPatch{URL: &other, Quality: &bad}); !errors.Is(err, domain.ErrInvalidQuality) {
		t.Fatalf("Apply error = %v, want ErrInvalidQuality", err)
	}
	if f.Snapshot().URL != url {
		t.Error("URL should be unchanged after rejected patch")
	}
}

func TestForm_Submit_InvalidURL(t *testing.T) {
	tests := []struct {
		name    string
		theme   func(*testing.T) theme.Theme
		wantMsg string
	}{
		{"plain", plainTheme, "Please enter a valid YouTube or X (Twitter) URL"},
		{"quest", questTheme, "Invalid URL detected! Please enter a valid YouTube or X (Twitter) URL to continue your quest."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rejected atomic.Int32
			f := New(testConfig(), tt.theme(t), WithHooks(Hooks{
				OnRejected: func(domain.FormSnapshot) { rejected.Add(1) },
			}))
			defer f.Close()

			f.SetURL("not a url")
			id, err := f.Submit(context.Background())
			if !errors.Is(err, domain.ErrInvalidURL) {
				t.Fatalf("Submit error = %v, want ErrInvalidURL", err)
			}
			if id != "" {
				t.Errorf("session id = %q, want empty", id)
			}

			snap := f.Snapshot()
			if snap.Error != tt.wantMsg {
				t.Errorf("Error = %q, want %q", snap.Error, tt.wantMsg)
			}
			if snap.IsLoading || snap.State != domain.FormStateIdle {
				t.Errorf("state = %q loading = %v, want idle/false", snap.State, snap.IsLoading)
			}
			if rejected.Load() != 1 {
				t.Errorf("OnRejected called %d times, want 1", rejected.Load())
			}

			// No timer was started.
			time.Sleep(20 * time.Millisecond)
			if p := f.Snapshot().Progress; p != 0 {
				t.Errorf("progress = %v after rejected submit, want 0", p)
			}
		})
	}
}

func TestForm_Submit_CompletesAndResets(t *testing.T) {
	var completed atomic.Int32
	f := New(testConfig(), plainTheme(t), WithRand(half), WithHooks(Hooks{
		OnCompleted: func(domain.FormSnapshot) { completed.Add(1) },
	}))
	defer f.Close()

	// Leave a stale error behind to check submit clears it.
	f.SetURL("nope")
	f.Submit(context.Background())

	f.SetURL("https://youtube.com/watch?v=abc")
	id, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" {
		t.Error("session id should be set")
	}

	snap := f.Snapshot()
	if !snap.IsLoading {
		t.Error("IsLoading should be true right after submit")
	}
	if snap.Error != "" || snap.Success != "" {
		t.Errorf("messages should be cleared, got error=%q success=%q", snap.Error, snap.Success)
	}
	if snap.SessionID != id {
		t.Errorf("SessionID = %q, want %q", snap.SessionID, id)
	}

	done := waitFor(t, f, time.Second, "completion", func(s domain.FormSnapshot) bool {
		return !s.IsLoading
	})
	if done.Progress != 100 {
		t.Errorf("Progress = %v at completion, want 100", done.Progress)
	}
	if done.Success != "Download completed successfully!" {
		t.Errorf("Success = %q", done.Success)
	}
	if done.State != domain.FormStateCompleting {
		t.Errorf("State = %q, want completing", done.State)
	}
	if completed.Load() != 1 {
		t.Errorf("OnCompleted called %d times, want 1", completed.Load())
	}

	reset := waitFor(t, f, time.Second, "reset", func(s domain.FormSnapshot) bool {
		return s.State == domain.FormStateIdle
	})
	if reset.Progress != 0 || reset.Success != "" || reset.IsLoading {
		t.Errorf("after reset got %+v", reset)
	}
}

func TestForm_ProgressMonotonicAndCapped(t *testing.T) {
	// Near-maximal increments hit the cap after a handful of ticks.
	f := New(testConfig(), plainTheme(t), WithRand(func() float64 { return 0.99 }))
	defer f.Close()

	subID, ch := f.Subscribe()
	defer f.Unsubscribe(subID)

	f.SetURL("https://twitter.com/user/status/1")
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	last := -1.0
	sawCap := false
	timeout := time.After(time.Second)
	for {
		select {
		case snap := <-ch:
			if !snap.IsLoading {
				if snap.State == domain.FormStateCompleting {
					if snap.Progress != 100 {
						t.Errorf("completion progress = %v, want 100", snap.Progress)
					}
					if !sawCap {
						t.Error("progress never reached the cap before completion")
					}
					return
				}
				continue
			}
			if snap.Progress < last {
				t.Errorf("progress decreased from %v to %v", last, snap.Progress)
			}
			if snap.Progress > 90 {
				t.Errorf("progress %v exceeds cap while running", snap.Progress)
			}
			if snap.Progress == 90 {
				sawCap = true
			}
			last = snap.Progress
		case <-timeout:
			t.Fatal("timed out waiting for completion")
		}
	}
}

func TestForm_Submit_Busy(t *testing.T) {
	f := New(testConfig(), plainTheme(t))
	defer f.Close()

	f.SetURL("https://youtu.be/abc")
	first, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	if _, err := f.Submit(context.Background()); !errors.Is(err, domain.ErrBusy) {
		t.Errorf("second Submit error = %v, want ErrBusy", err)
	}
	if got := f.Snapshot().SessionID; got != first {
		t.Errorf("SessionID changed to %q on busy submit", got)
	}
	if !f.Busy() {
		t.Error("Busy() should be true")
	}
}

func TestForm_Submit_CancelledContext(t *testing.T) {
	f := New(testConfig(), plainTheme(t))
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.SetURL("https://youtu.be/abc")
	if _, err := f.Submit(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Submit error = %v, want context.Canceled", err)
	}
	if f.Busy() {
		t.Error("no session should start")
	}
}

func TestForm_SessionOutlivesSubmitContext(t *testing.T) {
	f := New(testConfig(), plainTheme(t))
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	f.SetURL("https://youtu.be/abc")
	if _, err := f.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancel()

	snap := waitFor(t, f, time.Second, "completion", func(s domain.FormSnapshot) bool {
		return !s.IsLoading
	})
	if snap.Progress != 100 {
		t.Errorf("Progress = %v, want 100", snap.Progress)
	}
}

func TestForm_TransferFailure(t *testing.T) {
	var failedErr atomic.Value
	boom := errors.New("boom")
	f := New(testConfig(), questTheme(t),
		WithTransfer(func(ctx context.Context, req Request) error { return boom }),
		WithHooks(Hooks{OnFailed: func(_ domain.FormSnapshot, err error) { failedErr.Store(err) }}),
	)
	defer f.Close()

	f.SetURL("https://x.com/a/status/1")
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := waitFor(t, f, time.Second, "failure", func(s domain.FormSnapshot) bool {
		return !s.IsLoading
	})
	if snap.Error != "Quest failed! The download spell was interrupted. Try casting again." {
		t.Errorf("Error = %q", snap.Error)
	}
	if snap.Success != "" {
		t.Errorf("Success = %q, want empty", snap.Success)
	}
	if snap.Progress == 100 {
		t.Error("failed session should not force progress to 100")
	}

	err, _ := failedErr.Load().(error)
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Errorf("OnFailed error = %v, want ErrTransferFailed", err)
	}

	reset := waitFor(t, f, time.Second, "reset", func(s domain.FormSnapshot) bool {
		return s.State == domain.FormStateIdle
	})
	if reset.Progress != 0 {
		t.Errorf("Progress = %v after reset, want 0", reset.Progress)
	}
	if reset.Error == "" {
		t.Error("error message should survive the reset")
	}
}

func TestForm_TransferReceivesRequest(t *testing.T) {
	got := make(chan Request, 1)
	f := New(testConfig(), plainTheme(t), WithTransfer(func(ctx context.Context, req Request) error {
		got <- req
		return nil
	}))
	defer f.Close()

	f.SetURL("https://youtu.be/abc")
	f.SetFormat(domain.FormatMP3)
	f.SetQuality(domain.Quality360p)
	id, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case req := <-got:
		if req.SessionID != id || req.URL != "https://youtu.be/abc" ||
			req.Platform != domain.PlatformYouTube || req.Format != domain.FormatMP3 ||
			req.Quality != domain.Quality360p {
			t.Errorf("unexpected request: %+v", req)
		}
	case <-time.After(time.Second):
		t.Fatal("transfer was not called")
	}
}

func TestForm_ResubmitCancelsPendingReset(t *testing.T) {
	cfg := testConfig()
	cfg.ResetAfter = 80 * time.Millisecond

	release := make(chan struct{})
	var calls atomic.Int32
	f := New(cfg, plainTheme(t), WithRand(half), WithTransfer(func(ctx context.Context, req Request) error {
		if calls.Add(1) == 1 {
			return nil
		}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))
	defer f.Close()
	defer close(release)

	f.SetURL("https://youtu.be/abc")
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	waitFor(t, f, time.Second, "first completion", func(s domain.FormSnapshot) bool {
		return s.State == domain.FormStateCompleting
	})

	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	// Past the first session's reset deadline the second must still be running.
	time.Sleep(2 * cfg.ResetAfter)
	snap := f.Snapshot()
	if !snap.IsLoading || snap.State != domain.FormStateRunning {
		t.Fatalf("second session disturbed: %+v", snap)
	}
	if snap.Progress == 0 {
		t.Error("progress was reset under a running session")
	}
}

func TestForm_InvalidSubmitDuringCompletingKeepsReset(t *testing.T) {
	f := New(testConfig(), plainTheme(t))
	defer f.Close()

	f.SetURL("https://youtu.be/abc")
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, f, time.Second, "completion", func(s domain.FormSnapshot) bool {
		return s.State == domain.FormStateCompleting
	})

	f.SetURL("garbage")
	if _, err := f.Submit(context.Background()); !errors.Is(err, domain.ErrInvalidURL) {
		t.Fatalf("Submit error = %v, want ErrInvalidURL", err)
	}

	snap := waitFor(t, f, time.Second, "progress reset", func(s domain.FormSnapshot) bool {
		return s.Progress == 0
	})
	if snap.Success != "" {
		t.Errorf("Success = %q, want empty", snap.Success)
	}
	if snap.Error == "" {
		t.Error("invalid URL error should remain")
	}
}

func TestForm_Close(t *testing.T) {
	f := New(testConfig(), plainTheme(t), WithTransfer(func(ctx context.Context, req Request) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	_, ch := f.Subscribe()

	f.SetURL("https://youtu.be/abc")
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	done := make(chan struct{})
	go func() {
		f.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	// Drain; channel must be closed.
	for range ch {
	}

	if _, err := f.Submit(context.Background()); !errors.Is(err, domain.ErrFormClosed) {
		t.Errorf("Submit after Close = %v, want ErrFormClosed", err)
	}
	if f.Snapshot().Error != "" {
		t.Error("Close should not set a failure message")
	}

	// Idempotent.
	f.Close()
}

func TestForm_Subscribe(t *testing.T) {
	f := New(testConfig(), plainTheme(t))
	defer f.Close()

	id, ch := f.Subscribe()
	if f.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount = %d, want 1", f.SubscriberCount())
	}

	first := <-ch
	if first.State != domain.FormStateIdle {
		t.Errorf("initial snapshot state = %q", first.State)
	}

	f.SetURL("https://youtu.be/abc")
	select {
	case snap := <-ch:
		if snap.URL != "https://youtu.be/abc" {
			t.Errorf("URL = %q", snap.URL)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after SetURL")
	}

	f.Unsubscribe(id)
	if f.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d after Unsubscribe", f.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	// Unknown IDs are ignored.
	f.Unsubscribe(999)
}

func TestForm_SubscribeAfterClose(t *testing.T) {
	f := New(testConfig(), plainTheme(t))
	f.Close()

	_, ch := f.Subscribe()
	if _, ok := <-ch; !ok {
		t.Fatal("expected the final snapshot before close")
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
}

func TestForm_ConcurrentAccess(t *testing.T) {
	f := New(testConfig(), plainTheme(t))
	defer f.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i%2 == 0 {
					f.SetURL("https://youtu.be/abc")
					f.Submit(context.Background())
				} else {
					f.Snapshot()
					f.LastActive()
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestSimulatedTransfer(t *testing.T) {
	tr := SimulatedTransfer(10 * time.Millisecond)
	if err := tr(context.Background(), Request{}); err != nil {
		t.Errorf("transfer error = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := SimulatedTransfer(time.Hour)
	if err := slow(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Errorf("transfer error = %v, want context.Canceled", err)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{TickInterval: time.Second, ProgressCap: 150}.withDefaults()
	if c.TickInterval != time.Second {
		t.Errorf("TickInterval = %v, want 1s", c.TickInterval)
	}
	if c.ProgressCap != 90 {
		t.Errorf("ProgressCap = %v, want 90", c.ProgressCap)
	}
	if c.CompleteAfter != 3*time.Second || c.ResetAfter != 3*time.Second {
		t.Errorf("delays = %v/%v, want 3s/3s", c.CompleteAfter, c.ResetAfter)
	}
}
