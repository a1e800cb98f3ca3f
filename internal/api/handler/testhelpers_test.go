package handler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/form"
	"github.com/iconidentify/mediaslayer/internal/repository"
	"github.com/iconidentify/mediaslayer/internal/service"
	"github.com/iconidentify/mediaslayer/internal/theme"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockFormStatter is a test implementation of FormStatter.
type mockFormStatter struct {
	stats    *domain.FormStats
	statsErr error
}

func (m *mockFormStatter) Stats(ctx context.Context) (*domain.FormStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}

func testThemes(t *testing.T) *theme.Set {
	t.Helper()
	themes, err := theme.NewSet(theme.PlainName)
	if err != nil {
		t.Fatalf("theme set: %v", err)
	}
	return themes
}

// newTestFormService wires a real form service with fast timings.
func newTestFormService(t *testing.T, opts ...form.Option) (*service.FormService, *service.EventService) {
	t.Helper()
	cfg := form.Config{
		TickInterval:  2 * time.Millisecond,
		MaxIncrement:  15,
		ProgressCap:   90,
		CompleteAfter: 50 * time.Millisecond,
		ResetAfter:    50 * time.Millisecond,
	}
	events := service.NewEventService(service.EventServiceConfig{RingBufferSize: 100}, testLogger())
	forms := service.NewFormService(repository.NewInMemoryFormRepository(), testThemes(t), cfg, events, testLogger(), opts...)
	t.Cleanup(func() {
		forms.Close(context.Background())
		events.Close()
	})
	return forms, events
}

// blockingTransfer keeps the session running until its context ends.
func blockingTransfer(ctx context.Context, req form.Request) error {
	<-ctx.Done()
	return ctx.Err()
}

// withURLParam adds a chi route parameter to the request context.
func withURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}
