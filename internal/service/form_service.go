package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/form"
	"github.com/iconidentify/mediaslayer/internal/repository"
	"github.com/iconidentify/mediaslayer/internal/theme"
)

const formSource = "form_service"

// FormService manages independent form instances, one per client.
type FormService struct {
	forms   repository.FormRepository
	themes  *theme.Set
	cfg     form.Config
	events  domain.EventEmitter
	logger  *slog.Logger
	options []form.Option
}

// NewFormService creates a new form service. Extra options are applied to
// every form it creates.
func NewFormService(
	forms repository.FormRepository,
	themes *theme.Set,
	cfg form.Config,
	events domain.EventEmitter,
	logger *slog.Logger,
	opts ...form.Option,
) *FormService {
	return &FormService{
		forms:   forms,
		themes:  themes,
		cfg:     cfg,
		events:  events,
		logger:  logger,
		options: opts,
	}
}

// Themes returns the theme set forms are created from.
func (s *FormService) Themes() *theme.Set {
	return s.themes
}

// Create builds a new idle form using the named theme (empty for default).
func (s *FormService) Create(ctx context.Context, themeName string) (*form.Form, error) {
	th, err := s.themes.Get(themeName)
	if err != nil {
		return nil, domain.NewFormError("", "create", err)
	}

	opts := append([]form.Option{
		form.WithLogger(s.logger),
		form.WithHooks(s.hooks()),
	}, s.options...)
	f := form.New(s.cfg, th, opts...)

	if err := s.forms.Save(ctx, f); err != nil {
		f.Close()
		return nil, fmt.Errorf("save form: %w", err)
	}

	s.events.Emit(domain.NewEvent(domain.EventSeverityInfo, domain.EventCategoryForm, "form created").
		From(formSource).
		ForForm(f.ID()).
		With(domain.EventMetadata{"theme": th.Name}))
	return f, nil
}

// Get returns the form with the given ID.
func (s *FormService) Get(ctx context.Context, id domain.FormID) (*form.Form, error) {
	f, err := s.forms.Get(ctx, id)
	if err != nil {
		return nil, domain.NewFormError(id, "get", err)
	}
	return f, nil
}

// Update applies a field patch and returns the resulting snapshot.
func (s *FormService) Update(ctx context.Context, id domain.FormID, patch domain.FormPatch) (domain.FormSnapshot, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return domain.FormSnapshot{}, err
	}
	if err := f.Apply(patch); err != nil {
		return domain.FormSnapshot{}, domain.NewFormError(id, "update", err)
	}
	return f.Snapshot(), nil
}

// Submit starts a simulated session on the form. The returned snapshot
// reflects the form right after the submit, including the error message
// when the URL was rejected.
func (s *FormService) Submit(ctx context.Context, id domain.FormID) (domain.FormSnapshot, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return domain.FormSnapshot{}, err
	}

	if _, err := f.Submit(ctx); err != nil {
		return f.Snapshot(), domain.NewFormError(id, "submit", err)
	}
	return f.Snapshot(), nil
}

// Delete removes and closes a form.
func (s *FormService) Delete(ctx context.Context, id domain.FormID) error {
	f, err := s.forms.Delete(ctx, id)
	if err != nil {
		return domain.NewFormError(id, "delete", err)
	}
	f.Close()

	s.events.Emit(domain.NewEvent(domain.EventSeverityInfo, domain.EventCategoryForm, "form removed").
		From(formSource).
		ForForm(id))
	return nil
}

// SweepIdle closes and removes forms that have been inactive for longer
// than ttl and are not running a session. It returns the number removed.
func (s *FormService) SweepIdle(ctx context.Context, ttl time.Duration) (int, error) {
	forms, err := s.forms.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list forms: %w", err)
	}

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, f := range forms {
		if f.Busy() || f.LastActive().After(cutoff) {
			continue
		}
		if _, err := s.forms.Delete(ctx, f.ID()); err != nil {
			if errors.Is(err, domain.ErrFormNotFound) {
				continue
			}
			return removed, fmt.Errorf("delete form %s: %w", f.ID(), err)
		}
		f.Close()
		removed++
	}

	if removed > 0 {
		s.events.Emit(domain.NewEvent(domain.EventSeverityInfo, domain.EventCategoryForm, "expired idle forms").
			From(formSource).
			With(domain.EventMetadata{"removed": removed, "ttl": ttl.String()}))
	}
	return removed, nil
}

// Stats counts forms by workflow state.
func (s *FormService) Stats(ctx context.Context) (*domain.FormStats, error) {
	forms, err := s.forms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}

	stats := &domain.FormStats{Total: len(forms)}
	for _, f := range forms {
		stats.Subscribers += f.SubscriberCount()
		switch f.Snapshot().State {
		case domain.FormStateRunning:
			stats.Running++
		case domain.FormStateCompleting:
			stats.Completing++
		default:
			stats.Idle++
		}
	}
	return stats, nil
}

// Close closes every form.
func (s *FormService) Close(ctx context.Context) error {
	forms, err := s.forms.List(ctx)
	if err != nil {
		return fmt.Errorf("list forms: %w", err)
	}
	for _, f := range forms {
		f.Close()
	}
	return nil
}

func (s *FormService) hooks() form.Hooks {
	session := func(sev domain.EventSeverity, message string, snap domain.FormSnapshot) domain.Event {
		return domain.NewEvent(sev, domain.EventCategorySession, message).
			From(formSource).
			ForSession(snap)
	}

	return form.Hooks{
		OnStarted: func(snap domain.FormSnapshot) {
			s.events.Emit(session(domain.EventSeverityInfo, "session started", snap).
				With(requestMetadata(snap)))
		},
		OnCompleted: func(snap domain.FormSnapshot) {
			s.events.Emit(session(domain.EventSeveritySuccess, "session completed", snap).
				With(requestMetadata(snap)))
		},
		OnFailed: func(snap domain.FormSnapshot, err error) {
			meta := requestMetadata(snap)
			meta["error"] = err.Error()
			s.events.Emit(session(domain.EventSeverityError, "session failed", snap).With(meta))
		},
		OnRejected: func(snap domain.FormSnapshot) {
			s.events.Emit(domain.NewEvent(domain.EventSeverityWarning, domain.EventCategorySession, "submit rejected: unrecognized URL").
				From(formSource).
				ForForm(snap.ID).
				With(domain.EventMetadata{"url": snap.URL}))
		},
	}
}

func requestMetadata(snap domain.FormSnapshot) domain.EventMetadata {
	return domain.EventMetadata{
		"platform": snap.Platform,
		"format":   snap.Format,
		"quality":  snap.Quality,
	}
}
