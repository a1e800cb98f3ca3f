package repository

import (
	"context"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/form"
)

// FormRepository holds live form instances.
type FormRepository interface {
	// Save stores a form, replacing any form with the same ID.
	Save(ctx context.Context, f *form.Form) error

	// Get retrieves a form by ID.
	Get(ctx context.Context, id domain.FormID) (*form.Form, error)

	// Delete removes a form and returns it so the caller can close it.
	Delete(ctx context.Context, id domain.FormID) (*form.Form, error)

	// List returns all forms in creation order.
	List(ctx context.Context) ([]*form.Form, error)

	// Count returns the number of stored forms.
	Count(ctx context.Context) (int, error)
}
