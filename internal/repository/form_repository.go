package repository

import (
	"context"
	"sync"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/form"
)

// InMemoryFormRepository implements FormRepository using in-memory storage.
type InMemoryFormRepository struct {
	mu    sync.RWMutex
	forms map[domain.FormID]*form.Form
	order []domain.FormID // creation order
}

// NewInMemoryFormRepository creates a new in-memory form repository.
func NewInMemoryFormRepository() *InMemoryFormRepository {
	return &InMemoryFormRepository{
		forms: make(map[domain.FormID]*form.Form),
		order: make([]domain.FormID, 0),
	}
}

// Save stores a form.
func (r *InMemoryFormRepository) Save(ctx context.Context, f *form.Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.forms[f.ID()]; !ok {
		r.order = append(r.order, f.ID())
	}
	r.forms[f.ID()] = f

	return nil
}

// Get retrieves a form by ID.
func (r *InMemoryFormRepository) Get(ctx context.Context, id domain.FormID) (*form.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.forms[id]
	if !ok {
		return nil, domain.ErrFormNotFound
	}

	return f, nil
}

// Delete removes a form.
func (r *InMemoryFormRepository) Delete(ctx context.Context, id domain.FormID) (*form.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.forms[id]
	if !ok {
		return nil, domain.ErrFormNotFound
	}
	delete(r.forms, id)

	for i, fid := range r.order {
		if fid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return f, nil
}

// List returns all forms in creation order.
func (r *InMemoryFormRepository) List(ctx context.Context) ([]*form.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*form.Form, 0, len(r.order))
	for _, id := range r.order {
		if f, ok := r.forms[id]; ok {
			result = append(result, f)
		}
	}

	return result, nil
}

// Count returns the number of stored forms.
func (r *InMemoryFormRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.forms), nil
}

// Clear removes all forms without closing them (useful for testing).
func (r *InMemoryFormRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.forms = make(map[domain.FormID]*form.Form)
	r.order = make([]domain.FormID, 0)
}
