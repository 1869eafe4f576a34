// Package registry resolves department-scoped category codes and names and
// keeps a short-lived per-department cache in front of the store, so the
// grammar parser does not hit the database on every message.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/Houeta/crm-dispatch-bot/internal/repository"
)

// DefaultTTL is how long a cached category list stays valid without an
// explicit invalidation.
const DefaultTTL = 60 * time.Second

type cacheEntry struct {
	categories []models.Category
	fetchedAt  time.Time
}

// Registry is the category registry. The cache is process-wide state keyed
// by department; it is reset on restart and never persisted. Any mutation
// invalidates the department's entry eagerly, so a read right after a
// mutation always reflects it even within the TTL window.
type Registry struct {
	store repository.CategoryManager
	ttl   time.Duration

	mu    sync.Mutex
	cache map[models.Department]cacheEntry
	now   func() time.Time
}

// NewRegistry creates a Registry over the given category store with the
// given cache TTL. Pass DefaultTTL unless a test needs otherwise.
func NewRegistry(store repository.CategoryManager, ttl time.Duration) *Registry {
	return &Registry{
		store: store,
		ttl:   ttl,
		cache: make(map[models.Department]cacheEntry),
		now:   time.Now,
	}
}

// List returns the department's categories ordered by code. When useCache is
// true and a fresh entry exists it is returned without touching the store;
// otherwise the store is queried and the cache repopulated.
func (r *Registry) List(ctx context.Context, dep models.Department, useCache bool) ([]models.Category, error) {
	if useCache {
		r.mu.Lock()
		entry, ok := r.cache[dep]
		fresh := ok && r.now().Sub(entry.fetchedAt) < r.ttl
		r.mu.Unlock()
		if fresh {
			return entry.categories, nil
		}
	}

	categories, err := r.store.ListCategories(ctx, dep)
	if err != nil {
		return nil, err
	}

	if useCache {
		r.mu.Lock()
		r.cache[dep] = cacheEntry{categories: categories, fetchedAt: r.now()}
		r.mu.Unlock()
	}

	return categories, nil
}

// GetByCode looks a category up by its code, case-insensitively, straight
// from the store. Absence is reported as repository.ErrCategoryNotFound;
// callers must branch on it explicitly.
func (r *Registry) GetByCode(ctx context.Context, dep models.Department, code string) (models.Category, error) {
	return r.store.GetCategoryByCode(ctx, dep, code)
}

// AddOrUpdate upserts a category and eagerly invalidates the department's
// cache entry.
func (r *Registry) AddOrUpdate(ctx context.Context, dep models.Department, cat models.Category) error {
	if err := r.store.UpsertCategory(ctx, dep, cat); err != nil {
		return err
	}
	r.Invalidate(dep)
	return nil
}

// Remove deletes a category and eagerly invalidates the department's cache
// entry. repository.ErrCategoryNotFound passes through when the code did not
// exist.
func (r *Registry) Remove(ctx context.Context, dep models.Department, code string) error {
	err := r.store.DeleteCategory(ctx, dep, code)
	// The cache is dropped even on a not-found delete; it is cheap and keeps
	// the invariant simple.
	r.Invalidate(dep)
	return err
}

// Invalidate drops the department's cache entry.
func (r *Registry) Invalidate(dep models.Department) {
	r.mu.Lock()
	delete(r.cache, dep)
	r.mu.Unlock()
}
