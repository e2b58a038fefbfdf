// Package memory provides an in-process storage.Repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stacklok/menu-importer/internal/menu"
	"github.com/stacklok/menu-importer/internal/storage"
)

type key struct {
	collection string
	id         string
}

// Repository keeps menu items in a map. Items handed in and out are copies.
type Repository struct {
	mu    sync.RWMutex
	items map[key]*menu.Item
	now   func() time.Time
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository returns an empty repository
func NewRepository() *Repository {
	return &Repository{
		items: make(map[key]*menu.Item),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// LoadByCollectionAndID implements storage.Repository
func (r *Repository) LoadByCollectionAndID(_ context.Context, collection, id string) (*menu.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[key{collection, id}]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}
	return item.Clone(), nil
}

// LoadAllByCollection implements storage.Repository. Items are ordered by ID.
func (r *Repository) LoadAllByCollection(_ context.Context, collection string) ([]*menu.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*menu.Item, 0)
	for k, item := range r.items {
		if k.collection == collection {
			items = append(items, item.Clone())
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// CreateItem implements storage.Repository
func (*Repository) CreateItem(collection, id string) *menu.Item {
	return menu.NewItem(collection, id)
}

// DeleteItem implements storage.Repository
func (r *Repository) DeleteItem(_ context.Context, item *menu.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, key{item.Collection, item.ID})
	return nil
}

// Save implements storage.Repository
func (r *Repository) Save(_ context.Context, item *menu.Item) error {
	if item.ID == "" || item.Collection == "" {
		return fmt.Errorf("item requires a collection and an ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	k := key{item.Collection, item.ID}
	if existing, ok := r.items[k]; ok {
		item.CreatedAt = existing.CreatedAt
	} else {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	r.items[k] = item.Clone()
	return nil
}

// SetParentLink implements storage.Repository
func (r *Repository) SetParentLink(_ context.Context, child *menu.Item, parent menu.LinkRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[key{child.Collection, child.ID}]
	if !ok {
		return fmt.Errorf("%s/%s: %w", child.Collection, child.ID, storage.ErrNotFound)
	}

	stored.ParentRef = parent
	stored.UpdatedAt = r.now()
	child.ParentRef = parent
	child.UpdatedAt = stored.UpdatedAt
	return nil
}

// Close implements storage.Repository
func (*Repository) Close() error {
	return nil
}
