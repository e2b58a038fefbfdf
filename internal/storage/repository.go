// Package storage defines the persistence boundary for menu items. Backends
// live in the memory, sqlite and postgres subpackages.
package storage

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks -source=repository.go Repository

import (
	"context"
	"errors"

	"github.com/stacklok/menu-importer/internal/menu"
)

// ErrNotFound is returned when no item matches a lookup.
var ErrNotFound = errors.New("menu item not found")

// Repository is the store of menu items, partitioned by collection.
type Repository interface {
	// LoadByCollectionAndID returns the stored item or ErrNotFound.
	LoadByCollectionAndID(ctx context.Context, collection, id string) (*menu.Item, error)

	// LoadAllByCollection returns every stored item of the collection, ordered by ID.
	LoadAllByCollection(ctx context.Context, collection string) ([]*menu.Item, error)

	// CreateItem returns a new, unsaved item. Nothing is written until Save.
	CreateItem(collection, id string) *menu.Item

	// DeleteItem removes the item. Deleting a missing item is not an error.
	DeleteItem(ctx context.Context, item *menu.Item) error

	// Save inserts or updates the item and refreshes its timestamps.
	Save(ctx context.Context, item *menu.Item) error

	// SetParentLink points the stored child at parent. An empty parent clears
	// the relationship. The child's ParentRef is updated on success.
	SetParentLink(ctx context.Context, child *menu.Item, parent menu.LinkRef) error

	// Close releases resources held by the backend.
	Close() error
}

// Pinger is implemented by backends that hold a connection which can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}
