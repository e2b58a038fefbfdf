// Package postgres provides a storage.Repository backed by PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/menu-importer/internal/config"
	"github.com/stacklok/menu-importer/internal/menu"
	"github.com/stacklok/menu-importer/internal/storage"
)

const (
	defaultMaxConns        = 25
	defaultMinConns        = 0
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnectTimeout  = 30 * time.Second
)

const itemColumns = `collection, id, title, link_uri, parent_ref, description, weight,
	enabled, expanded, external, langcode, extra, created_at, updated_at`

// Repository stores menu items in PostgreSQL. The schema is managed by the
// database package migrations.
type Repository struct {
	pool *pgxpool.Pool
}

var (
	_ storage.Repository = (*Repository)(nil)
	_ storage.Pinger     = (*Repository)(nil)
)

// NewRepository wraps an existing pool. Close closes the pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Open connects to the database described by cfg, retrying with exponential
// backoff until the server answers or ctx is done.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	connString, err := cfg.GetConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolCfg.MaxConns = defaultMaxConns
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = cfg.MaxOpenConns
	}
	poolCfg.MinConns = defaultMinConns
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = min(cfg.MaxIdleConns, poolCfg.MaxConns)
	}
	poolCfg.MaxConnLifetime = defaultConnMaxLifetime
	if lifetime, err := cfg.GetConnMaxLifetime(); err != nil {
		return nil, fmt.Errorf("invalid connection max lifetime: %w", err)
	} else if lifetime > 0 {
		poolCfg.MaxConnLifetime = lifetime
	}

	pool, err := backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			slog.Warn("Database not reachable, retrying", "host", cfg.Host, "error", err)
			return nil, err
		}
		return pool, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(defaultConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("Database connection established",
		"user", cfg.User, "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	return NewRepository(pool), nil
}

// LoadByCollectionAndID implements storage.Repository
func (r *Repository) LoadByCollectionAndID(ctx context.Context, collection, id string) (*menu.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM menu_item WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu item: %w", err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load menu item: %w", err)
	}
	return item, nil
}

// LoadAllByCollection implements storage.Repository
func (r *Repository) LoadAllByCollection(ctx context.Context, collection string) ([]*menu.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM menu_item WHERE collection = $1 ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("failed to scan menu items: %w", err)
	}
	if items == nil {
		items = []*menu.Item{}
	}
	return items, nil
}

// CreateItem implements storage.Repository
func (*Repository) CreateItem(collection, id string) *menu.Item {
	return menu.NewItem(collection, id)
}

// DeleteItem implements storage.Repository
func (r *Repository) DeleteItem(ctx context.Context, item *menu.Item) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM menu_item WHERE collection = $1 AND id = $2`, item.Collection, item.ID)
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	return nil
}

// Save implements storage.Repository
func (r *Repository) Save(ctx context.Context, item *menu.Item) error {
	extra := item.Extra
	if extra == nil {
		extra = map[string]any{}
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO menu_item (collection, id, title, link_uri, parent_ref, description,
			weight, enabled, expanded, external, langcode, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (collection, id) DO UPDATE SET
			title = EXCLUDED.title,
			link_uri = EXCLUDED.link_uri,
			parent_ref = EXCLUDED.parent_ref,
			description = EXCLUDED.description,
			weight = EXCLUDED.weight,
			enabled = EXCLUDED.enabled,
			expanded = EXCLUDED.expanded,
			external = EXCLUDED.external,
			langcode = EXCLUDED.langcode,
			extra = EXCLUDED.extra,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		item.Collection, item.ID, item.Title, item.LinkURI, string(item.ParentRef),
		item.Description, item.Weight, item.Enabled, item.Expanded, item.External,
		item.Langcode, extra,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save menu item: %w", err)
	}
	return nil
}

// SetParentLink implements storage.Repository
func (r *Repository) SetParentLink(ctx context.Context, child *menu.Item, parent menu.LinkRef) error {
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE menu_item SET parent_ref = $1, updated_at = NOW()
		WHERE collection = $2 AND id = $3
		RETURNING updated_at`,
		string(parent), child.Collection, child.ID,
	).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", child.Collection, child.ID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update parent link: %w", err)
	}

	child.ParentRef = parent
	child.UpdatedAt = updatedAt
	return nil
}

// Ping implements storage.Pinger
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close implements storage.Repository
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func scanItem(row pgx.CollectableRow) (*menu.Item, error) {
	var (
		item   menu.Item
		parent string
	)

	err := row.Scan(&item.Collection, &item.ID, &item.Title, &item.LinkURI, &parent,
		&item.Description, &item.Weight, &item.Enabled, &item.Expanded, &item.External,
		&item.Langcode, &item.Extra, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	item.ParentRef = menu.LinkRef(parent)
	if item.Extra == nil {
		item.Extra = map[string]any{}
	}
	return &item, nil
}
