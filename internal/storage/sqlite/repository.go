// Package sqlite provides a storage.Repository backed by a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/stacklok/menu-importer/database"
	"github.com/stacklok/menu-importer/internal/menu"
	"github.com/stacklok/menu-importer/internal/storage"
)

const itemColumns = `collection, id, title, link_uri, parent_ref, description, weight,
	enabled, expanded, external, langcode, extra, created_at, updated_at`

// Repository stores menu items in SQLite
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ storage.Repository = (*Repository)(nil)
	_ storage.Pinger     = (*Repository)(nil)
)

// Open creates the database file if needed, applies migrations and returns a repository.
func Open(ctx context.Context, path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	m, err := database.NewSQLiteMigrator(path)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare migrations: %w", err)
	}
	migrateErr := database.MigrateUp(m)
	if err := database.CloseMigrator(m); err != nil && migrateErr == nil {
		migrateErr = err
	}
	if migrateErr != nil {
		return nil, migrateErr
	}

	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?%s", path, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent imports
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// LoadByCollectionAndID implements storage.Repository
func (r *Repository) LoadByCollectionAndID(ctx context.Context, collection, id string) (*menu.Item, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM menu_item WHERE collection = ? AND id = ?`, collection, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load menu item: %w", err)
	}
	return item, nil
}

// LoadAllByCollection implements storage.Repository
func (r *Repository) LoadAllByCollection(ctx context.Context, collection string) ([]*menu.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM menu_item WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := make([]*menu.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate menu items: %w", err)
	}
	return items, nil
}

// CreateItem implements storage.Repository
func (*Repository) CreateItem(collection, id string) *menu.Item {
	return menu.NewItem(collection, id)
}

// DeleteItem implements storage.Repository
func (r *Repository) DeleteItem(ctx context.Context, item *menu.Item) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM menu_item WHERE collection = ? AND id = ?`, item.Collection, item.ID)
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	return nil
}

// Save implements storage.Repository
func (r *Repository) Save(ctx context.Context, item *menu.Item) error {
	extra, err := marshalExtra(item.Extra)
	if err != nil {
		return err
	}

	now := r.now()
	var createdAt string
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO menu_item (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			title = excluded.title,
			link_uri = excluded.link_uri,
			parent_ref = excluded.parent_ref,
			description = excluded.description,
			weight = excluded.weight,
			enabled = excluded.enabled,
			expanded = excluded.expanded,
			external = excluded.external,
			langcode = excluded.langcode,
			extra = excluded.extra,
			updated_at = excluded.updated_at
		RETURNING created_at`,
		item.Collection, item.ID, item.Title, item.LinkURI, string(item.ParentRef),
		item.Description, item.Weight, boolToInt(item.Enabled), boolToInt(item.Expanded),
		boolToInt(item.External), item.Langcode, extra,
		formatTime(now), formatTime(now),
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("failed to save menu item: %w", err)
	}

	item.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return err
	}
	item.UpdatedAt = now
	return nil
}

// SetParentLink implements storage.Repository
func (r *Repository) SetParentLink(ctx context.Context, child *menu.Item, parent menu.LinkRef) error {
	now := r.now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE menu_item SET parent_ref = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(parent), formatTime(now), child.Collection, child.ID)
	if err != nil {
		return fmt.Errorf("failed to update parent link: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update parent link: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", child.Collection, child.ID, storage.ErrNotFound)
	}

	child.ParentRef = parent
	child.UpdatedAt = now
	return nil
}

// Ping implements storage.Pinger
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close implements storage.Repository
func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*menu.Item, error) {
	var (
		item                        menu.Item
		parent, extra               string
		enabled, expanded, external int64
		createdAt, updatedAt        string
	)

	err := s.Scan(&item.Collection, &item.ID, &item.Title, &item.LinkURI, &parent,
		&item.Description, &item.Weight, &enabled, &expanded, &external,
		&item.Langcode, &extra, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	item.ParentRef = menu.LinkRef(parent)
	item.Enabled = enabled != 0
	item.Expanded = expanded != 0
	item.External = external != 0

	if err := json.Unmarshal([]byte(extra), &item.Extra); err != nil {
		return nil, fmt.Errorf("invalid extra attributes for %s: %w", item.ID, err)
	}
	if item.Extra == nil {
		item.Extra = map[string]any{}
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func marshalExtra(extra map[string]any) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("failed to encode extra attributes: %w", err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
