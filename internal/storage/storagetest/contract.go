// Package storagetest holds behaviour tests shared by every storage.Repository backend.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/menu-importer/internal/menu"
	"github.com/stacklok/menu-importer/internal/storage"
)

// Factory returns an empty repository. It is called once per subtest.
type Factory func(t *testing.T) storage.Repository

// RunRepositoryTests exercises the storage.Repository contract against a backend.
func RunRepositoryTests(t *testing.T, newRepo Factory) {
	t.Helper()

	tests := []struct {
		name string
		run  func(t *testing.T, repo storage.Repository)
	}{
		{"load missing item", testLoadMissing},
		{"create item is not persisted", testCreateNotPersisted},
		{"save and load round trip", testSaveRoundTrip},
		{"save updates existing item", testSaveUpdate},
		{"load all by collection", testLoadAll},
		{"collections are isolated", testCollectionIsolation},
		{"delete item", testDelete},
		{"set and clear parent link", testParentLink},
		{"set parent link on missing child", testParentLinkMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			t.Cleanup(func() { _ = repo.Close() })
			tt.run(t, repo)
		})
	}
}

func newItem(repo storage.Repository, collection, id, title string) *menu.Item {
	item := repo.CreateItem(collection, id)
	item.Title = title
	item.LinkURI = "internal:/" + id
	return item
}

func testLoadMissing(t *testing.T, repo storage.Repository) {
	_, err := repo.LoadByCollectionAndID(context.Background(), "main", "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func testCreateNotPersisted(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	item := repo.CreateItem("main", "a")
	require.NotNil(t, item)
	assert.Equal(t, "main", item.Collection)
	assert.Equal(t, "a", item.ID)

	_, err := repo.LoadByCollectionAndID(ctx, "main", "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testSaveRoundTrip(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	item := newItem(repo, "main", "a", "Home")
	item.Description = "Front page"
	item.Weight = -4
	item.Enabled = false
	item.Expanded = true
	item.External = true
	item.Langcode = "en"
	item.Extra = map[string]any{
		"menu_name": "main",
		"options":   map[string]any{"attributes": map[string]any{"class": []any{"x"}}},
		"rank":      float64(2),
	}

	require.NoError(t, repo.Save(ctx, item))
	assert.False(t, item.CreatedAt.IsZero())
	assert.False(t, item.UpdatedAt.IsZero())

	got, err := repo.LoadByCollectionAndID(ctx, "main", "a")
	require.NoError(t, err)

	assert.Equal(t, "a", got.ID)
	assert.Equal(t, "main", got.Collection)
	assert.Equal(t, "Home", got.Title)
	assert.Equal(t, "internal:/a", got.LinkURI)
	assert.True(t, got.ParentRef.IsZero())
	assert.Equal(t, "Front page", got.Description)
	assert.Equal(t, -4, got.Weight)
	assert.False(t, got.Enabled)
	assert.True(t, got.Expanded)
	assert.True(t, got.External)
	assert.Equal(t, "en", got.Langcode)
	assert.Equal(t, item.Extra, got.Extra)
	assert.WithinDuration(t, item.CreatedAt, got.CreatedAt, time.Millisecond)
}

func testSaveUpdate(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	item := newItem(repo, "main", "a", "Home")
	require.NoError(t, repo.Save(ctx, item))
	first, err := repo.LoadByCollectionAndID(ctx, "main", "a")
	require.NoError(t, err)

	first.Title = "Start"
	first.Weight = 10
	require.NoError(t, repo.Save(ctx, first))

	second, err := repo.LoadByCollectionAndID(ctx, "main", "a")
	require.NoError(t, err)
	assert.Equal(t, "Start", second.Title)
	assert.Equal(t, 10, second.Weight)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "created_at must survive updates")
	assert.False(t, second.UpdatedAt.Before(second.CreatedAt))

	all, err := repo.LoadAllByCollection(ctx, "main")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testLoadAll(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	all, err := repo.LoadAllByCollection(ctx, "main")
	require.NoError(t, err)
	assert.Empty(t, all)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Save(ctx, newItem(repo, "main", id, id)))
	}

	all, err = repo.LoadAllByCollection(ctx, "main")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func testCollectionIsolation(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newItem(repo, "main", "a", "Main A")))
	require.NoError(t, repo.Save(ctx, newItem(repo, "footer", "a", "Footer A")))

	mainItem, err := repo.LoadByCollectionAndID(ctx, "main", "a")
	require.NoError(t, err)
	assert.Equal(t, "Main A", mainItem.Title)

	footerItem, err := repo.LoadByCollectionAndID(ctx, "footer", "a")
	require.NoError(t, err)
	assert.Equal(t, "Footer A", footerItem.Title)

	require.NoError(t, repo.DeleteItem(ctx, mainItem))

	_, err = repo.LoadByCollectionAndID(ctx, "main", "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.LoadByCollectionAndID(ctx, "footer", "a")
	assert.NoError(t, err)
}

func testDelete(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	item := newItem(repo, "main", "a", "Home")
	require.NoError(t, repo.Save(ctx, item))
	require.NoError(t, repo.DeleteItem(ctx, item))

	_, err := repo.LoadByCollectionAndID(ctx, "main", "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// deleting again is a no-op
	require.NoError(t, repo.DeleteItem(ctx, item))
}

func testParentLink(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	parent := newItem(repo, "main", "p", "Parent")
	child := newItem(repo, "main", "c", "Child")
	require.NoError(t, repo.Save(ctx, parent))
	require.NoError(t, repo.Save(ctx, child))

	require.NoError(t, repo.SetParentLink(ctx, child, parent.Ref()))
	assert.Equal(t, parent.Ref(), child.ParentRef)

	got, err := repo.LoadByCollectionAndID(ctx, "main", "c")
	require.NoError(t, err)
	assert.Equal(t, menu.NewLinkRef("p"), got.ParentRef)
	assert.Equal(t, "p", got.ParentRef.ID())

	require.NoError(t, repo.SetParentLink(ctx, got, ""))
	assert.True(t, got.ParentRef.IsZero())

	got, err = repo.LoadByCollectionAndID(ctx, "main", "c")
	require.NoError(t, err)
	assert.True(t, got.ParentRef.IsZero())
}

func testParentLinkMissing(t *testing.T, repo storage.Repository) {
	child := repo.CreateItem("main", "ghost")
	err := repo.SetParentLink(context.Background(), child, menu.NewLinkRef("p"))
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
