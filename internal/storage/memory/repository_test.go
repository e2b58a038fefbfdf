package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/menu-importer/internal/storage"
	"github.com/stacklok/menu-importer/internal/storage/storagetest"
)

func TestRepositoryContract(t *testing.T) {
	t.Parallel()

	storagetest.RunRepositoryTests(t, func(_ *testing.T) storage.Repository {
		return NewRepository()
	})
}

func TestRepository_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewRepository()

	item := repo.CreateItem("main", "a")
	item.Title = "Home"
	item.Extra["k"] = "v"
	require.NoError(t, repo.Save(ctx, item))

	item.Title = "changed after save"
	item.Extra["k"] = "changed"

	got, err := repo.LoadByCollectionAndID(ctx, "main", "a")
	require.NoError(t, err)
	assert.Equal(t, "Home", got.Title)
	assert.Equal(t, "v", got.Extra["k"])

	got.Title = "changed after load"
	again, err := repo.LoadByCollectionAndID(ctx, "main", "a")
	require.NoError(t, err)
	assert.Equal(t, "Home", again.Title)
}

func TestRepository_SaveRequiresKey(t *testing.T) {
	t.Parallel()

	repo := NewRepository()
	err := repo.Save(context.Background(), repo.CreateItem("", "a"))
	require.Error(t, err)
}
