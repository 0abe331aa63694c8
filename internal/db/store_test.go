package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "mailrag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_ValidationErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		dbPath      string
		expectedErr string
	}{
		{"empty_path", "", "empty database path"},
		{"whitespace_path", "   ", "empty database path"},
		{"tabs_path", "\t\t", "empty database path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(ctx, tt.dbPath)
			assert.Nil(t, store)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestOpen_DirectoryCreationAndPermissions(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "deep", "test.db")

	store, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, filepath.Dir(dbPath))
	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestOpen_ExistingFileKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "existing.db")

	store1, err := Open(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, NewIdentityStore(store1, "a@x.com").Set(ctx, 12))
	require.NoError(t, store1.Close())

	store2, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer store2.Close()

	id, ok, err := NewIdentityStore(store2, "a@x.com").Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
}

func TestClose_Nil(t *testing.T) {
	var store *Store
	assert.NoError(t, store.Close())
	assert.NoError(t, (&Store{}).Close())
}

func TestDB_Getter(t *testing.T) {
	store := openTestStore(t)
	assert.IsType(t, &sqlx.DB{}, store.DB())
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	ver, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].version, ver)

	for _, table := range []string{"identities", "generated_emails"} {
		var name string
		err := store.db.GetContext(ctx, &name, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
		assert.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	// re-running is a no-op
	require.NoError(t, store.migrate(ctx))
	ver, err = store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ver)
}

func TestIdentityStore(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	ids := NewIdentityStore(store, " Alice@X.com ")

	_, ok, err := ids.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ids.Set(ctx, 7))
	require.NoError(t, ids.Set(ctx, 9))

	id, ok, err := NewIdentityStore(store, "alice@x.com").Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(9), id, "lookup is case-insensitive and upserts")

	_, ok, err = NewIdentityStore(store, "bob@x.com").Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ids.Forget(ctx))
	_, ok, err = ids.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdentityStore_Validation(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	assert.Error(t, NewIdentityStore(store, "a@x.com").Set(ctx, 0))
	assert.Error(t, NewIdentityStore(store, "").Set(ctx, 3))

	_, ok, err := NewIdentityStore(store, "").Get(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)

	var nilStore *IdentityStore
	_, _, err = nilStore.Get(ctx)
	assert.Error(t, err)
	assert.Nil(t, NewIdentityStore(nil, "a@x.com"))
}

func TestGeneratedStore(t *testing.T) {
	ctx := context.Background()
	gs := NewGeneratedStore(openTestStore(t))

	first := &GeneratedEmail{AccountEmail: "a@x.com", Category: "business", Subcategory: "Meeting Request", Prompt: "p1", Content: "c1", Provider: "backend", CreatedAt: 100}
	second := &GeneratedEmail{AccountEmail: "a@x.com", Prompt: "p2", Content: "c2", CreatedAt: 200}
	other := &GeneratedEmail{AccountEmail: "b@x.com", Prompt: "p3", Content: "c3", CreatedAt: 300}
	for _, e := range []*GeneratedEmail{first, second, other} {
		id, err := gs.Save(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, id, e.ID)
	}

	list, err := gs.List(ctx, "a@x.com", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0].Prompt, "newest first")
	assert.Equal(t, "Meeting Request", list[1].Subcategory)

	got, ok, err := gs.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, got)

	require.NoError(t, gs.Delete(ctx, first.ID))
	_, ok, err = gs.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGeneratedStore_Validation(t *testing.T) {
	ctx := context.Background()
	gs := NewGeneratedStore(openTestStore(t))

	_, err := gs.Save(ctx, &GeneratedEmail{AccountEmail: "a@x.com", Prompt: " ", Content: "c"})
	assert.Error(t, err)
	_, err = gs.Save(ctx, nil)
	assert.Error(t, err)

	var nilStore *GeneratedStore
	_, err = nilStore.List(ctx, "a@x.com", 10)
	assert.Error(t, err)
}
