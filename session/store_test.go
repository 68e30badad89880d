package session

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subtlepseudonym/forcelog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func loadDataset(t *testing.T, name string) *forcelog.Dataset {
	t.Helper()
	raw, err := os.ReadFile("../testdata/rig.txt")
	require.NoError(t, err)

	ds, err := forcelog.DefaultPipeline().Run(name, raw)
	require.NoError(t, err)
	return ds
}

func TestStoreIsolatesSessions(t *testing.T) {
	store := NewStore(time.Hour, testLogger())
	a := store.Create()
	b := store.Create()
	assert.NotEqual(t, a.ID, b.ID)

	_, err := store.Dataset(a.ID)
	assert.ErrorIs(t, err, ErrNoDataset)

	first := loadDataset(t, "first.txt")
	sess, err := store.Replace(a.ID, first)
	require.NoError(t, err)
	assert.Equal(t, "A", sess.Table)
	assert.Equal(t, 1, sess.Head)

	ds, err := store.Dataset(a.ID)
	require.NoError(t, err)
	assert.Same(t, first, ds)

	_, err = store.Dataset(b.ID)
	assert.ErrorIs(t, err, ErrNoDataset)

	second := loadDataset(t, "second.txt")
	_, err = store.Replace(b.ID, second)
	require.NoError(t, err)

	ds, err = store.Dataset(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "first.txt", ds.Name)
}

func TestStoreReplaceIsLastWriteWins(t *testing.T) {
	store := NewStore(time.Hour, testLogger())
	sess := store.Create()

	_, err := store.Replace(sess.ID, loadDataset(t, "first.txt"))
	require.NoError(t, err)
	_, err = store.Select(sess.ID, "B", 1)
	require.NoError(t, err)

	replaced, err := store.Replace(sess.ID, loadDataset(t, "second.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second.txt", replaced.Dataset.Name)
	assert.Equal(t, "A", replaced.Table)

	_, err = store.Replace(sess.ID, nil)
	assert.ErrorIs(t, err, ErrNoDataset)
	ds, err := store.Dataset(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "second.txt", ds.Name)
}

func TestStoreSelect(t *testing.T) {
	store := NewStore(time.Hour, testLogger())
	sess := store.Create()

	_, err := store.Select(sess.ID, "A", 1)
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = store.Replace(sess.ID, loadDataset(t, "rig.txt"))
	require.NoError(t, err)

	selected, err := store.Select(sess.ID, "A", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, selected.Head)

	selected, err = store.Select(sess.ID, "B", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, selected.Head)

	_, err = store.Select(sess.ID, "B", 2)
	assert.ErrorIs(t, err, ErrSelection)
	_, err = store.Select(sess.ID, "C", 1)
	assert.ErrorIs(t, err, ErrSelection)

	_, err = store.Select("missing", "A", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSweep(t *testing.T) {
	store := NewStore(time.Minute, testLogger())
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return start }

	idle := store.Create()
	active := store.Create()

	store.now = func() time.Time { return start.Add(50 * time.Second) }
	_, err := store.Get(active.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Sweep(start.Add(90*time.Second)))
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(active.ID)
	assert.NoError(t, err)

	store.Delete(active.ID)
	assert.Zero(t, store.Len())
}

func TestStoreConcurrentSessions(t *testing.T) {
	store := NewStore(time.Hour, testLogger())
	ds := loadDataset(t, "rig.txt")

	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		ids[i] = store.Create().ID
	}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := store.Replace(id, ds)
			assert.NoError(t, err)
			_, err = store.Select(id, "B", 1)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		sess, err := store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "B", sess.Table)
	}
}
