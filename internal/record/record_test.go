package record_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gwarden/gwarden/internal/database"
	"github.com/gwarden/gwarden/internal/record"
)

type testEntry struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func TestStoreAppendReadAll(t *testing.T) {
	store := record.NewStore(record.NewMemoryRepository())

	_, errMissing := store.ReadAll(t.Context(), record.Warnings, 100)
	require.ErrorIs(t, errMissing, database.ErrNoResult)

	for idx := range 3 {
		newLen, errAppend := store.Append(t.Context(), record.Warnings, 100, testEntry{ID: fmt.Sprintf("id-%d", idx)})
		require.NoError(t, errAppend)
		require.Equal(t, idx+1, newLen)
	}

	var entries []testEntry
	require.NoError(t, store.ReadAllInto(t.Context(), record.Warnings, 100, &entries))
	require.Len(t, entries, 3)
	require.Equal(t, "id-0", entries[0].ID)
	require.Equal(t, "id-2", entries[2].ID)
}

func TestStoreKindsAreIndependent(t *testing.T) {
	store := record.NewStore(record.NewMemoryRepository())

	_, errAppend := store.Append(t.Context(), record.ModerationActions, 42, testEntry{ID: "a"})
	require.NoError(t, errAppend)

	_, errRead := store.ReadAll(t.Context(), record.Warnings, 42)
	require.ErrorIs(t, errRead, database.ErrNoResult)
}

func TestStoreRemove(t *testing.T) {
	store := record.NewStore(record.NewMemoryRepository())

	for _, id := range []string{"aaa", "bbb", "ccc"} {
		_, errAppend := store.Append(t.Context(), record.Warnings, 5, testEntry{ID: id})
		require.NoError(t, errAppend)
	}

	matchID := func(id string) func(json.RawMessage) bool {
		return func(raw json.RawMessage) bool {
			var entry testEntry

			return json.Unmarshal(raw, &entry) == nil && entry.ID == id
		}
	}

	require.NoError(t, store.Remove(t.Context(), record.Warnings, 5, matchID("bbb")))

	// Removing again is a not-found no-op which leaves the sequence unchanged.
	require.ErrorIs(t, store.Remove(t.Context(), record.Warnings, 5, matchID("bbb")), database.ErrNoResult)

	var entries []testEntry
	require.NoError(t, store.ReadAllInto(t.Context(), record.Warnings, 5, &entries))
	require.Len(t, entries, 2)
	require.Equal(t, "aaa", entries[0].ID)
	require.Equal(t, "ccc", entries[1].ID)
}

func TestStoreClear(t *testing.T) {
	store := record.NewStore(record.NewMemoryRepository())

	_, errClear := store.Clear(t.Context(), record.Warnings, 9)
	require.ErrorIs(t, errClear, database.ErrNoResult)

	for range 4 {
		_, errAppend := store.Append(t.Context(), record.Warnings, 9, testEntry{ID: "x"})
		require.NoError(t, errAppend)
	}

	removed, errClearAll := store.Clear(t.Context(), record.Warnings, 9)
	require.NoError(t, errClearAll)
	require.Equal(t, 4, removed)

	_, errRead := store.ReadAll(t.Context(), record.Warnings, 9)
	require.ErrorIs(t, errRead, database.ErrNoResult)
}

// Concurrent appends against the same user must not lose entries.
func TestStoreConcurrentAppends(t *testing.T) {
	const writers = 50

	store := record.NewStore(record.NewMemoryRepository())

	var waitGroup sync.WaitGroup

	for idx := range writers {
		waitGroup.Add(1)

		go func(n int) {
			defer waitGroup.Done()

			_, errAppend := store.Append(t.Context(), record.ModerationActions, 777, testEntry{ID: fmt.Sprintf("w-%d", n)})
			require.NoError(t, errAppend)
		}(idx)
	}

	waitGroup.Wait()

	entries, errRead := store.ReadAll(t.Context(), record.ModerationActions, 777)
	require.NoError(t, errRead)
	require.Len(t, entries, writers)
}
