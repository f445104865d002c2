package record

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gwarden/gwarden/internal/database"
	"github.com/gwarden/gwarden/pkg/fp"
)

type userKey struct {
	kind   Kind
	userID uint64
}

// memoryRepository is an in-memory Repository used by tests. Read-modify-write
// cycles are serialized with a mutex per (kind, user) key.
type memoryRepository struct {
	locks fp.MutexMap[userKey, *sync.Mutex]
	rows  fp.MutexMap[userKey, []json.RawMessage]
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		locks: fp.NewMutexMap[userKey, *sync.Mutex](),
		rows:  fp.NewMutexMap[userKey, []json.RawMessage](),
	}
}

func (r *memoryRepository) lock(kind Kind, userID uint64) (*sync.Mutex, userKey) {
	key := userKey{kind: kind, userID: userID}
	mutex := r.locks.GetOrCreate(key, func() *sync.Mutex { return &sync.Mutex{} })
	mutex.Lock()

	return mutex, key
}

func (r *memoryRepository) Append(_ context.Context, kind Kind, userID uint64, entry json.RawMessage) (int, error) {
	mutex, key := r.lock(kind, userID)
	defer mutex.Unlock()

	entries, _ := r.rows.Get(key)
	entries = append(entries, entry)
	r.rows.Set(key, entries)

	return len(entries), nil
}

func (r *memoryRepository) Remove(_ context.Context, kind Kind, userID uint64, match func(json.RawMessage) bool) error {
	mutex, key := r.lock(kind, userID)
	defer mutex.Unlock()

	entries, found := r.rows.Get(key)
	if !found {
		return database.ErrNoResult
	}

	for idx, entry := range entries {
		if match(entry) {
			r.rows.Set(key, append(entries[:idx:idx], entries[idx+1:]...))

			return nil
		}
	}

	return database.ErrNoResult
}

func (r *memoryRepository) Clear(_ context.Context, kind Kind, userID uint64) (int, error) {
	mutex, key := r.lock(kind, userID)
	defer mutex.Unlock()

	entries, found := r.rows.Get(key)
	if !found {
		return 0, database.ErrNoResult
	}

	r.rows.Delete(key)

	return len(entries), nil
}

func (r *memoryRepository) ReadAll(_ context.Context, kind Kind, userID uint64) ([]json.RawMessage, error) {
	mutex, key := r.lock(kind, userID)
	defer mutex.Unlock()

	entries, found := r.rows.Get(key)
	if !found {
		return nil, database.ErrNoResult
	}

	out := make([]json.RawMessage, len(entries))
	copy(out, entries)

	return out, nil
}
