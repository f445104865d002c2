package fp

import "sync"

func NewMutexMap[key comparable, value any]() MutexMap[key, value] {
	return MutexMap[key, value]{
		data: map[key]value{},
		mu:   &sync.RWMutex{},
	}
}

type MutexMap[K comparable, V any] struct {
	data map[K]V
	mu   *sync.RWMutex
}

func (m *MutexMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

func (m *MutexMap[K, V]) Get(key K) (V, bool) { //nolint:ireturn
	m.mu.RLock()
	value, found := m.data[key]
	m.mu.RUnlock()

	return value, found
}

func (m *MutexMap[K, V]) Delete(key K) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

// GetOrCreate returns the existing value for key, creating and storing one via
// create when absent.
func (m *MutexMap[K, V]) GetOrCreate(key K, create func() V) V { //nolint:ireturn
	m.mu.RLock()
	value, found := m.data[key]
	m.mu.RUnlock()

	if found {
		return value
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if value, found = m.data[key]; found {
		return value
	}

	value = create()
	m.data[key] = value

	return value
}
