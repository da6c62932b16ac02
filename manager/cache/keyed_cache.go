package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type CacheEntry[S comparable, V any] struct {
	Item V

	// entry is valid only while the source still carries this stamp
	stamp S

	RtStats *CacheStats
}

// KeyedCache holds decoded items by key. Concurrent loads of the same key run once.
type KeyedCache[S comparable, V any] struct {
	storage       map[string]*CacheEntry[S, V]
	storageLocker sync.RWMutex

	loadGroup singleflight.Group
}

func NewKeyedCache[S comparable, V any]() *KeyedCache[S, V] {
	return &KeyedCache[S, V]{
		storage: make(map[string]*CacheEntry[S, V]),
	}
}

func (m *KeyedCache[S, V]) Get(key string, stamp S) (V, bool) {
	m.storageLocker.RLock()
	defer m.storageLocker.RUnlock()

	if entry, ok := m.storage[key]; ok && entry.stamp == stamp {
		entry.RtStats.Reads.Add(1)
		return entry.Item, true
	}

	var zero V
	return zero, false
}

// Load returns the cached item for key or runs load and caches its result.
// A stale stamp replaces the entry.
func (m *KeyedCache[S, V]) Load(key string, stamp S, load func() (V, error)) (V, error) {
	if item, ok := m.Get(key, stamp); ok {
		return item, nil
	}

	loaded, err, _ := m.loadGroup.Do(key, func() (any, error) {
		// a flight that finished between Get and Do already stored it
		m.storageLocker.RLock()
		entry, ok := m.storage[key]
		m.storageLocker.RUnlock()
		if ok && entry.stamp == stamp {
			return entry.Item, nil
		}

		item, lerr := load()
		if lerr != nil {
			return nil, lerr
		}

		m.storageLocker.Lock()
		m.storage[key] = &CacheEntry[S, V]{
			Item:    item,
			stamp:   stamp,
			RtStats: &CacheStats{Created: time.Now()},
		}
		m.storageLocker.Unlock()

		return item, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	return loaded.(V), nil
}

// Stats of the entry for key, nil when nothing is cached.
func (m *KeyedCache[S, V]) Stats(key string) *CacheStats {
	m.storageLocker.RLock()
	defer m.storageLocker.RUnlock()

	if entry, ok := m.storage[key]; ok {
		return entry.RtStats
	}
	return nil
}

func (m *KeyedCache[S, V]) Evict(key string) {
	m.storageLocker.Lock()
	defer m.storageLocker.Unlock()

	delete(m.storage, key)
}

func (m *KeyedCache[S, V]) Len() int {
	m.storageLocker.RLock()
	defer m.storageLocker.RUnlock()

	return len(m.storage)
}
