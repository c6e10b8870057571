package storage

import (
	"sync"

	"github.com/YuminosukeSato/stepwise/pkg/errors"
)

type memoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]map[string][]byte)}
}

type memoryConnector struct {
	store     *memoryStore
	namespace string
	closed    bool
}

func (m *memoryConnector) Namespace() string { return m.namespace }

func (m *memoryConnector) Put(key string, v any) error {
	if m.closed {
		return errors.Wrapf(errors.ErrDeleted, "storage: put %s/%s", m.namespace, key)
	}
	data, err := encode(v)
	if err != nil {
		return err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	ns, ok := m.store.data[m.namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.store.data[m.namespace] = ns
	}
	ns[key] = data
	return nil
}

func (m *memoryConnector) Get(key string, v any) error {
	if m.closed {
		return errors.Wrapf(errors.ErrDeleted, "storage: get %s/%s", m.namespace, key)
	}
	m.store.mu.RLock()
	data, ok := m.store.data[m.namespace][key]
	m.store.mu.RUnlock()
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "storage: key %s/%s", m.namespace, key)
	}
	return decode(data, v)
}

func (m *memoryConnector) Exists(key string) (bool, error) {
	if m.closed {
		return false, errors.Wrapf(errors.ErrDeleted, "storage: exists %s/%s", m.namespace, key)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	_, ok := m.store.data[m.namespace][key]
	return ok, nil
}

func (m *memoryConnector) Clear() error {
	if m.closed {
		return errors.Wrapf(errors.ErrDeleted, "storage: clear %s", m.namespace)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	delete(m.store.data, m.namespace)
	return nil
}

func (m *memoryConnector) Close() error {
	m.closed = true
	return nil
}
