// Package storage persists model state. A Configuration names one backend
// (in-memory or BadgerDB) and hands out Connectors, each scoped to a
// namespace. Models bound to the same Configuration share the backend but
// never see each other's keys.
package storage

import (
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/pkg/log"
)

// Backend selects the storage engine.
type Backend string

const (
	// BackendMemory keeps all state in process memory.
	BackendMemory Backend = "memory"
	// BackendBadger stores state in an embedded BadgerDB.
	BackendBadger Backend = "badger"
)

// Connector reads and writes gob-encoded values under string keys inside one
// namespace.
type Connector interface {
	// Namespace returns the namespace the connector is bound to.
	Namespace() string

	// Put stores v under key.
	Put(key string, v any) error

	// Get decodes the value stored under key into v. It returns an error
	// matching errors.ErrNotFound when the key does not exist.
	Get(key string, v any) error

	// Exists reports whether key is present.
	Exists(key string) (bool, error)

	// Clear removes every key of the namespace.
	Clear() error

	// Close releases the connector. Stored data is kept.
	Close() error
}

// Configuration is the shared storage context of a set of models.
type Configuration struct {
	Backend Backend
	Badger  BadgerConfig

	mu     sync.Mutex
	memory *memoryStore
	db     *badger.DB
	logger log.Logger
}

// NewMemoryConfiguration returns a Configuration backed by process memory.
func NewMemoryConfiguration() *Configuration {
	return &Configuration{Backend: BackendMemory}
}

// NewBadgerConfiguration returns a Configuration backed by a BadgerDB stored
// in path. The database is opened on first use.
func NewBadgerConfiguration(path string) *Configuration {
	cfg := DefaultBadgerConfig()
	cfg.Path = path
	return &Configuration{Backend: BackendBadger, Badger: cfg}
}

// SetLogger sets the logger used by the backend. It must be called before
// the first Open.
func (c *Configuration) SetLogger(logger log.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

func (c *Configuration) getLogger() log.Logger {
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("storage")
	}
	return c.logger
}

// Open returns a Connector scoped to namespace.
func (c *Configuration) Open(namespace string) (Connector, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.Backend {
	case BackendMemory, "":
		if c.memory == nil {
			c.memory = newMemoryStore()
		}
		return &memoryConnector{store: c.memory, namespace: namespace}, nil
	case BackendBadger:
		if c.db == nil {
			cfg := c.Badger
			cfg.Logger = c.getLogger()
			db, err := OpenBadger(cfg)
			if err != nil {
				return nil, err
			}
			c.db = db
		}
		return &badgerConnector{db: c.db, namespace: namespace}, nil
	default:
		return nil, errors.NewValidationError("backend", "unknown storage backend", c.Backend)
	}
}

// Drop removes every key of namespace without keeping a Connector open.
func (c *Configuration) Drop(namespace string) error {
	conn, err := c.Open(namespace)
	if err != nil {
		return err
	}
	return errors.CombineErrors(conn.Clear(), conn.Close())
}

// Close releases the backend. Connectors opened from the Configuration must
// not be used afterwards. A memory backend loses its data.
func (c *Configuration) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory = nil
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		return errors.Wrap(err, "storage: close badger")
	}
	return nil
}

func validateNamespace(namespace string) error {
	if namespace == "" {
		return errors.NewValidationError("namespace", "namespace must not be empty", namespace)
	}
	if strings.ContainsAny(namespace, "/\x00") {
		return errors.NewValidationError("namespace", "namespace must not contain '/' or NUL", namespace)
	}
	return nil
}
