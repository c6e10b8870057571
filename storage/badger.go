package storage

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/pkg/log"
)

// BadgerConfig holds configuration for the BadgerDB backend.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal messages. Nil disables them.
	Logger log.Logger
}

// DefaultBadgerConfig returns durable defaults.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{SyncWrites: true}
}

// badgerLogger adapts log.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens a BadgerDB with cfg. The caller owns the returned DB.
func OpenBadger(cfg BadgerConfig) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.NewValidationError("path", "path is required for persistent database", cfg.Path)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, errors.Wrapf(err, "storage: create database directory %s", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "storage: open badger database")
	}
	return db, nil
}

type badgerConnector struct {
	db        *badger.DB
	namespace string
	closed    bool
}

func (b *badgerConnector) prefix() []byte {
	return []byte(b.namespace + "/")
}

func (b *badgerConnector) key(k string) []byte {
	return []byte(b.namespace + "/" + k)
}

func (b *badgerConnector) Namespace() string { return b.namespace }

func (b *badgerConnector) Put(key string, v any) error {
	if b.closed {
		return errors.Wrapf(errors.ErrDeleted, "storage: put %s/%s", b.namespace, key)
	}
	data, err := encode(v)
	if err != nil {
		return err
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key(key), data)
	})
	if err != nil {
		return errors.Wrapf(err, "storage: put %s/%s", b.namespace, key)
	}
	return nil
}

func (b *badgerConnector) Get(key string, v any) error {
	if b.closed {
		return errors.Wrapf(errors.ErrDeleted, "storage: get %s/%s", b.namespace, key)
	}
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.Wrapf(errors.ErrNotFound, "storage: key %s/%s", b.namespace, key)
	}
	if err != nil {
		return errors.Wrapf(err, "storage: get %s/%s", b.namespace, key)
	}
	return decode(data, v)
}

func (b *badgerConnector) Exists(key string) (bool, error) {
	if b.closed {
		return false, errors.Wrapf(errors.ErrDeleted, "storage: exists %s/%s", b.namespace, key)
	}
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(b.key(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "storage: exists %s/%s", b.namespace, key)
	}
	return true, nil
}

func (b *badgerConnector) Clear() error {
	if b.closed {
		return errors.Wrapf(errors.ErrDeleted, "storage: clear %s", b.namespace)
	}
	if err := b.db.DropPrefix(b.prefix()); err != nil {
		return errors.Wrapf(err, "storage: clear %s", b.namespace)
	}
	return nil
}

func (b *badgerConnector) Close() error {
	b.closed = true
	return nil
}
