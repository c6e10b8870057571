package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/stepwise/pkg/errors"
)

type record struct {
	Features []string
	PValues  map[string]float64
}

func backends(t *testing.T) map[string]*Configuration {
	t.Helper()
	inMemoryBadger := &Configuration{Backend: BackendBadger, Badger: BadgerConfig{InMemory: true}}
	return map[string]*Configuration{
		"memory": NewMemoryConfiguration(),
		"badger": inMemoryBadger,
	}
}

func TestConnectorRoundTrip(t *testing.T) {
	for name, conf := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer conf.Close()

			conn, err := conf.Open("model")
			require.NoError(t, err)
			assert.Equal(t, "model", conn.Namespace())

			in := record{Features: []string{"A", "C"}, PValues: map[string]float64{"A": 0.01}}
			require.NoError(t, conn.Put("kb", in))

			ok, err := conn.Exists("kb")
			require.NoError(t, err)
			assert.True(t, ok)

			var out record
			require.NoError(t, conn.Get("kb", &out))
			assert.Equal(t, in, out)

			err = conn.Get("missing", &out)
			assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
		})
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	for name, conf := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer conf.Close()

			a, err := conf.Open("model")
			require.NoError(t, err)
			b, err := conf.Open("model.regressor")
			require.NoError(t, err)

			require.NoError(t, a.Put("kb", 1))
			require.NoError(t, b.Put("kb", 2))

			require.NoError(t, b.Clear())

			ok, err := b.Exists("kb")
			require.NoError(t, err)
			assert.False(t, ok, "cleared namespace should be empty")

			var v int
			require.NoError(t, a.Get("kb", &v))
			assert.Equal(t, 1, v, "clearing one namespace must not touch another")
		})
	}
}

func TestClosedConnector(t *testing.T) {
	for name, conf := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer conf.Close()

			conn, err := conf.Open("model")
			require.NoError(t, err)
			require.NoError(t, conn.Put("kb", 1))
			require.NoError(t, conn.Close())

			assert.True(t, errors.Is(conn.Put("kb", 2), errors.ErrDeleted))
			assert.True(t, errors.Is(conn.Clear(), errors.ErrDeleted))

			reopened, err := conf.Open("model")
			require.NoError(t, err)
			var v int
			require.NoError(t, reopened.Get("kb", &v), "closing a connector keeps the data")
			assert.Equal(t, 1, v)
		})
	}
}

func TestDrop(t *testing.T) {
	conf := NewMemoryConfiguration()
	conn, err := conf.Open("model.regressor")
	require.NoError(t, err)
	require.NoError(t, conn.Put("state", "x"))

	require.NoError(t, conf.Drop("model.regressor"))

	ok, err := conn.Exists("state")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidNamespace(t *testing.T) {
	conf := NewMemoryConfiguration()
	for _, ns := range []string{"", "a/b", "a\x00b"} {
		_, err := conf.Open(ns)
		var vErr *errors.ValidationError
		assert.True(t, errors.As(err, &vErr), "namespace %q should be rejected", ns)
	}
}

func TestUnknownBackend(t *testing.T) {
	conf := &Configuration{Backend: "redis"}
	_, err := conf.Open("model")
	assert.Error(t, err)
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	conf := NewBadgerConfiguration(dir)
	conn, err := conf.Open("model")
	require.NoError(t, err)
	require.NoError(t, conn.Put("kb", record{Features: []string{"x1"}}))
	require.NoError(t, conf.Close())

	reopened := NewBadgerConfiguration(dir)
	defer reopened.Close()
	conn, err = reopened.Open("model")
	require.NoError(t, err)

	var out record
	require.NoError(t, conn.Get("kb", &out))
	assert.Equal(t, []string{"x1"}, out.Features)
}

func TestOpenBadgerRequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}
