package model

import (
	"sort"
	"sync"

	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/storage"
)

// Kind identifies a registered base regression model, e.g. "ols".
type Kind string

// Factory creates an unfitted Regressor bound to namespace. params is the
// opaque parameter value from the training configuration; nil selects the
// model's defaults.
type Factory func(namespace string, conf *storage.Configuration, params any) (Regressor, error)

// Entry describes one registered kind.
type Entry struct {
	Kind Kind
	New  Factory

	// Stepwise reports whether the concrete type returned by New implements
	// StepwiseCompatible. It is decided once, at registration.
	Stepwise bool

	// Params returns a pointer to a default-valued parameter struct the kind
	// accepts, for decoders such as the config loader. It may be nil.
	Params func() any
}

// Registry maps kinds to factories. The zero value is not usable; use
// NewRegistry.
type Registry struct {
	mu      sync.RWMutex
	entries map[Kind]Entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Kind]Entry)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry that model packages
// register into from init.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds kind to r. The capability check is done on the type
// parameter, so a factory declared to return *OLS is compatible exactly when
// *OLS implements StepwiseCompatible.
func Register[R Regressor](r *Registry, kind Kind, newFn func(string, *storage.Configuration, any) (R, error), params func() any) error {
	if kind == "" {
		return errors.NewValidationError("kind", "kind must not be empty", kind)
	}
	if newFn == nil {
		return errors.NewValidationError("factory", "factory must not be nil", kind)
	}

	var zero R
	_, compatible := any(zero).(StepwiseCompatible)

	entry := Entry{
		Kind: kind,
		New: func(namespace string, conf *storage.Configuration, p any) (Regressor, error) {
			return newFn(namespace, conf, p)
		},
		Stepwise: compatible,
		Params:   params,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entries[kind]; dup {
		return errors.NewValidationError("kind", "kind already registered", kind)
	}
	r.entries[kind] = entry
	return nil
}

// MustRegister is Register that panics on error. It is meant for init.
func MustRegister[R Regressor](r *Registry, kind Kind, newFn func(string, *storage.Configuration, any) (R, error), params func() any) {
	if err := Register(r, kind, newFn, params); err != nil {
		panic(err)
	}
}

// Lookup returns the entry of kind.
func (r *Registry) Lookup(kind Kind) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[kind]
	if !ok {
		return Entry{}, errors.Wrapf(errors.ErrUnknownModel, "kind %q", kind)
	}
	return entry, nil
}

// IsStepwiseCompatible reports whether kind is registered and its models
// report feature p-values.
func (r *Registry) IsStepwiseCompatible(kind Kind) bool {
	entry, err := r.Lookup(kind)
	return err == nil && entry.Stepwise
}

// New creates a model of kind.
func (r *Registry) New(kind Kind, namespace string, conf *storage.Configuration, params any) (Regressor, error) {
	entry, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return entry.New(namespace, conf, params)
}

// Kinds returns the registered kinds in lexical order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.entries))
	for k := range r.entries {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
