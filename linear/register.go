package linear

import (
	"github.com/YuminosukeSato/stepwise/core/model"
	"github.com/YuminosukeSato/stepwise/storage"
)

// Registered kinds.
const (
	KindOLS   model.Kind = "ols"
	KindRidge model.Kind = "ridge"
)

func init() {
	if err := Register(model.DefaultRegistry()); err != nil {
		panic(err)
	}
}

// Register adds the linear models to r.
func Register(r *model.Registry, opts ...Option) error {
	err := model.Register(r, KindOLS,
		func(ns string, conf *storage.Configuration, params any) (*OLS, error) {
			return NewOLS(ns, conf, params, opts...)
		},
		func() any { p := DefaultOLSParams(); return &p },
	)
	if err != nil {
		return err
	}
	return model.Register(r, KindRidge,
		func(ns string, conf *storage.Configuration, params any) (*Ridge, error) {
			return NewRidge(ns, conf, params, opts...)
		},
		func() any { p := DefaultRidgeParams(); return &p },
	)
}
