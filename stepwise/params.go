package stepwise

import (
	"github.com/go-playground/validator/v10"

	"github.com/YuminosukeSato/stepwise/core/model"
	"github.com/YuminosukeSato/stepwise/pkg/errors"
)

// DefaultAout is the default p-value exit threshold.
const DefaultAout = 0.05

var paramsValidate *validator.Validate

func init() {
	paramsValidate = validator.New()
}

// paramFields mirrors TrainingParameters for tag validation.
type paramFields struct {
	MaxIterations *int       `validate:"omitempty,gte=0"`
	Aout          float64    `validate:"gt=0,lte=1"`
	Kind          model.Kind `validate:"required"`
}

// TrainingParameters configures a stepwise fit. It is built with
// NewTrainingParameters and every setter validates, so a value held by a
// Regression is always valid.
type TrainingParameters struct {
	maxIterations *int
	aout          float64
	kind          model.Kind
	params        any
	registry      *model.Registry
}

// ParamOption configures TrainingParameters at construction.
type ParamOption func(*TrainingParameters)

// WithMaxIterations bounds the number of elimination rounds. 0 skips
// elimination and trains only the final model.
func WithMaxIterations(n int) ParamOption {
	return func(p *TrainingParameters) {
		p.maxIterations = &n
	}
}

// WithAout sets the p-value exit threshold. Features with a p-value at or
// below aout are kept.
func WithAout(aout float64) ParamOption {
	return func(p *TrainingParameters) {
		p.aout = aout
	}
}

// WithRegressionParams sets the parameters forwarded verbatim to every base
// model the fit creates.
func WithRegressionParams(params any) ParamOption {
	return func(p *TrainingParameters) {
		p.params = params
	}
}

// WithRegistry resolves the regression kind in r instead of
// model.DefaultRegistry().
func WithRegistry(r *model.Registry) ParamOption {
	return func(p *TrainingParameters) {
		p.registry = r
	}
}

// NewTrainingParameters returns validated parameters for kind. It fails with
// a ValidationError wrapping errors.ErrIncompatibleModel when kind does not
// report feature p-values.
func NewTrainingParameters(kind model.Kind, opts ...ParamOption) (*TrainingParameters, error) {
	p := &TrainingParameters{
		aout:     DefaultAout,
		kind:     kind,
		registry: model.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = model.DefaultRegistry()
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *TrainingParameters) validate() error {
	fields := paramFields{MaxIterations: p.maxIterations, Aout: p.aout, Kind: p.kind}
	if err := paramsValidate.Struct(fields); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fe.Field(), "failed '"+fe.Tag()+"' rule "+fe.Param(), fe.Value())
		}
		return errors.Wrap(err, "stepwise: validate parameters")
	}

	entry, err := p.registry.Lookup(p.kind)
	if err != nil {
		return errors.NewValidationErrorWithCause("RegressionKind", "unknown regression kind", p.kind, err)
	}
	if !entry.Stepwise {
		return errors.NewValidationErrorWithCause("RegressionKind",
			"regression kind does not report feature p-values", p.kind, errors.ErrIncompatibleModel)
	}
	return nil
}

// set applies fn to a copy, validates it and commits on success.
func (p *TrainingParameters) set(fn func(*TrainingParameters)) error {
	next := *p
	fn(&next)
	if err := next.validate(); err != nil {
		return err
	}
	*p = next
	return nil
}

// SetMaxIterations bounds the number of elimination rounds.
func (p *TrainingParameters) SetMaxIterations(n int) error {
	return p.set(func(q *TrainingParameters) { q.maxIterations = &n })
}

// ClearMaxIterations removes the bound on elimination rounds.
func (p *TrainingParameters) ClearMaxIterations() {
	p.maxIterations = nil
}

// SetAout sets the p-value exit threshold.
func (p *TrainingParameters) SetAout(aout float64) error {
	return p.set(func(q *TrainingParameters) { q.aout = aout })
}

// SetRegressionKind changes the base model kind.
func (p *TrainingParameters) SetRegressionKind(kind model.Kind) error {
	return p.set(func(q *TrainingParameters) { q.kind = kind })
}

// SetRegressionParams replaces the parameters forwarded to base models.
func (p *TrainingParameters) SetRegressionParams(params any) {
	p.params = params
}

// MaxIterations returns the round bound and whether one is set.
func (p *TrainingParameters) MaxIterations() (int, bool) {
	if p.maxIterations == nil {
		return 0, false
	}
	return *p.maxIterations, true
}

// Aout returns the p-value exit threshold.
func (p *TrainingParameters) Aout() float64 { return p.aout }

// RegressionKind returns the base model kind.
func (p *TrainingParameters) RegressionKind() model.Kind { return p.kind }

// RegressionParams returns the parameters forwarded to base models.
func (p *TrainingParameters) RegressionParams() any { return p.params }

// Registry returns the registry the kind is resolved in.
func (p *TrainingParameters) Registry() *model.Registry { return p.registry }
