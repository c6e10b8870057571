package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	scierrors "github.com/YuminosukeSato/stepwise/pkg/errors"
)

// ErrorCode classifies err into one of the Error* attribute values, or ""
// when err is not one of the library's known failures. Sentinels are
// checked before error types, so a ValidationError caused by
// ErrIncompatibleModel reports ErrorIncompatible.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	sentinels := []struct {
		target error
		code   string
	}{
		{scierrors.ErrIncompatibleModel, ErrorIncompatible},
		{scierrors.ErrUnknownModel, ErrorUnknownModel},
		{scierrors.ErrSingularMatrix, ErrorSingularMatrix},
		{scierrors.ErrEmptyData, ErrorEmptyData},
		{scierrors.ErrNotFound, ErrorNotFound},
		{scierrors.ErrDeleted, ErrorDeleted},
	}
	for _, s := range sentinels {
		if scierrors.Is(err, s.target) {
			return s.code
		}
	}

	var notFitted *scierrors.NotFittedError
	if scierrors.As(err, &notFitted) {
		return ErrorNotFitted
	}
	var validation *scierrors.ValidationError
	if scierrors.As(err, &validation) {
		return ErrorInvalidInput
	}
	var value *scierrors.ValueError
	if scierrors.As(err, &value) {
		return ErrorInvalidInput
	}
	return ""
}

// ErrFmtHandler is a slog handler for records carrying an error under
// ErrAttrKey. It adds the error's stack trace as StacktraceAttrKey and its
// ErrorCode as ErrorCodeKey unless the record already sets a code.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler with error enrichment.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{handler: handler}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var (
		err     error
		hasCode bool
	)
	r.Attrs(func(attr slog.Attr) bool {
		switch attr.Key {
		case ErrAttrKey:
			if e, ok := attr.Value.Any().(error); ok {
				err = e
			}
		case ErrorCodeKey:
			hasCode = true
		}
		return true
	})
	if err == nil {
		return eh.handler.Handle(ctx, r)
	}

	if stacktrace := extractStacktrace(err); stacktrace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, stacktrace))
	}
	if code := ErrorCode(err); code != "" && !hasCode {
		r.AddAttrs(slog.String(ErrorCodeKey, code))
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// extractStacktrace returns the first safe detail cockroachdb/errors
// recorded for err, which holds the stack of its origin.
func extractStacktrace(err error) string {
	if details := errors.GetSafeDetails(err).SafeDetails; len(details) > 0 {
		return details[0]
	}
	return ""
}
