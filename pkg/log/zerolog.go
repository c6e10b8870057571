package log

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	scierrors "github.com/YuminosukeSato/stepwise/pkg/errors"
)

// ZerologProvider is the default LoggerProvider. All loggers it hands out
// share one swappable output, so SetOutput also redirects loggers created
// earlier.
type ZerologProvider struct {
	out  *switchWriter
	base zerolog.Logger
}

// NewZerologProvider creates a provider writing JSON lines to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	out := &switchWriter{w: w}
	p := &ZerologProvider{
		out:  out,
		base: zerolog.New(out).With().Timestamp().Logger(),
	}
	p.SetLevel(level)
	return p
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{zl: p.base}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel. zerolog keeps the minimum
// level globally, so this applies to every logger already handed out.
func (p *ZerologProvider) SetLevel(level Level) {
	zerolog.SetGlobalLevel(toZerologLevel(level))
}

// SetOutput redirects every logger of this provider to w.
func (p *ZerologProvider) SetOutput(w io.Writer) {
	p.out.set(w)
}

type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

type zerologLogger struct {
	zl zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...any) { emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { emit(l.zl.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { emit(l.zl.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{zl: l.zl.With().Fields(fields).Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	zlevel := toZerologLevel(level)
	return zlevel >= zerolog.GlobalLevel() && zlevel >= l.zl.GetLevel()
}

func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			e = e.AnErr(ErrAttrKey, err)
			fields = fields[1:]
			if code := ErrorCode(err); code != "" && !hasField(fields, ErrorCodeKey) {
				e = e.Str(ErrorCodeKey, code)
			}
		}
	}
	e.Fields(fields).Msg(msg)
}

func hasField(fields []any, key string) bool {
	for i := 0; i < len(fields)-1; i += 2 {
		if k, ok := fields[i].(string); ok && k == key {
			return true
		}
	}
	return false
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

var (
	providerMu      sync.RWMutex
	defaultZerolog  = NewZerologProvider(os.Stderr, LevelInfo)
	defaultProvider LoggerProvider = defaultZerolog
)

func init() {
	scierrors.SetZerologWarnFunc(func(w error) {
		e := defaultZerolog.base.Warn().Str(ComponentKey, "warnings")
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			e = e.Object("warning", m)
		}
		e.Msg(w.Error())
	})
}

// GetLogger returns a logger from the default provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns a named logger from the default provider.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLoggerWithName(name)
}

// SetLevel sets the minimum level of the default provider.
func SetLevel(level Level) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	defaultProvider.SetLevel(level)
}

// SetOutput redirects the zerolog provider, including library warnings.
func SetOutput(w io.Writer) {
	defaultZerolog.SetOutput(w)
}

// SetProvider replaces the default provider and returns a function that
// restores the previous one.
func SetProvider(p LoggerProvider) (restore func()) {
	providerMu.Lock()
	defer providerMu.Unlock()
	prev := defaultProvider
	defaultProvider = p
	return func() {
		providerMu.Lock()
		defer providerMu.Unlock()
		defaultProvider = prev
	}
}
