package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// TestLoggerInterface tests the TestLogger implementation of Logger
func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message", "warning_code", "TEST_WARNING")
	testLogger.Error("error message", fmt.Errorf("test error"), ErrorCodeKey, ErrorSingularMatrix)

	if buffer.String() == "" {
		t.Fatal("Expected log output, got empty string")
	}

	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}

	if !testLogger.ContainsField("key1", "value1") {
		t.Error("Expected field key1=value1 not found")
	}
	if !testLogger.ContainsField("number", 42.0) { // JSON unmarshaling converts numbers to float64
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField(ErrAttrKey, "test error") {
		t.Error("leading error should be recorded under the error key")
	}
	if !testLogger.ContainsField(ErrorCodeKey, ErrorSingularMatrix) {
		t.Error("fields after a leading error should still be paired")
	}
}

// TestLoggerWith tests the With method for context-aware logging
func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	contextLogger := testLogger.With(
		ModelNameKey, "StepwiseRegression",
		EstimatorIDKey, "sw-001",
	)
	contextLogger.Info("Feature removed", FeatureKey, "x2", PValueKey, 0.4)

	if !testLogger.ContainsField(ModelNameKey, "StepwiseRegression") {
		t.Error("Model name context not found")
	}
	if !testLogger.ContainsField(EstimatorIDKey, "sw-001") {
		t.Error("Estimator id context not found")
	}
	if !testLogger.ContainsField(FeatureKey, "x2") {
		t.Error("Feature field not found")
	}
	if testLogger.CountMessages("Feature removed") != 1 {
		t.Error("expected exactly one record")
	}
}

// TestLoggerEnabled tests the Enabled method
func TestLoggerEnabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	if !testLogger.Enabled(ctx, LevelInfo) {
		t.Error("Logger should be enabled for Info level")
	}
	if !testLogger.Enabled(ctx, LevelError) {
		t.Error("Logger should be enabled for Error level")
	}
	if testLogger.Enabled(ctx, LevelDebug) {
		t.Error("Logger should not be enabled for Debug level")
	}

	testLogger.Debug("this should not appear")
	testLogger.Info("this should appear")

	if testLogger.ContainsMessage("this should not appear") {
		t.Error("Debug message should not appear when level is Info")
	}
	if !testLogger.ContainsMessage("this should appear") {
		t.Error("Info message should appear when level is Info")
	}
}

// TestLoggerProviderIntegration tests the LoggerProvider interface
func TestLoggerProviderIntegration(t *testing.T) {
	provider, buffer := NewTestLoggerProvider(LevelDebug)

	provider.GetLogger().Info("provider test message")
	provider.GetLoggerWithName("stepwise").Info("named logger message")

	lines := buffer.String()
	for _, want := range []string{"provider test message", "named logger message", "stepwise"} {
		if !strings.Contains(lines, want) {
			t.Errorf("%q not found in provider output", want)
		}
	}

	provider.SetLevel(LevelError)
	provider.GetLogger().Info("filtered")
	if provider.Logger().ContainsMessage("filtered") {
		t.Error("SetLevel should filter lower levels")
	}
}

func TestSetProvider(t *testing.T) {
	provider, _ := NewTestLoggerProvider(LevelDebug)
	restore := SetProvider(provider)

	GetLoggerWithName("stepwise").Info("through default provider")
	restore()
	GetLogger().Debug("after restore")

	if !provider.Logger().ContainsMessage("through default provider") {
		t.Error("expected record in injected provider")
	}
	if provider.Logger().ContainsMessage("after restore") {
		t.Error("restore should reinstate the previous provider")
	}
}

func TestZerologProvider(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelDebug)
	defer provider.SetLevel(LevelInfo)

	logger := provider.GetLoggerWithName("stepwise").With(ModelNameKey, "StepwiseRegression")
	logger.Info("Elimination stopped", StopReasonKey, "all_significant", IterationKey, 2)
	logger.Error("Round failed", fmt.Errorf("singular matrix"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}

	var first map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if first["message"] != "Elimination stopped" {
		t.Errorf("message = %v", first["message"])
	}
	if first[ComponentKey] != "stepwise" || first[ModelNameKey] != "StepwiseRegression" {
		t.Errorf("context fields missing: %v", first)
	}
	if first[StopReasonKey] != "all_significant" || first[IterationKey] != 2.0 {
		t.Errorf("fields missing: %v", first)
	}

	var second map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if second[ErrAttrKey] != "singular matrix" {
		t.Errorf("error field = %v", second[ErrAttrKey])
	}

	var redirected bytes.Buffer
	provider.SetOutput(&redirected)
	logger.Warn("after redirect")
	if !strings.Contains(redirected.String(), "after redirect") {
		t.Error("SetOutput should redirect loggers created earlier")
	}

	provider.SetLevel(LevelError)
	if logger.Enabled(context.Background(), LevelInfo) {
		t.Error("Info should be disabled at error level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestConcurrentLogging tests thread safety of the TestLogger
func TestConcurrentLogging(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	const numGoroutines, messagesPerGoroutine = 4, 5
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < messagesPerGoroutine; j++ {
				testLogger.With("goroutine_id", id).Info("concurrent", "message_id", j)
			}
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatalf("Failed to parse log entries: %v", err)
	}
	if len(entries) != numGoroutines*messagesPerGoroutine {
		t.Errorf("Expected %d log entries, got %d", numGoroutines*messagesPerGoroutine, len(entries))
	}
}

func BenchmarkLoggingWithContext(b *testing.B) {
	testLogger, _ := NewTestLogger(LevelInfo)
	contextLogger := testLogger.With(ModelNameKey, "BenchmarkModel")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		contextLogger.Info("benchmark message", IterationKey, i)
	}
}
