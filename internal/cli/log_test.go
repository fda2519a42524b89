package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/calostack/pkg/observability"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	if logger == nil {
		t.Fatal("newLogger() returned nil")
	}

	// Test that it can log
	logger.Info("test message")

	if buf.Len() == 0 {
		t.Error("logger should have written output")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{
			name:    "info at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Info("test") },
			wantLog: true,
		},
		{
			name:    "debug at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Debug("test") },
			wantLog: false,
		},
		{
			name:    "debug at debug level",
			level:   log.DebugLevel,
			logFunc: func(l *log.Logger) { l.Debug("test") },
			wantLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			tt.logFunc(logger)

			gotLog := buf.Len() > 0
			if gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestLogElapsed(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	logElapsed(logger, time.Now().Add(-1500*time.Millisecond), "built description", "detectors", 2)

	for _, want := range []string{"built description", "detectors=2", "elapsed=1.5"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("logElapsed() output %q lacks %q", buf.String(), want)
		}
	}
}

type countingHooks struct {
	observability.NoopBuildHooks
	detectors []string
}

func (h *countingHooks) OnDetectorBuilt(_ context.Context, name, _ string, _ int, _ time.Duration) {
	h.detectors = append(h.detectors, name)
}

func TestTrackProgress(t *testing.T) {
	defer observability.Reset()
	inner := &countingHooks{}
	observability.SetBuildHooks(inner)

	s, _ := quietSpinner(context.Background(), "Building")
	restore := trackProgress(s, "Building 1 description")
	observability.Build().OnDetectorBuilt(context.Background(), "SplitCal", "DD4hep_SplitCal", 4, time.Millisecond)
	observability.Build().OnDetectorBuilt(context.Background(), "Tracker", "DD4hep_SHiP_HPL_Fibre_Tracker", 1, time.Millisecond)

	if len(inner.detectors) != 2 {
		t.Errorf("wrapped hooks saw %v", inner.detectors)
	}
	s.mu.Lock()
	msg := s.message
	s.mu.Unlock()
	if want := "Building 1 description (2 detectors, last Tracker)"; msg != want {
		t.Errorf("spinner message = %q, want %q", msg, want)
	}

	restore()
	if observability.Build() != observability.BuildHooks(inner) {
		t.Error("restore did not reinstate the previous hooks")
	}
}
