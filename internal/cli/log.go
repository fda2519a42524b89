// Package cli implements the calostack command-line interface.
//
// The commands build TOML detector descriptions into geometry reports,
// render side views and the volume hierarchy, decode readout identifiers and
// serve the same pipeline over HTTP. The CLI is built using cobra and
// supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - build: Build descriptions and write reports and drawings
//   - render: Redraw a saved report in other formats or views
//   - codes: List the layer codes each detector type understands
//   - inspect: Browse the layers of a build interactively
//   - decode: Resolve an identifier chain to the volume path it names
//   - serve: Run the HTTP API
//   - cache: Manage the build cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Build events
// from the pipeline are forwarded to the logger through observability hooks.
//
// # Example
//
//	import "github.com/matzehuels/calostack/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/calostack/pkg/observability"
)

// newLogger creates a logger writing to w at level, with "HH:MM:SS.ms"
// timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// logElapsed logs msg at info level with the time elapsed since start,
// rounded to the millisecond.
func logElapsed(l *log.Logger, start time.Time, msg string, keyvals ...any) {
	l.Info(msg, append(keyvals, "elapsed", time.Since(start).Round(time.Millisecond))...)
}

// progressHooks forwards build events to the wrapped hooks and keeps a
// spinner message current with the number of detectors built so far.
type progressHooks struct {
	observability.BuildHooks
	spinner *Spinner
	label   string
	built   atomic.Int64
}

func (h *progressHooks) OnDetectorBuilt(ctx context.Context, name, typ string, layers int, d time.Duration) {
	h.BuildHooks.OnDetectorBuilt(ctx, name, typ, layers, d)
	n := h.built.Add(1)
	h.spinner.SetMessage(fmt.Sprintf("%s (%s, last %s)", h.label, plural(int(n), "detector"), name))
}

// trackProgress installs hooks updating s while builds run and returns a
// function restoring the previous hooks.
func trackProgress(s *Spinner, label string) (restore func()) {
	prev := observability.Build()
	observability.SetBuildHooks(&progressHooks{BuildHooks: prev, spinner: s, label: label})
	return func() { observability.SetBuildHooks(prev) }
}
