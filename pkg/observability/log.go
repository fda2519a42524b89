package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogBuildHooks writes build events to a logger at debug level. Failed
// builds are logged as errors.
type LogBuildHooks struct {
	Logger *log.Logger
}

// NewLogBuildHooks creates build hooks logging to logger.
func NewLogBuildHooks(logger *log.Logger) *LogBuildHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogBuildHooks{Logger: logger}
}

func (h *LogBuildHooks) OnBuildStart(_ context.Context, detectors int) {
	h.Logger.Debug("build started", "detectors", detectors)
}

func (h *LogBuildHooks) OnDetectorBuilt(_ context.Context, name, typ string, layers int, d time.Duration) {
	h.Logger.Debug("detector built", "name", name, "type", typ, "layers", layers, "duration", d)
}

func (h *LogBuildHooks) OnBuildComplete(_ context.Context, s BuildStats, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("build failed", "error", err, "duration", d)
		return
	}
	h.Logger.Debug("build complete", "detectors", s.Detectors, "layers", s.Layers,
		"volumes", s.Volumes, "placements", s.Placements, "duration", d)
}

func (h *LogBuildHooks) OnRenderStart(_ context.Context, formats []string) {
	h.Logger.Debug("render started", "formats", formats)
}

func (h *LogBuildHooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("render failed", "formats", formats, "error", err)
		return
	}
	h.Logger.Debug("render complete", "formats", formats, "duration", d)
}

var _ BuildHooks = (*LogBuildHooks)(nil)
