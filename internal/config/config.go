package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// ExportOptions defines options for exporting a project to a video file
type ExportOptions struct {
	ProjectPath string
	OutputPath  string
	ConfigPath  string
	Verbose     bool
}

// ProbeOptions defines options for probing a media source
type ProbeOptions struct {
	InputPath string
	Verbose   bool
}

const (
	// Default output canvas (portrait short-form)
	DefaultOutputWidth  = 1080
	DefaultOutputHeight = 1920
	DefaultFPS          = 30

	// Duration used when a project has no clips at all
	DefaultProjectDuration = 10.0

	// Undo stack depth (whole-layer snapshots)
	MaxUndoSnapshots = 50

	// Minimum clip box size during interactive resize
	MinClipSize = 20.0

	// Progress split between extraction and composite phases
	ExtractProgressSpan  = 60.0
	CompositeProgressEnd = 100.0

	// Persisted progress writes are throttled to once per this many seconds
	ProgressWriteIntervalSec = 1.0

	// Temporary directory prefix for export jobs
	TempDirPrefix = "lclip_export_"

	// Coarse input-side seek lead for near-frame-accurate trims
	SeekLeadSeconds = 2.0
)

// Editor holds the interactive-preview tunables. The defaults were tuned
// empirically against real footage; a config file can override them.
type Editor struct {
	// Timeline seconds before a clip boundary at which the next source is
	// preloaded into the inactive surface.
	PreloadLeadSeconds float64 `toml:"preload_lead_seconds"`

	// Maximum divergence between media-derived time and expected time before
	// the player falls back to wall-clock advancement.
	DriftThresholdSeconds float64 `toml:"drift_threshold_seconds"`

	// Duration reported for a project with no clips.
	FallbackDurationSeconds float64 `toml:"fallback_duration_seconds"`

	// Undo snapshot stack depth.
	UndoDepth int `toml:"undo_depth"`
}

// DefaultEditor returns the built-in editor tunables.
func DefaultEditor() Editor {
	return Editor{
		PreloadLeadSeconds:      1.5,
		DriftThresholdSeconds:   0.25,
		FallbackDurationSeconds: DefaultProjectDuration,
		UndoDepth:               MaxUndoSnapshots,
	}
}

// LoadEditor reads editor tunables from a TOML file, filling unset or
// out-of-range fields with defaults. A missing file is not an error.
func LoadEditor(path string) (Editor, error) {
	cfg := DefaultEditor()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "failed to read config file")
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	def := DefaultEditor()
	if cfg.PreloadLeadSeconds <= 0 {
		cfg.PreloadLeadSeconds = def.PreloadLeadSeconds
	}
	if cfg.DriftThresholdSeconds <= 0 {
		cfg.DriftThresholdSeconds = def.DriftThresholdSeconds
	}
	if cfg.FallbackDurationSeconds <= 0 {
		cfg.FallbackDurationSeconds = def.FallbackDurationSeconds
	}
	if cfg.UndoDepth <= 0 {
		cfg.UndoDepth = def.UndoDepth
	}

	return cfg, nil
}
