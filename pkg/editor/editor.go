// Package editor is the public entry point: it wires the project store,
// probe, plan compiler and executors together for host applications and
// the CLI.
package editor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rdyjun/lclip/internal/config"
	"github.com/rdyjun/lclip/internal/logging"
	"github.com/rdyjun/lclip/internal/media"
	"github.com/rdyjun/lclip/internal/plan"
	"github.com/rdyjun/lclip/internal/preview"
	"github.com/rdyjun/lclip/internal/render"
	"github.com/rdyjun/lclip/internal/scene"
	"github.com/rdyjun/lclip/internal/store"
	"github.com/rdyjun/lclip/pkg/types"
)

// Export loads a project, compiles it and runs the local pipeline. Progress
// flows to sink and to a status file next to the project; sink may be nil.
func Export(ctx context.Context, opts *config.ExportOptions, sink types.ProgressSink) error {
	if opts.ProjectPath == "" || opts.OutputPath == "" {
		return fmt.Errorf("project path and output path are required")
	}
	logger := logging.Component("export")

	cfg, err := config.LoadEditor(opts.ConfigPath)
	if err != nil {
		return err
	}

	st := store.NewProjectStore(logger)
	proj, err := st.Load(opts.ProjectPath)
	if err != nil {
		return err
	}

	prober := media.NewFFProber(logging.Component("probe"))
	compiled, err := plan.NewCompiler(prober, logging.Component("plan")).
		WithFallbackDuration(cfg.FallbackDurationSeconds).
		Compile(ctx, proj)
	if err != nil {
		// Validation and probe failures happen before any extraction work.
		return err
	}

	rep := render.NewReporter(sink, store.NewStatusFile(opts.ProjectPath), logger)
	exec := render.NewServerExecutor(media.NewSystemFonts(logger), logger, opts.Verbose)

	outputPath := ensureOutputPath(opts.OutputPath)
	logger.Info().
		Str("project", proj.Name).
		Str("output", outputPath).
		Int("clips", len(compiled.Clips)).
		Msg("starting export")
	return exec.Execute(ctx, compiled, outputPath, rep)
}

// Probe reports stream metadata for a media source.
func Probe(ctx context.Context, opts *config.ProbeOptions) (*media.SourceInfo, error) {
	if opts.InputPath == "" {
		return nil, fmt.Errorf("input path is required")
	}
	prober := media.NewFFProber(logging.Component("probe"))
	return prober.Probe(ctx, opts.InputPath)
}

// ResolveFont maps a font family and style to a system font file, walking
// the fallback chain.
func ResolveFont(family string, bold bool) (string, error) {
	fonts := media.NewSystemFonts(logging.Component("fonts"))
	return fonts.Resolve(family, bold)
}

// Session bundles the editing-time pieces for one open project: the scene
// model, the compositor, interaction handling and the view transform.
// Playback surfaces are host-supplied, so the player is created separately.
type Session struct {
	Model       *scene.Model
	Compositor  *preview.Compositor
	Interaction *preview.Interaction
	Viewport    *preview.Viewport

	cfg    config.Editor
	store  *store.ProjectStore
	logger zerolog.Logger
}

// NewSession creates an editing session, loading tunables from configPath
// (empty means built-in defaults).
func NewSession(configPath string) (*Session, error) {
	cfg, err := config.LoadEditor(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.Component("session")
	model := scene.NewModel(logger, cfg.UndoDepth)
	return &Session{
		Model:       model,
		Compositor:  preview.NewCompositor(media.NewSystemFonts(logger), logger),
		Interaction: preview.NewInteraction(model),
		Viewport:    preview.NewViewport(),
		cfg:         cfg,
		store:       store.NewProjectStore(logger),
		logger:      logger,
	}, nil
}

// NewPlayer creates the playback driver over two host surfaces.
func (s *Session) NewPlayer(primary, secondary preview.MediaSurface) *preview.Player {
	return preview.NewPlayer(s.Model, primary, secondary, s.cfg, s.logger)
}

// LoadProject reads a project file into the model, resetting history.
func (s *Session) LoadProject(path string) error {
	proj, err := s.store.Load(path)
	if err != nil {
		return err
	}
	s.Model.Load(proj)
	return nil
}

// SaveProject writes the model's project to path.
func (s *Session) SaveProject(path string) error {
	return s.store.Save(path, s.Model.Project())
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9-_.]`)

// sanitizeFilename strips characters that complicate shell and URL
// handling from a file name.
func sanitizeFilename(name string) string {
	name = strings.TrimSuffix(name, ".mp4")
	name = unsafeFilename.ReplaceAllString(name, "_")
	name = regexp.MustCompile(`_+`).ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// ensureOutputPath creates the output directory and normalizes the file
// name to a sanitized .mp4.
func ensureOutputPath(path string) string {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			// The export itself will fail with a clearer error if the
			// directory truly cannot exist.
			logger := logging.Component("export")
			logger.Warn().Err(err).Str("dir", dir).Msg("failed to create output directory")
		}
	}
	base := sanitizeFilename(filepath.Base(path))
	if base == "" {
		base = "output"
	}
	return filepath.Join(dir, base+".mp4")
}
