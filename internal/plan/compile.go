package plan

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/rdyjun/lclip/internal/config"
	"github.com/rdyjun/lclip/internal/geometry"
	"github.com/rdyjun/lclip/internal/media"
	"github.com/rdyjun/lclip/internal/scene"
)

// ErrNoVideoClips rejects an export before any extraction work starts.
var ErrNoVideoClips = errors.New("project has no video clips to export")

// Compiler turns a finalized project into a Plan. It probes every distinct
// source once; a failed probe fails the whole compile, because silently
// skipping a clip would produce a partial timeline.
type Compiler struct {
	prober           media.Prober
	logger           zerolog.Logger
	fallbackDuration float64
}

// NewCompiler creates a compiler.
func NewCompiler(prober media.Prober, logger zerolog.Logger) *Compiler {
	return &Compiler{
		prober:           prober,
		logger:           logger,
		fallbackDuration: config.DefaultProjectDuration,
	}
}

// WithFallbackDuration overrides the duration assumed for a project whose
// layers hold no clips at all. Non-positive values keep the default.
func (c *Compiler) WithFallbackDuration(seconds float64) *Compiler {
	if seconds > 0 {
		c.fallbackDuration = seconds
	}
	return c
}

// Compile builds the render plan for a project snapshot. Hidden layers are
// excluded, matching what the preview shows.
func (c *Compiler) Compile(ctx context.Context, proj *scene.Project) (*Plan, error) {
	p := &Plan{
		Width:    proj.OutputWidth,
		Height:   proj.OutputHeight,
		FPS:      proj.FPS,
		Duration: proj.Duration(c.fallbackDuration),
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, errors.Errorf("invalid output canvas %dx%d", p.Width, p.Height)
	}
	if p.FPS <= 0 {
		p.FPS = config.DefaultFPS
	}

	layers := proj.LayersByOrder()

	// Collect per-variant clips in z order (layer order ascending, array
	// order within a layer).
	var videos []*scene.VideoClip
	var subtitles []*scene.SubtitleClip
	var audios []*scene.AudioClip
	for _, l := range layers {
		if !l.Visible {
			continue
		}
		for _, clip := range l.Clips {
			switch v := clip.(type) {
			case *scene.VideoClip:
				videos = append(videos, v)
			case *scene.SubtitleClip:
				if v.Text != "" {
					subtitles = append(subtitles, v)
				}
			case *scene.AudioClip:
				audios = append(audios, v)
			}
		}
	}
	if len(videos) == 0 {
		return nil, ErrNoVideoClips
	}

	// Probe each distinct source once.
	probes := map[string]*media.SourceInfo{}
	for _, v := range videos {
		if _, ok := probes[v.Src]; ok {
			continue
		}
		info, err := c.prober.Probe(ctx, v.Src)
		if err != nil {
			return nil, errors.Wrapf(err, "source %s is not usable", v.Src)
		}
		probes[v.Src] = info
	}

	// Per-clip transform stages, sorted by start time. The z-ordered list
	// indexes into these through stageIndex.
	ordered := make([]*scene.VideoClip, len(videos))
	copy(ordered, videos)
	sortByStart(ordered)

	stageIndex := map[string]int{}
	for i, v := range ordered {
		if v.EndTime <= v.StartTime {
			return nil, errors.Errorf("clip %s has an empty time window [%.3f, %.3f)",
				v.ID, v.StartTime, v.EndTime)
		}
		if v.SrcEnd <= v.SrcStart {
			return nil, errors.Errorf("clip %s has an empty source window [%.3f, %.3f)",
				v.ID, v.SrcStart, v.SrcEnd)
		}
		info := probes[v.Src]

		stage := ClipStage{
			ClipID:    v.ID,
			Src:       v.Src,
			SrcStart:  v.SrcStart,
			SrcEnd:    v.SrcEnd,
			StartTime: v.StartTime,
			EndTime:   v.EndTime,
			Opacity:   v.Opacity,
			HasAudio:  info.HasAudio,
			LocalName: fmt.Sprintf("clip_%03d.mp4", i),
			Geometry: geometry.Resolve(geometry.Input{
				X: v.X, Y: v.Y, Width: v.Width, Height: v.Height,
				Fit:          v.Fit,
				SourceWidth:  info.Width,
				SourceHeight: info.Height,
				OutputWidth:  p.Width,
				OutputHeight: p.Height,
			}),
		}
		p.Clips = append(p.Clips, stage)
		stageIndex[v.ID] = i
	}

	// Composite: overlays in z order, subtitles in flattened order, audio
	// from clip stages with audio plus standalone audio clips.
	for _, v := range videos {
		idx := stageIndex[v.ID]
		g := p.Clips[idx].Geometry
		p.Composite.Overlays = append(p.Composite.Overlays, Overlay{
			ClipIndex: idx,
			X:         g.OverlayX,
			Y:         g.OverlayY,
			Start:     v.StartTime,
			End:       v.EndTime,
			Opacity:   v.Opacity,
		})
	}

	for _, s := range subtitles {
		p.Composite.Subtitles = append(p.Composite.Subtitles, SubtitleDraw{
			Text:              s.Text,
			X:                 s.X,
			Y:                 s.Y,
			FontSize:          s.FontSize,
			FontFamily:        s.FontFamily,
			Bold:              s.Bold,
			Color:             s.Color,
			BackgroundColor:   s.BackgroundColor,
			BackgroundPadding: s.BackgroundPadding,
			Align:             s.Align,
			Shadow:            s.Shadow,
			Start:             s.StartTime,
			End:               s.EndTime,
		})
	}

	for i := range p.Clips {
		if !p.Clips[i].HasAudio {
			continue
		}
		p.Composite.Audio.Inputs = append(p.Composite.Audio.Inputs, AudioInput{
			ClipIndex: i,
			Volume:    1,
			DelayMs:   delayMs(p.Clips[i].StartTime),
		})
	}
	for _, a := range audios {
		p.Composite.Audio.Inputs = append(p.Composite.Audio.Inputs, AudioInput{
			ClipIndex:   -1,
			Src:         a.Src,
			Volume:      a.Volume,
			DelayMs:     delayMs(a.StartTime),
			TrimSeconds: a.EndTime - a.StartTime,
		})
	}

	c.logger.Debug().
		Int("clips", len(p.Clips)).
		Int("subtitles", len(p.Composite.Subtitles)).
		Int("audio_inputs", len(p.Composite.Audio.Inputs)).
		Float64("duration", p.Duration).
		Msg("compiled render plan")
	return p, nil
}

func sortByStart(clips []*scene.VideoClip) {
	// Insertion keeps the z-order of equal start times stable.
	for i := 1; i < len(clips); i++ {
		for j := i; j > 0 && clips[j-1].StartTime > clips[j].StartTime; j-- {
			clips[j-1], clips[j] = clips[j], clips[j-1]
		}
	}
}

func delayMs(seconds float64) int {
	return int(math.Round(seconds * 1000))
}
