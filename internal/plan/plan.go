// Package plan compiles a finalized project into a backend-agnostic render
// plan: one transform stage per video clip followed by a single composite
// stage. The server-side ffmpeg pipeline and the in-browser toolchain both
// realize this plan; neither reimplements any stage semantics, which is what
// keeps the two outputs equivalent.
package plan

import (
	"fmt"
	"math"
	"strings"

	"github.com/rdyjun/lclip/internal/geometry"
	"github.com/rdyjun/lclip/internal/scene"
)

// Plan is the compiled render program for one project.
type Plan struct {
	Width    int
	Height   int
	FPS      float64
	Duration float64

	// Clips are the per-clip transform stages, sorted by start time. Stage
	// order is also the extraction order.
	Clips []ClipStage

	Composite CompositeStage
}

// ClipStage trims one source range and applies the clip's spatial
// transform, producing a clip-local intermediate whose PTS starts at zero
// and whose duration is SrcEnd-SrcStart.
type ClipStage struct {
	ClipID string
	Src    string

	SrcStart float64
	SrcEnd   float64

	StartTime float64
	EndTime   float64

	Geometry geometry.Resolved
	Opacity  float64

	// HasAudio is probed; a stage without audio is never wired into the
	// audio mix.
	HasAudio bool

	// LocalName is the intermediate file name inside the executor's work
	// area (temp dir or virtual filesystem).
	LocalName string
}

// Duration is the stage's output duration in seconds.
func (s *ClipStage) Duration() float64 { return s.SrcEnd - s.SrcStart }

// TransformFilter is the video filter chain for the stage: reset PTS, then
// crop/scale/pad per the resolved geometry.
func (s *ClipStage) TransformFilter() string {
	parts := []string{"setpts=PTS-STARTPTS"}
	g := s.Geometry

	switch {
	case g.AspectUnknown && g.CropToFill:
		// Cover without probed dimensions: scale to fill, center-crop to
		// exact target.
		parts = append(parts,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", g.ScaleWidth, g.ScaleHeight),
			fmt.Sprintf("crop=%d:%d", g.ScaleWidth, g.ScaleHeight))
	case g.AspectUnknown && g.Pad == nil && g.Crop == nil && !g.CropToFill:
		parts = append(parts, fmt.Sprintf("scale=%d:%d", g.ScaleWidth, g.ScaleHeight))
	case g.AspectUnknown:
		parts = append(parts,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", g.ScaleWidth, g.ScaleHeight),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", g.ScaleWidth, g.ScaleHeight))
	default:
		if g.Crop != nil {
			parts = append(parts, fmt.Sprintf("crop=%d:%d:%d:%d",
				g.Crop.Width, g.Crop.Height, g.Crop.X, g.Crop.Y))
		}
		parts = append(parts, fmt.Sprintf("scale=%d:%d", g.ScaleWidth, g.ScaleHeight))
		if g.Pad != nil {
			parts = append(parts, fmt.Sprintf("pad=%d:%d:%d:%d:black",
				g.Pad.Width, g.Pad.Height, g.Pad.X, g.Pad.Y))
		}
	}

	return strings.Join(parts, ",")
}

// CompositeStage overlays every transformed clip onto a black base canvas,
// draws subtitles, and mixes audio.
type CompositeStage struct {
	// Overlays in z order: lowest layer first, within a layer in array
	// order. ClipIndex points into Plan.Clips.
	Overlays []Overlay

	// Subtitles in flattened clip-list order (stacking order).
	Subtitles []SubtitleDraw

	Audio AudioMix
}

// Overlay places one transformed clip on the canvas during its enable
// window.
type Overlay struct {
	ClipIndex int
	X, Y      int
	Start     float64
	End       float64
	Opacity   float64
}

// SubtitleDraw is one drawtext operation, gated to its enable window.
type SubtitleDraw struct {
	Text string
	X, Y float64

	FontSize   float64
	FontFamily string
	Bold       bool

	Color             string
	BackgroundColor   string
	BackgroundPadding float64
	Align             scene.Align
	Shadow            *scene.Shadow

	Start float64
	End   float64
}

// Drawtext renders the stage as a drawtext filter. The font file path is
// executor-supplied: the server passes a system font path, the client a
// virtual-filesystem path. Everything else is fixed by the plan.
func (d *SubtitleDraw) Drawtext(fontFile string) string {
	var sb strings.Builder
	sb.WriteString("drawtext=text='")
	sb.WriteString(EscapeText(d.Text))
	sb.WriteString("'")

	if fontFile != "" {
		fmt.Fprintf(&sb, ":fontfile=%s", EscapePath(fontFile))
	}
	fmt.Fprintf(&sb, ":fontsize=%d", int(math.Round(d.FontSize)))
	fmt.Fprintf(&sb, ":fontcolor=%s", d.Color)

	switch d.Align {
	case scene.AlignLeft:
		fmt.Fprintf(&sb, ":x=%d", int(math.Round(d.X)))
	case scene.AlignRight:
		fmt.Fprintf(&sb, ":x=%d-text_w", int(math.Round(d.X)))
	default:
		fmt.Fprintf(&sb, ":x=%d-text_w/2", int(math.Round(d.X)))
	}
	fmt.Fprintf(&sb, ":y=%d", int(math.Round(d.Y)))

	if d.BackgroundColor != "" {
		fmt.Fprintf(&sb, ":box=1:boxcolor=%s", d.BackgroundColor)
		if d.BackgroundPadding > 0 {
			fmt.Fprintf(&sb, ":boxborderw=%d", int(math.Round(d.BackgroundPadding)))
		}
	}
	if d.Shadow != nil {
		color := d.Shadow.Color
		if color == "" {
			color = "black"
		}
		fmt.Fprintf(&sb, ":shadowcolor=%s:shadowx=%d:shadowy=%d",
			color, int(math.Round(d.Shadow.OffsetX)), int(math.Round(d.Shadow.OffsetY)))
	}

	fmt.Fprintf(&sb, ":enable='between(t,%s,%s)'", formatSeconds(d.Start), formatSeconds(d.End))
	return sb.String()
}

// AudioMix sums all active audio streams. With one input the stream passes
// through; with none the output is silence; with several they are combined
// with a normalized, non-clipping mix.
type AudioMix struct {
	Inputs []AudioInput
}

// Silent reports whether the composite must synthesize a silent track.
func (m *AudioMix) Silent() bool { return len(m.Inputs) == 0 }

// AudioInput is one stream entering the mix. ClipIndex >= 0 references a
// transformed clip's audio; otherwise Src names a standalone audio source.
type AudioInput struct {
	ClipIndex int
	Src       string

	// Volume scale; 1 passes through without a volume operation.
	Volume float64

	// DelayMs shifts the stream to its timeline position.
	DelayMs int

	// TrimSeconds bounds a standalone source to the clip's enable window;
	// 0 means no trim (clip audio is already exactly trimmed).
	TrimSeconds float64
}

// ops is the per-input audio filter chain, possibly empty.
func (a *AudioInput) ops() []string {
	var parts []string
	if a.TrimSeconds > 0 {
		parts = append(parts, fmt.Sprintf("atrim=duration=%s", formatSeconds(a.TrimSeconds)))
	}
	if a.Volume != 1 {
		parts = append(parts, fmt.Sprintf("volume=%s", formatSeconds(a.Volume)))
	}
	if a.DelayMs > 0 {
		parts = append(parts, fmt.Sprintf("adelay=%d:all=1", a.DelayMs))
	}
	return parts
}

// formatSeconds prints a float without trailing zero noise, so plans are
// stable across realizations.
func formatSeconds(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
