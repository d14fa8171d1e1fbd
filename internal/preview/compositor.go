package preview

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"

	"github.com/rdyjun/lclip/internal/geometry"
	"github.com/rdyjun/lclip/internal/scene"
)

// FontLoader supplies raw font bytes for subtitle rendering.
type FontLoader interface {
	ReadFont(family string, bold bool) ([]byte, error)
}

// HitBounds is one drawn clip's canvas-space rectangle, recorded for
// hit-testing. Rectangles are recorded in draw order; the topmost clip is
// the last entry.
type HitBounds struct {
	LayerID string
	ClipID  string
	Kind    scene.ClipType

	X, Y          float64
	Width, Height float64
}

// Contains reports whether a canvas point falls inside the bounds.
func (b *HitBounds) Contains(x, y float64) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Compositor paints one frame: layers in ascending order, clips in array
// order within a layer, only clips active at the playhead. The spatial math
// comes from the shared geometry resolver, so the preview shows exactly
// what an export would produce.
type Compositor struct {
	fonts  FontLoader
	logger zerolog.Logger

	fontCache map[string]*truetype.Font
}

// NewCompositor creates a compositor. fonts may be nil; subtitles then
// render only their background boxes.
func NewCompositor(fonts FontLoader, logger zerolog.Logger) *Compositor {
	return &Compositor{
		fonts:     fonts,
		logger:    logger,
		fontCache: map[string]*truetype.Font{},
	}
}

// Render paints the frame for playhead time t and returns it with the hit
// rectangles of everything drawn.
func (c *Compositor) Render(proj *scene.Project, t float64, frames FrameProvider) (image.Image, []HitBounds) {
	var cur image.Image = imaging.New(proj.OutputWidth, proj.OutputHeight, color.NRGBA{0, 0, 0, 255})
	var hits []HitBounds

	for _, l := range proj.LayersByOrder() {
		if !l.Visible {
			continue
		}
		for _, clip := range l.Clips {
			if !scene.Active(clip, t) {
				continue
			}
			switch v := clip.(type) {
			case *scene.VideoClip:
				var b HitBounds
				cur, b = c.drawVideo(cur, proj, l, v, t, frames)
				hits = append(hits, b)
			case *scene.SubtitleClip:
				var b HitBounds
				cur, b = c.drawSubtitle(cur, l, v)
				hits = append(hits, b)
			}
		}
	}
	return cur, hits
}

func (c *Compositor) drawVideo(cur image.Image, proj *scene.Project, l *scene.Layer, v *scene.VideoClip, t float64, frames FrameProvider) (image.Image, HitBounds) {
	x, y, w, h := declaredBox(proj, v)
	b := HitBounds{
		LayerID: l.ID, ClipID: v.ID, Kind: scene.ClipTypeVideo,
		X: x, Y: y, Width: w, Height: h,
	}

	frame := frames.FrameAt(v, t)
	if frame == nil {
		// Source still decoding; the box is hit-testable regardless.
		return cur, b
	}

	fb := frame.Bounds()
	g := geometry.Resolve(geometry.Input{
		X: v.X, Y: v.Y, Width: v.Width, Height: v.Height,
		Fit:          v.Fit,
		SourceWidth:  fb.Dx(),
		SourceHeight: fb.Dy(),
		OutputWidth:  proj.OutputWidth,
		OutputHeight: proj.OutputHeight,
	})

	img := imaging.Clone(frame)
	if g.Crop != nil {
		img = imaging.Crop(img, image.Rect(g.Crop.X, g.Crop.Y, g.Crop.X+g.Crop.Width, g.Crop.Y+g.Crop.Height))
	}
	switch {
	case g.CropToFill:
		img = imaging.Fill(img, g.ScaleWidth, g.ScaleHeight, imaging.Center, imaging.Linear)
	default:
		img = imaging.Resize(img, g.ScaleWidth, g.ScaleHeight, imaging.Linear)
		if g.Pad != nil {
			padded := imaging.New(g.Pad.Width, g.Pad.Height, color.NRGBA{0, 0, 0, 255})
			img = imaging.Paste(padded, img, image.Pt(g.Pad.X, g.Pad.Y))
		}
	}

	return imaging.Overlay(cur, img, image.Pt(g.OverlayX, g.OverlayY), v.Opacity), b
}

func (c *Compositor) drawSubtitle(cur image.Image, l *scene.Layer, s *scene.SubtitleClip) (image.Image, HitBounds) {
	dc := gg.NewContextForImage(cur)

	fnt := c.loadFont(s.FontFamily, s.Bold)
	if fnt != nil {
		dc.SetFontFace(truetype.NewFace(fnt, &truetype.Options{
			Size:    s.FontSize,
			Hinting: font.HintingFull,
		}))
	}

	lines := strings.Split(s.Text, "\n")
	lineHeight := s.FontSize * 1.2
	maxWidth := 0.0
	for _, line := range lines {
		lw, _ := dc.MeasureString(line)
		if lw > maxWidth {
			maxWidth = lw
		}
	}
	totalHeight := lineHeight * float64(len(lines))

	var left float64
	switch s.Align {
	case scene.AlignLeft:
		left = s.X
	case scene.AlignRight:
		left = s.X - maxWidth
	default:
		left = s.X - maxWidth/2
	}

	pad := s.BackgroundPadding
	if s.BackgroundColor != "" {
		dc.SetColor(parseColor(s.BackgroundColor))
		dc.DrawRoundedRectangle(left-pad, s.Y-pad, maxWidth+2*pad, totalHeight+2*pad, s.BorderRadius)
		dc.Fill()
	}

	if fnt != nil {
		for i, line := range lines {
			lw, _ := dc.MeasureString(line)
			var lx float64
			switch s.Align {
			case scene.AlignLeft:
				lx = s.X
			case scene.AlignRight:
				lx = s.X - lw
			default:
				lx = s.X - lw/2
			}
			baseline := s.Y + s.FontSize + float64(i)*lineHeight

			if s.Shadow != nil {
				dc.SetColor(parseColor(shadowColor(s.Shadow)))
				dc.DrawString(line, lx+s.Shadow.OffsetX, baseline+s.Shadow.OffsetY)
			}
			dc.SetColor(parseColor(s.Color))
			dc.DrawString(line, lx, baseline)
		}
	}

	return dc.Image(), HitBounds{
		LayerID: l.ID, ClipID: s.ID, Kind: scene.ClipTypeSubtitle,
		X: left - pad, Y: s.Y - pad,
		Width: maxWidth + 2*pad, Height: totalHeight + 2*pad,
	}
}

func (c *Compositor) loadFont(family string, bold bool) *truetype.Font {
	if c.fonts == nil {
		return nil
	}
	key := family
	if bold {
		key += "|bold"
	}
	if f, ok := c.fontCache[key]; ok {
		return f
	}
	data, err := c.fonts.ReadFont(family, bold)
	if err != nil {
		c.logger.Warn().Str("family", family).Err(err).Msg("subtitle font unavailable")
		c.fontCache[key] = nil
		return nil
	}
	f, err := truetype.Parse(data)
	if err != nil {
		c.logger.Warn().Str("family", family).Err(err).Msg("subtitle font unparsable")
		f = nil
	}
	c.fontCache[key] = f
	return f
}

func shadowColor(sh *scene.Shadow) string {
	if sh.Color == "" {
		return "black"
	}
	return sh.Color
}

// declaredBox is the clip's box on the canvas, defaulting to the full
// canvas when no explicit size is set.
func declaredBox(proj *scene.Project, v *scene.VideoClip) (x, y, w, h float64) {
	x, y, w, h = v.X, v.Y, v.Width, v.Height
	if w <= 0 {
		w = float64(proj.OutputWidth)
	}
	if h <= 0 {
		h = float64(proj.OutputHeight)
	}
	return x, y, w, h
}

var namedColors = map[string]color.NRGBA{
	"black":  {0, 0, 0, 255},
	"white":  {255, 255, 255, 255},
	"red":    {255, 0, 0, 255},
	"green":  {0, 128, 0, 255},
	"blue":   {0, 0, 255, 255},
	"yellow": {255, 255, 0, 255},
	"gray":   {128, 128, 128, 255},
}

// parseColor understands #rgb, #rrggbb, #rrggbbaa, a small named set, and
// the name@opacity form used by filter graphs (e.g. "black@0.5"). Unknown
// input yields opaque white.
func parseColor(s string) color.NRGBA {
	s = strings.TrimSpace(strings.ToLower(s))
	alpha := 1.0
	if at := strings.IndexByte(s, '@'); at >= 0 {
		if v, err := strconv.ParseFloat(s[at+1:], 64); err == nil {
			alpha = v
		}
		s = s[:at]
	}

	col, ok := namedColors[s]
	if !ok && strings.HasPrefix(s, "#") {
		col, ok = parseHexColor(s[1:])
	}
	if !ok {
		col = color.NRGBA{255, 255, 255, 255}
	}
	if alpha < 1 {
		col.A = uint8(float64(col.A) * clamp01(alpha))
	}
	return col
}

func parseHexColor(hex string) (color.NRGBA, bool) {
	digit := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		}
		return 0, false
	}
	pair := func(i int) (uint8, bool) {
		hi, ok1 := digit(hex[i])
		lo, ok2 := digit(hex[i+1])
		return hi<<4 | lo, ok1 && ok2
	}

	switch len(hex) {
	case 3:
		r, ok1 := digit(hex[0])
		g, ok2 := digit(hex[1])
		b, ok3 := digit(hex[2])
		if !ok1 || !ok2 || !ok3 {
			return color.NRGBA{}, false
		}
		return color.NRGBA{r * 17, g * 17, b * 17, 255}, true
	case 6, 8:
		r, ok1 := pair(0)
		g, ok2 := pair(2)
		b, ok3 := pair(4)
		a := uint8(255)
		ok4 := true
		if len(hex) == 8 {
			a, ok4 = pair(6)
		}
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return color.NRGBA{}, false
		}
		return color.NRGBA{r, g, b, a}, true
	}
	return color.NRGBA{}, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
