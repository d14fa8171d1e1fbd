// Package geometry maps a clip's declared placement and fit mode to concrete
// crop, scale and overlay parameters. It is the single source of truth for
// spatial semantics: the preview compositor and the render plan compiler both
// call Resolve and must never reimplement this math.
package geometry

import "math"

// Fit is the spatial mapping policy between source media dimensions and a
// clip's declared display box.
type Fit string

const (
	// FitCover scales the source to fill the box and crops the overflow.
	FitCover Fit = "cover"
	// FitContain scales the source to fit inside the box and pads with black.
	FitContain Fit = "contain"
	// FitFill stretches the source to the box, ignoring aspect ratio.
	FitFill Fit = "fill"
)

// Input carries everything Resolve needs. Width/Height <= 0 mean "full
// output canvas". SourceWidth/SourceHeight are 0 when the source has not
// been probed.
type Input struct {
	X, Y          float64
	Width, Height float64
	Fit           Fit

	SourceWidth  int
	SourceHeight int

	OutputWidth  int
	OutputHeight int
}

// CropRegion is a source-space rectangle in pixels.
type CropRegion struct {
	X      int
	Y      int
	Width  int
	Height int
}

// PadSpec is a scaled-space padding box: the scaled image is placed at
// (X, Y) inside a Width x Height black canvas.
type PadSpec struct {
	Width  int
	Height int
	X      int
	Y      int
}

// Resolved is the concrete transform for one clip.
type Resolved struct {
	// Crop, when set, is applied to the source before scaling.
	Crop *CropRegion

	// ScaleWidth and ScaleHeight are the scale target. Both are even and >= 2.
	ScaleWidth  int
	ScaleHeight int

	// Pad, when set, is applied after scaling (contain mode).
	Pad *PadSpec

	// AspectUnknown marks that source dimensions were unavailable and the
	// transform must preserve the source aspect ratio by expression
	// (scale with force_original_aspect_ratio, then crop or pad).
	AspectUnknown bool

	// CropToFill marks the cover fallback: scale to cover the target, then
	// center-crop to exactly ScaleWidth x ScaleHeight.
	CropToFill bool

	// OverlayX and OverlayY are the on-canvas placement, clamped to >= 0.
	OverlayX int
	OverlayY int
}

// Resolve computes the transform for one clip. It is pure: identical inputs
// produce identical outputs.
func Resolve(in Input) Resolved {
	x, y := in.X, in.Y
	w, h := in.Width, in.Height
	if w <= 0 {
		w = float64(in.OutputWidth)
	}
	if h <= 0 {
		h = float64(in.OutputHeight)
	}

	// Visible sub-rectangle of the declared box on the output canvas.
	// Placement may be partially off-canvas; only the visible part is
	// transformed.
	visX := math.Max(0, x)
	visY := math.Max(0, y)
	visR := math.Min(x+w, float64(in.OutputWidth))
	visB := math.Min(y+h, float64(in.OutputHeight))
	visW := visR - visX
	visH := visB - visY
	if visW < 1 {
		visW = 1
	}
	if visH < 1 {
		visH = 1
	}

	res := Resolved{
		OverlayX: int(math.Round(visX)),
		OverlayY: int(math.Round(visY)),
	}

	haveDims := in.SourceWidth > 0 && in.SourceHeight > 0

	switch in.Fit {
	case FitContain:
		targetW, targetH := evenDimension(visW), evenDimension(visH)
		if !haveDims {
			res.ScaleWidth = targetW
			res.ScaleHeight = targetH
			res.AspectUnknown = true
			return res
		}
		if visW != w || visH != h {
			containVisible(in, &res, x, y, w, h, visX, visY, visW, visH)
			return res
		}

		srcAspect := float64(in.SourceWidth) / float64(in.SourceHeight)
		targetAspect := float64(targetW) / float64(targetH)

		var fitW, fitH int
		if srcAspect > targetAspect {
			fitW = targetW
			fitH = evenDimension(float64(targetW) / srcAspect)
		} else {
			fitH = targetH
			fitW = evenDimension(float64(targetH) * srcAspect)
		}

		res.ScaleWidth = fitW
		res.ScaleHeight = fitH
		if fitW != targetW || fitH != targetH {
			res.Pad = &PadSpec{
				Width:  targetW,
				Height: targetH,
				X:      (targetW - fitW) / 2,
				Y:      (targetH - fitH) / 2,
			}
		}
		return res

	case FitFill:
		res.ScaleWidth = evenDimension(visW)
		res.ScaleHeight = evenDimension(visH)
		if !haveDims {
			res.AspectUnknown = true
			return res
		}
		if visW != w || visH != h {
			res.Crop = fillCrop(in, x, y, w, h, visX, visY, visW, visH)
		}
		return res

	default: // FitCover
		res.ScaleWidth = evenDimension(visW)
		res.ScaleHeight = evenDimension(visH)
		if !haveDims {
			res.AspectUnknown = true
			res.CropToFill = true
			return res
		}
		res.Crop = coverCrop(in, x, y, w, h, visX, visY, visW, visH)
		return res
	}
}

// coverCrop reverse-maps the visible part of the declared box through the
// scale-to-fill-crop-centered transform, yielding the minimal source region
// that produces exactly the visible pixels once scaled. Pixels the viewer
// never sees are not decoded or scaled.
func coverCrop(in Input, x, y, w, h, visX, visY, visW, visH float64) *CropRegion {
	srcW := float64(in.SourceWidth)
	srcH := float64(in.SourceHeight)

	// Cover: scale factor that fills the declared box, centered crop.
	scale := math.Max(w/srcW, h/srcH)

	// Source-space region the full declared box maps to.
	boxSrcW := w / scale
	boxSrcH := h / scale
	boxSrcX := (srcW - boxSrcW) / 2
	boxSrcY := (srcH - boxSrcH) / 2

	// Offset of the visible sub-rectangle within the declared box, mapped
	// back to source space.
	cropX := boxSrcX + (visX-x)/scale
	cropY := boxSrcY + (visY-y)/scale
	cropW := visW / scale
	cropH := visH / scale

	return clampCrop(&CropRegion{
		X:      int(math.Round(cropX)),
		Y:      int(math.Round(cropY)),
		Width:  int(math.Round(cropW)),
		Height: int(math.Round(cropH)),
	}, in.SourceWidth, in.SourceHeight)
}

// fillCrop maps the visible part of a stretched box back to source space.
// The box-to-source mapping is linear per axis, so the visible window is a
// proportional source rectangle: an off-canvas fill clip is cut, never
// compressed into the remaining area.
func fillCrop(in Input, x, y, w, h, visX, visY, visW, visH float64) *CropRegion {
	srcW := float64(in.SourceWidth)
	srcH := float64(in.SourceHeight)
	return clampCrop(&CropRegion{
		X:      int(math.Round((visX - x) / w * srcW)),
		Y:      int(math.Round((visY - y) / h * srcH)),
		Width:  int(math.Round(visW / w * srcW)),
		Height: int(math.Round(visH / h * srcH)),
	}, in.SourceWidth, in.SourceHeight)
}

// containVisible fits the source into the full declared box, then cuts the
// visible window out of the fitted result. The window may intersect the
// fitted image, its padding, or both; the crop covers the image part and
// the pad spec re-creates the padding part.
func containVisible(in Input, res *Resolved, x, y, w, h, visX, visY, visW, visH float64) {
	srcW := float64(in.SourceWidth)
	srcH := float64(in.SourceHeight)

	scale := math.Min(w/srcW, h/srcH)
	fitW := srcW * scale
	fitH := srcH * scale
	offX := (w - fitW) / 2
	offY := (h - fitH) / 2

	// Visible window and fitted image intersection, in box space.
	bx := visX - x
	by := visY - y
	ix0 := math.Max(bx, offX)
	iy0 := math.Max(by, offY)
	ivw := math.Max(math.Min(bx+visW, offX+fitW)-ix0, 1)
	ivh := math.Max(math.Min(by+visH, offY+fitH)-iy0, 1)

	res.Crop = clampCrop(&CropRegion{
		X:      int(math.Round((ix0 - offX) / scale)),
		Y:      int(math.Round((iy0 - offY) / scale)),
		Width:  int(math.Round(ivw / scale)),
		Height: int(math.Round(ivh / scale)),
	}, in.SourceWidth, in.SourceHeight)
	res.ScaleWidth = evenDimension(ivw)
	res.ScaleHeight = evenDimension(ivh)

	padW := evenDimension(visW)
	padH := evenDimension(visH)
	if padW == res.ScaleWidth && padH == res.ScaleHeight {
		return
	}
	pad := &PadSpec{
		Width:  padW,
		Height: padH,
		X:      int(math.Round(ix0 - bx)),
		Y:      int(math.Round(iy0 - by)),
	}
	if pad.X+res.ScaleWidth > padW {
		pad.X = padW - res.ScaleWidth
	}
	if pad.Y+res.ScaleHeight > padH {
		pad.Y = padH - res.ScaleHeight
	}
	if pad.X < 0 {
		pad.X = 0
	}
	if pad.Y < 0 {
		pad.Y = 0
	}
	res.Pad = pad
}

// clampCrop keeps a rounded crop region inside the source frame.
func clampCrop(crop *CropRegion, srcW, srcH int) *CropRegion {
	if crop.X < 0 {
		crop.X = 0
	}
	if crop.Y < 0 {
		crop.Y = 0
	}
	if crop.Width < 1 {
		crop.Width = 1
	}
	if crop.Height < 1 {
		crop.Height = 1
	}
	if crop.X+crop.Width > srcW {
		crop.Width = srcW - crop.X
	}
	if crop.Y+crop.Height > srcH {
		crop.Height = srcH - crop.Y
	}
	return crop
}

// evenDimension rounds a dimension down to the nearest even integer, with a
// floor of 2. 4:2:0 chroma subsampling requires even frame dimensions.
func evenDimension(v float64) int {
	n := int(v)
	if n%2 != 0 {
		n--
	}
	if n < 2 {
		n = 2
	}
	return n
}
