package preview

// Viewport maps output-canvas coordinates to screen pixels through a pan
// offset and a zoom factor. It is independent of the render resolution:
// zooming rescales the view, never the frame being rendered.
type Viewport struct {
	PanX  float64
	PanY  float64
	Scale float64
}

// NewViewport creates an identity viewport.
func NewViewport() *Viewport {
	return &Viewport{Scale: 1}
}

// Fit centers the canvas inside a view of the given size at the largest
// scale that shows the whole frame.
func (v *Viewport) Fit(canvasW, canvasH, viewW, viewH float64) {
	if canvasW <= 0 || canvasH <= 0 {
		return
	}
	sx := viewW / canvasW
	sy := viewH / canvasH
	v.Scale = sx
	if sy < sx {
		v.Scale = sy
	}
	v.PanX = (viewW - canvasW*v.Scale) / 2
	v.PanY = (viewH - canvasH*v.Scale) / 2
}

// ToScreen maps a canvas point to screen pixels.
func (v *Viewport) ToScreen(cx, cy float64) (sx, sy float64) {
	return cx*v.Scale + v.PanX, cy*v.Scale + v.PanY
}

// ToCanvas maps a screen point back to canvas coordinates.
func (v *Viewport) ToCanvas(sx, sy float64) (cx, cy float64) {
	return (sx - v.PanX) / v.Scale, (sy - v.PanY) / v.Scale
}

// Pan shifts the view by screen-pixel deltas.
func (v *Viewport) Pan(dx, dy float64) {
	v.PanX += dx
	v.PanY += dy
}

// ZoomAt multiplies the zoom by factor while keeping the canvas point under
// the screen position (sx, sy) stationary, the pointer-wheel behavior.
func (v *Viewport) ZoomAt(sx, sy, factor float64) {
	const minScale, maxScale = 0.05, 20.0
	newScale := v.Scale * factor
	if newScale < minScale {
		newScale = minScale
	}
	if newScale > maxScale {
		newScale = maxScale
	}

	cx, cy := v.ToCanvas(sx, sy)
	v.Scale = newScale
	v.PanX = sx - cx*v.Scale
	v.PanY = sy - cy*v.Scale
}

// ZoomCentered multiplies the zoom keeping the view center stationary.
func (v *Viewport) ZoomCentered(viewW, viewH, factor float64) {
	v.ZoomAt(viewW/2, viewH/2, factor)
}
