// Package preview paints editor frames and drives continuous playback. It
// renders the same spatial semantics the export pipeline compiles, through
// the shared geometry resolver.
package preview

import (
	"image"

	"github.com/rdyjun/lclip/internal/scene"
)

// MediaSurface is one decodable playback surface. The browser host backs it
// with a video element; tests use an in-memory fake. The player owns two of
// them and swaps their roles at clip boundaries.
type MediaSurface interface {
	// Load switches the surface to a new source. Until the first decoded
	// frame arrives, Ready reports false and Position is untrusted.
	Load(src string)

	// Src is the currently loaded source, empty when nothing is loaded.
	Src() string

	// SeekTo jumps to a source-time position in seconds.
	SeekTo(seconds float64)

	// Position is the surface's own advancing playback position in source
	// time. ok is false while the position cannot be trusted, e.g. right
	// after a source switch.
	Position() (seconds float64, ok bool)

	// Ready reports whether a decoded frame is available for display.
	Ready() bool

	Play()
	Pause()

	// Frame is the current decoded frame, nil when not ready.
	Frame() image.Image
}

// FrameProvider supplies the decoded frame for a clip at a playhead time.
// The player implements it on top of its surfaces; tests substitute solid
// colors.
type FrameProvider interface {
	FrameAt(clip *scene.VideoClip, t float64) image.Image
}
