// Package render realizes a compiled plan. The server executor runs a local
// ffmpeg pipeline over a temp directory; the client executor drives a
// WebAssembly toolchain over an in-memory filesystem. Both consume the exact
// filter strings built by the plan package; this package only assigns input
// slots and runs processes.
package render

import (
	"fmt"

	"github.com/rdyjun/lclip/internal/plan"
)

// inputOrder fixes the ffmpeg input slot assignment both executors share:
// slot 0 is the black base canvas, slots 1..N the clip stages in stage
// order, then one slot per standalone audio source, and finally the silent
// source when the mix is empty. Identical slot assignment is what makes the
// two realizations produce the same composite graph.
type inputOrder struct {
	// AudioSlots maps Composite.Audio.Inputs index to input slot, for
	// standalone sources only.
	AudioSlots map[int]int

	// SilentSlot is the anullsrc slot, -1 when the mix has inputs.
	SilentSlot int

	// Total is the number of input slots.
	Total int
}

func orderInputs(p *plan.Plan) inputOrder {
	ord := inputOrder{AudioSlots: map[int]int{}, SilentSlot: -1}
	next := 1 + len(p.Clips)
	for i, in := range p.Composite.Audio.Inputs {
		if in.ClipIndex >= 0 {
			continue
		}
		ord.AudioSlots[i] = next
		next++
	}
	if p.Composite.Audio.Silent() {
		ord.SilentSlot = next
		next++
	}
	ord.Total = next
	return ord
}

// compositeInputs builds the stream label mapping for CompositeFilter from
// the shared slot assignment. fonts holds one resolved font path per
// subtitle; empty entries fall back to the toolchain's default font.
func compositeInputs(p *plan.Plan, ord inputOrder, fonts []string) plan.CompositeInputs {
	in := plan.CompositeInputs{
		Base:      "0:v",
		ClipAudio: map[int]string{},
		AudioSrc:  map[int]string{},
		Fonts:     fonts,
	}
	for i := range p.Clips {
		in.ClipVideo = append(in.ClipVideo, fmt.Sprintf("%d:v", i+1))
		if p.Clips[i].HasAudio {
			in.ClipAudio[i] = fmt.Sprintf("%d:a", i+1)
		}
	}
	for i, slot := range ord.AudioSlots {
		in.AudioSrc[i] = fmt.Sprintf("%d:a", slot)
	}
	if ord.SilentSlot >= 0 {
		in.SilentAudio = fmt.Sprintf("%d:a", ord.SilentSlot)
	}
	return in
}

// blackCanvasSpec is the lavfi source both realizations use as input slot 0.
func blackCanvasSpec(p *plan.Plan) string {
	return fmt.Sprintf("color=black:s=%dx%d:r=%s:d=%s",
		p.Width, p.Height, trimFloat(p.FPS), trimFloat(p.Duration))
}

// silentAudioSpec is the lavfi source filling the mix when no clip or
// standalone audio is present.
func silentAudioSpec() string {
	return "anullsrc=channel_layout=stereo:sample_rate=44100"
}

// encodeParams is the shared mp4 output parameter list, in argv order.
// Both executors emit exactly these (the server additionally sets a thread
// count, which does not affect output content).
func encodeParams() [][2]string {
	return [][2]string{
		{"c:v", "libx264"},
		{"c:a", "aac"},
		{"pix_fmt", "yuv420p"},
		{"preset", "medium"},
		{"movflags", "+faststart"},
	}
}

// clipEncodeParams is the per-clip intermediate encoding, tuned for speed;
// intermediates are re-encoded by the composite pass anyway.
func clipEncodeParams() [][2]string {
	return [][2]string{
		{"c:v", "libx264"},
		{"c:a", "aac"},
		{"pix_fmt", "yuv420p"},
		{"preset", "fast"},
	}
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
