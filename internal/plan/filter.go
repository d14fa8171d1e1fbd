package plan

import (
	"fmt"
	"strings"
)

// CompositeInputs maps plan elements to the realization's concrete stream
// labels and font paths. The two executors differ only in these labels;
// the filter graph text built from them is identical in structure.
type CompositeInputs struct {
	// Base is the black canvas stream, e.g. "0:v".
	Base string

	// ClipVideo holds the video stream label per clip stage index.
	ClipVideo []string

	// ClipAudio holds the audio stream label per clip stage index, present
	// only for stages with HasAudio.
	ClipAudio map[int]string

	// AudioSrc holds the stream label per standalone audio input index.
	AudioSrc map[int]string

	// SilentAudio is the anullsrc stream label, required when the mix has
	// no inputs.
	SilentAudio string

	// Fonts holds the resolved font file path per subtitle index.
	Fonts []string
}

// CompositeFilter assembles the full composite filter graph: overlays in z
// order, then subtitle draws, terminating in [vout]; the audio mix
// terminates in [aout].
func (p *Plan) CompositeFilter(in CompositeInputs) string {
	var chains []string

	cur := in.Base
	for k, ov := range p.Composite.Overlays {
		src := in.ClipVideo[ov.ClipIndex]

		// Shift the clip-local stream (PTS starts at zero) to its timeline
		// position and apply opacity before overlaying.
		var pre []string
		if ov.Start > 0 {
			pre = append(pre, fmt.Sprintf("setpts=PTS+%s/TB", formatSeconds(ov.Start)))
		}
		if ov.Opacity < 1 {
			pre = append(pre,
				"format=yuva420p",
				fmt.Sprintf("colorchannelmixer=aa=%s", formatSeconds(ov.Opacity)))
		}
		if len(pre) > 0 {
			label := fmt.Sprintf("ov%d", k)
			chains = append(chains, fmt.Sprintf("[%s]%s[%s]", src, strings.Join(pre, ","), label))
			src = label
		}

		out := fmt.Sprintf("v%d", k)
		chains = append(chains, fmt.Sprintf(
			"[%s][%s]overlay=x=%d:y=%d:enable='between(t,%s,%s)'[%s]",
			cur, src, ov.X, ov.Y, formatSeconds(ov.Start), formatSeconds(ov.End), out))
		cur = out
	}

	for j := range p.Composite.Subtitles {
		d := &p.Composite.Subtitles[j]
		fontFile := ""
		if j < len(in.Fonts) {
			fontFile = in.Fonts[j]
		}
		out := fmt.Sprintf("s%d", j)
		chains = append(chains, fmt.Sprintf("[%s]%s[%s]", cur, d.Drawtext(fontFile), out))
		cur = out
	}

	chains = append(chains, fmt.Sprintf("[%s]format=yuv420p[vout]", cur))
	chains = append(chains, p.audioChains(in)...)
	return strings.Join(chains, ";")
}

func (p *Plan) audioChains(in CompositeInputs) []string {
	mix := &p.Composite.Audio
	if mix.Silent() {
		return []string{fmt.Sprintf("[%s]anull[aout]", in.SilentAudio)}
	}

	var chains []string
	labels := make([]string, len(mix.Inputs))
	for i := range mix.Inputs {
		ai := &mix.Inputs[i]
		src := in.AudioSrc[i]
		if ai.ClipIndex >= 0 {
			src = in.ClipAudio[ai.ClipIndex]
		}

		ops := ai.ops()
		if len(ops) == 0 {
			labels[i] = src
			continue
		}
		label := fmt.Sprintf("a%d", i)
		chains = append(chains, fmt.Sprintf("[%s]%s[%s]", src, strings.Join(ops, ","), label))
		labels[i] = label
	}

	if len(mix.Inputs) == 1 {
		chains = append(chains, fmt.Sprintf("[%s]anull[aout]", labels[0]))
		return chains
	}

	var sb strings.Builder
	for _, l := range labels {
		fmt.Fprintf(&sb, "[%s]", l)
	}
	fmt.Fprintf(&sb, "amix=inputs=%d:duration=longest:normalize=1[aout]", len(mix.Inputs))
	chains = append(chains, sb.String())
	return chains
}
