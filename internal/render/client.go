package render

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/rdyjun/lclip/internal/media"
	"github.com/rdyjun/lclip/internal/plan"
)

// VFS is the in-memory filesystem the browser toolchain operates on.
type VFS struct {
	files map[string][]byte
}

// NewVFS creates an empty filesystem.
func NewVFS() *VFS {
	return &VFS{files: map[string][]byte{}}
}

// Write stores a file, replacing any previous content.
func (v *VFS) Write(name string, data []byte) {
	v.files[name] = data
}

// Read returns a file's content.
func (v *VFS) Read(name string) ([]byte, bool) {
	data, ok := v.files[name]
	return data, ok
}

// Remove drops a file, freeing its memory.
func (v *VFS) Remove(name string) {
	delete(v.files, name)
}

// Names lists stored files in sorted order.
func (v *VFS) Names() []string {
	names := make([]string, 0, len(v.files))
	for n := range v.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Size is the total number of bytes held.
func (v *VFS) Size() int {
	total := 0
	for _, data := range v.files {
		total += len(data)
	}
	return total
}

// Toolchain runs one transcoder invocation against the virtual filesystem.
// The production implementation wraps a WebAssembly ffmpeg build; tests
// substitute a fake.
type Toolchain interface {
	Run(ctx context.Context, args []string, fs *VFS) error
}

// OutputName is the composite result file inside the VFS.
const OutputName = "output.mp4"

// ClientExecutor realizes a plan in the browser: phase 1 fetches each clip
// pre-trimmed from the extraction endpoint and transforms it, discarding
// the raw download immediately to bound peak memory; phase 2 fetches fonts
// and background audio on demand and runs the composite pass. The result is
// the output file's bytes, ready to hand to the user as a download.
type ClientExecutor struct {
	fetcher media.Fetcher
	tool    Toolchain
	logger  zerolog.Logger
}

// NewClientExecutor creates a client executor.
func NewClientExecutor(fetcher media.Fetcher, tool Toolchain, logger zerolog.Logger) *ClientExecutor {
	return &ClientExecutor{fetcher: fetcher, tool: tool, logger: logger}
}

// Execute renders the plan and returns the output bytes.
func (e *ClientExecutor) Execute(ctx context.Context, p *plan.Plan, rep *Reporter) ([]byte, error) {
	fs := NewVFS()

	total := len(p.Clips)
	for i := range p.Clips {
		stage := &p.Clips[i]
		if err := e.transformClip(ctx, fs, stage, i); err != nil {
			rep.Fail(err.Error())
			return nil, err
		}
		rep.Extraction(i+1, total, fmt.Sprintf("prepared clip %d of %d", i+1, total))
	}

	e.logger.Debug().
		Int("files", len(fs.Names())).
		Int("bytes", fs.Size()).
		Msg("clip transforms complete")

	rep.Composite(0, "compositing")

	fonts := e.fetchFonts(ctx, fs, p)
	effective, audioNames := e.fetchAudio(ctx, fs, p)

	ord := orderInputs(effective)
	in := compositeInputs(effective, ord, fonts)

	args := []string{"-y", "-f", "lavfi", "-i", blackCanvasSpec(p)}
	for i := range p.Clips {
		args = append(args, "-i", p.Clips[i].LocalName)
	}
	for _, name := range audioNames {
		args = append(args, "-i", name)
	}
	if ord.SilentSlot >= 0 {
		args = append(args, "-f", "lavfi", "-t", trimFloat(p.Duration), "-i", silentAudioSpec())
	}
	args = append(args,
		"-filter_complex", effective.CompositeFilter(in),
		"-map", "[vout]", "-map", "[aout]",
		"-t", trimFloat(p.Duration))
	for _, kv := range encodeParams() {
		args = append(args, "-"+kv[0], kv[1])
	}
	args = append(args, OutputName)

	if err := e.tool.Run(ctx, args, fs); err != nil {
		err = errors.Wrap(err, "composite pass failed")
		rep.Fail(err.Error())
		return nil, err
	}

	data, ok := fs.Read(OutputName)
	if !ok {
		err := errors.New("toolchain produced no output file")
		rep.Fail(err.Error())
		return nil, err
	}

	rep.Done(OutputName)
	return data, nil
}

// transformClip fetches one pre-trimmed clip and applies its transform. A
// clip fetch failure is fatal: required video cannot degrade.
func (e *ClientExecutor) transformClip(ctx context.Context, fs *VFS, stage *plan.ClipStage, i int) error {
	fetched, err := e.fetcher.FetchClip(ctx, stage.Src, stage.SrcStart, stage.SrcEnd)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch clip from %s", stage.Src)
	}
	if fetched.HasAudio != stage.HasAudio {
		e.logger.Warn().
			Str("src", stage.Src).
			Bool("probed", stage.HasAudio).
			Bool("fetched", fetched.HasAudio).
			Msg("audio presence mismatch between probe and extraction")
	}

	rawName := fmt.Sprintf("raw_%03d.mp4", i)
	fs.Write(rawName, fetched.Data)
	// The raw download is dropped whether the transform worked or not.
	defer fs.Remove(rawName)

	args := []string{"-y", "-i", rawName, "-vf", stage.TransformFilter()}
	for _, kv := range clipEncodeParams() {
		args = append(args, "-"+kv[0], kv[1])
	}
	if !stage.HasAudio {
		args = append(args, "-an")
	}
	args = append(args, stage.LocalName)

	if err := e.tool.Run(ctx, args, fs); err != nil {
		return errors.Wrapf(err, "failed to transform clip %s", stage.ClipID)
	}
	return nil
}

// fetchFonts pulls one font file per subtitle into the VFS. A failed fetch
// leaves the entry empty and the toolchain's built-in font takes over.
func (e *ClientExecutor) fetchFonts(ctx context.Context, fs *VFS, p *plan.Plan) []string {
	fonts := make([]string, len(p.Composite.Subtitles))
	for j := range p.Composite.Subtitles {
		d := &p.Composite.Subtitles[j]
		data, err := e.fetcher.FetchFont(ctx, d.FontFamily, d.Bold)
		if err != nil {
			e.logger.Warn().
				Str("family", d.FontFamily).
				Err(err).
				Msg("font fetch failed, using built-in default")
			continue
		}
		name := fmt.Sprintf("font_%02d.ttf", j)
		fs.Write(name, data)
		fonts[j] = name
	}
	return fonts
}

// fetchAudio pulls standalone audio sources into the VFS. A failed fetch
// drops that track from the mix instead of aborting the export; the
// returned plan reflects the tracks that actually arrived.
func (e *ClientExecutor) fetchAudio(ctx context.Context, fs *VFS, p *plan.Plan) (*plan.Plan, []string) {
	var names []string
	kept := make([]plan.AudioInput, 0, len(p.Composite.Audio.Inputs))
	for i := range p.Composite.Audio.Inputs {
		a := p.Composite.Audio.Inputs[i]
		if a.ClipIndex >= 0 {
			kept = append(kept, a)
			continue
		}
		data, err := e.fetcher.FetchAudio(ctx, a.Src)
		if err != nil {
			e.logger.Warn().
				Str("src", a.Src).
				Err(err).
				Msg("audio fetch failed, skipping track")
			continue
		}
		name := fmt.Sprintf("audio_%02d", len(names))
		fs.Write(name, data)
		names = append(names, name)
		kept = append(kept, a)
	}

	if len(kept) == len(p.Composite.Audio.Inputs) {
		return p, names
	}
	effective := *p
	effective.Composite.Audio = plan.AudioMix{Inputs: kept}
	return &effective, names
}
