package render

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/rdyjun/lclip/internal/config"
	"github.com/rdyjun/lclip/internal/media"
	"github.com/rdyjun/lclip/internal/plan"
)

// ServerExecutor realizes a plan with a local ffmpeg: clips are extracted
// one at a time into a temp directory, then a single composite pass reads
// them back. Extraction is strictly sequential to avoid concurrent reads
// against possibly slow source storage.
type ServerExecutor struct {
	fonts   media.FontResolver
	logger  zerolog.Logger
	verbose bool
}

// NewServerExecutor creates a server executor.
func NewServerExecutor(fonts media.FontResolver, logger zerolog.Logger, verbose bool) *ServerExecutor {
	return &ServerExecutor{fonts: fonts, logger: logger, verbose: verbose}
}

// Execute renders the plan to outputPath. The temp directory is removed on
// every exit path, success or failure.
func (e *ServerExecutor) Execute(ctx context.Context, p *plan.Plan, outputPath string, rep *Reporter) error {
	tmpDir, err := os.MkdirTemp("", config.TempDirPrefix)
	if err != nil {
		err = errors.Wrap(err, "failed to create temp directory")
		rep.Fail(err.Error())
		return err
	}
	defer os.RemoveAll(tmpDir)

	total := len(p.Clips)
	for i := range p.Clips {
		if err := ctx.Err(); err != nil {
			rep.Fail(err.Error())
			return err
		}
		stage := &p.Clips[i]
		e.logger.Debug().
			Str("src", stage.Src).
			Float64("srcStart", stage.SrcStart).
			Float64("srcEnd", stage.SrcEnd).
			Msg("extracting clip")
		if err := e.extractClip(stage, filepath.Join(tmpDir, stage.LocalName)); err != nil {
			rep.Fail(err.Error())
			return err
		}
		rep.Extraction(i+1, total, fmt.Sprintf("extracted clip %d of %d", i+1, total))
	}

	rep.Composite(0, "compositing")
	if err := e.composite(p, tmpDir, outputPath, rep); err != nil {
		rep.Fail(err.Error())
		return err
	}

	rep.Done(outputPath)
	return nil
}

// extractClip trims the stage's source window and applies its transform.
// The input-side seek lands on a keyframe before the window; the output-side
// seek then trims the remainder, which stays accurate even for sources
// whose timestamps reset after a fast seek.
func (e *ServerExecutor) extractClip(stage *plan.ClipStage, outPath string) error {
	coarse, fine := seekSplit(stage.SrcStart)

	out := ffmpeg.KwArgs{
		"ss":      trimFloat(fine),
		"t":       trimFloat(stage.Duration()),
		"vf":      stage.TransformFilter(),
		"threads": optimalThreadCount(),
	}
	for _, kv := range clipEncodeParams() {
		out[kv[0]] = kv[1]
	}
	if !stage.HasAudio {
		out["an"] = ""
	}

	stream := ffmpeg.Input(stage.Src, ffmpeg.KwArgs{"ss": trimFloat(coarse)}).
		Output(outPath, out).
		OverWriteOutput()
	if e.verbose {
		stream = stream.ErrorToStdOut()
	}
	if err := stream.Run(); err != nil {
		return errors.Wrapf(err, "failed to extract clip from %s", stage.Src)
	}
	return nil
}

func (e *ServerExecutor) composite(p *plan.Plan, tmpDir, outputPath string, rep *Reporter) error {
	ord := orderInputs(p)
	fonts := e.resolveFonts(p)
	in := compositeInputs(p, ord, fonts)

	streams := make([]*ffmpeg.Stream, 0, ord.Total)
	streams = append(streams, ffmpeg.Input(blackCanvasSpec(p), ffmpeg.KwArgs{"f": "lavfi"}))
	for i := range p.Clips {
		streams = append(streams, ffmpeg.Input(filepath.Join(tmpDir, p.Clips[i].LocalName)))
	}
	for i := range p.Composite.Audio.Inputs {
		if _, ok := ord.AudioSlots[i]; !ok {
			continue
		}
		streams = append(streams, ffmpeg.Input(p.Composite.Audio.Inputs[i].Src))
	}
	if ord.SilentSlot >= 0 {
		streams = append(streams, ffmpeg.Input(silentAudioSpec(), ffmpeg.KwArgs{
			"f": "lavfi",
			"t": trimFloat(p.Duration),
		}))
	}

	out := ffmpeg.KwArgs{
		"filter_complex": p.CompositeFilter(in),
		"map":            []string{"[vout]", "[aout]"},
		"t":              trimFloat(p.Duration),
		"threads":        optimalThreadCount(),
	}
	for _, kv := range encodeParams() {
		out[kv[0]] = kv[1]
	}

	stream := ffmpeg.Output(streams, outputPath, out).OverWriteOutput()
	if e.verbose {
		stream = stream.ErrorToStdOut()
	}
	if sock, closer, err := progressSocket(tmpDir, p.Duration, rep); err != nil {
		e.logger.Debug().Err(err).Msg("composite progress socket unavailable")
	} else {
		defer closer()
		stream = stream.GlobalArgs("-progress", "unix://"+sock)
	}
	if err := stream.Run(); err != nil {
		return errors.Wrap(err, "composite pass failed")
	}
	return nil
}

// progressSocket listens on a unix socket for ffmpeg's -progress key=value
// stream and forwards the elapsed output time to the reporter as a composite
// fraction. The returned closer stops the listener and waits for the reader
// goroutine, so no progress report can land after it returns.
func progressSocket(dir string, duration float64, rep *Reporter) (string, func(), error) {
	sock := filepath.Join(dir, "progress.sock")
	l, err := net.Listen("unix", sock)
	if err != nil {
		return "", nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			sec, ok := parseProgressTime(sc.Text())
			if !ok || duration <= 0 {
				continue
			}
			frac := sec / duration
			if frac > 1 {
				frac = 1
			}
			rep.Composite(frac, "compositing")
		}
	}()
	return sock, func() {
		l.Close()
		<-done
	}, nil
}

// parseProgressTime extracts the elapsed output time in seconds from one
// -progress line. Only out_time_us carries time; other keys are skipped.
func parseProgressTime(line string) (float64, bool) {
	v, ok := strings.CutPrefix(line, "out_time_us=")
	if !ok {
		return 0, false
	}
	us, err := strconv.ParseInt(v, 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return float64(us) / 1e6, true
}

// resolveFonts maps each subtitle to a system font path. A miss falls back
// to the toolchain default font rather than failing the export.
func (e *ServerExecutor) resolveFonts(p *plan.Plan) []string {
	fonts := make([]string, len(p.Composite.Subtitles))
	for i := range p.Composite.Subtitles {
		d := &p.Composite.Subtitles[i]
		path, err := e.fonts.Resolve(d.FontFamily, d.Bold)
		if err != nil {
			e.logger.Warn().
				Str("family", d.FontFamily).
				Err(err).
				Msg("font not found, using default")
			continue
		}
		fonts[i] = path
	}
	return fonts
}

// seekSplit divides a source offset into a coarse input-side seek and a
// fine output-side seek.
func seekSplit(srcStart float64) (coarse, fine float64) {
	coarse = srcStart - config.SeekLeadSeconds
	if coarse < 0 {
		coarse = 0
	}
	return coarse, srcStart - coarse
}

func optimalThreadCount() int {
	// 75% of cores, leaving headroom for the host.
	return int(math.Max(1, float64(runtime.NumCPU())*0.75))
}
