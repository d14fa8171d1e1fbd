// Package media implements the narrow external collaborators the editor
// core consumes: source probing, range extraction fetches and font
// resolution. Concrete transports live here; the rest of the core only sees
// the interfaces.
package media

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// SourceInfo is the probe result for one media source.
type SourceInfo struct {
	Duration float64
	Width    int
	Height   int
	FPS      float64
	HasAudio bool
	Codec    string
}

// Prober reports stream metadata for a source. Geometry resolution and
// per-clip extraction both require a probe first.
type Prober interface {
	Probe(ctx context.Context, src string) (*SourceInfo, error)
}

// FFProber probes through ffprobe.
type FFProber struct {
	logger zerolog.Logger
}

// NewFFProber creates a prober backed by the local ffprobe binary.
func NewFFProber(logger zerolog.Logger) *FFProber {
	return &FFProber{logger: logger}
}

// Probe reads stream metadata. The caller's context deadline bounds the
// probe run.
func (p *FFProber) Probe(ctx context.Context, src string) (*SourceInfo, error) {
	var (
		out string
		err error
	)
	if deadline, ok := ctx.Deadline(); ok {
		out, err = ffmpeg.ProbeWithTimeout(src, time.Until(deadline), nil)
	} else {
		out, err = ffmpeg.Probe(src)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error probing %s", src)
	}

	info, err := parseProbe(out)
	if err != nil {
		return nil, errors.Wrapf(err, "unusable probe output for %s", src)
	}

	p.logger.Debug().
		Str("src", src).
		Float64("duration", info.Duration).
		Int("width", info.Width).
		Int("height", info.Height).
		Bool("has_audio", info.HasAudio).
		Msg("probed source")
	return info, nil
}

func parseProbe(probe string) (*SourceInfo, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return nil, errors.WithStack(err)
	}

	streams, ok := data["streams"].([]interface{})
	if !ok || len(streams) == 0 {
		return nil, errors.New("no streams found in source")
	}

	var videoStream map[string]interface{}
	hasAudio := false
	for _, stream := range streams {
		s, ok := stream.(map[string]interface{})
		if !ok {
			continue
		}
		switch s["codec_type"] {
		case "video":
			if videoStream == nil {
				videoStream = s
			}
		case "audio":
			hasAudio = true
		}
	}

	if videoStream == nil {
		return nil, errors.New("no video stream found")
	}

	info := &SourceInfo{HasAudio: hasAudio}

	// Stream duration first, then container duration, then frame count.
	if durationStr, ok := videoStream["duration"].(string); ok {
		if d, err := strconv.ParseFloat(strings.TrimSpace(durationStr), 64); err == nil {
			info.Duration = d
		}
	}
	if info.Duration == 0 {
		if format, ok := data["format"].(map[string]interface{}); ok {
			if durationStr, ok := format["duration"].(string); ok {
				if d, err := strconv.ParseFloat(strings.TrimSpace(durationStr), 64); err == nil {
					info.Duration = d
				}
			}
		}
	}

	if rate, ok := videoStream["r_frame_rate"].(string); ok {
		info.FPS = parseFrameRate(rate)
	}

	if info.Duration == 0 {
		if nbFrames, ok := videoStream["nb_frames"].(string); ok {
			if frames, err := strconv.ParseFloat(nbFrames, 64); err == nil && info.FPS > 0 {
				info.Duration = frames / info.FPS
			}
		}
	}
	if info.Duration == 0 {
		return nil, errors.New("could not determine source duration")
	}

	if w, ok := videoStream["width"].(float64); ok {
		info.Width = int(w)
	}
	if h, ok := videoStream["height"].(float64); ok {
		info.Height = int(h)
	}
	if codec, ok := videoStream["codec_name"].(string); ok {
		info.Codec = codec
	}

	return info, nil
}

// parseFrameRate evaluates an ffprobe rational like "30000/1001".
func parseFrameRate(rate string) float64 {
	nums := strings.Split(rate, "/")
	if len(nums) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(nums[0], 64)
	den, err2 := strconv.ParseFloat(nums[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
