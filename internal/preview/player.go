package preview

import (
	"image"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/rdyjun/lclip/internal/config"
	"github.com/rdyjun/lclip/internal/scene"
)

// PlayState is the playback state machine: Paused and Playing, nothing else.
type PlayState string

const (
	Paused  PlayState = "paused"
	Playing PlayState = "playing"
)

// Player drives playback over the scene model. In Paused, time changes seek
// and repaint immediately. In Playing, Tick runs once per display refresh
// and derives editor time from the active surface's own playback position;
// wall-clock advancement is the fallback for subtitle-only spans and for
// the moment right after a source switch, when the surface position cannot
// be trusted yet.
type Player struct {
	model  *scene.Model
	cfg    config.Editor
	logger zerolog.Logger

	surfaces [2]MediaSurface
	active   int

	state    PlayState
	time     float64
	lastTick time.Time
	hasTick  bool
}

// NewPlayer creates a paused player over two playback surfaces.
func NewPlayer(model *scene.Model, primary, secondary MediaSurface, cfg config.Editor, logger zerolog.Logger) *Player {
	return &Player{
		model:    model,
		cfg:      cfg,
		logger:   logger,
		surfaces: [2]MediaSurface{primary, secondary},
		state:    Paused,
	}
}

func (p *Player) State() PlayState { return p.state }
func (p *Player) Time() float64    { return p.time }

// ActiveSurface is the surface currently on screen.
func (p *Player) ActiveSurface() MediaSurface { return p.surfaces[p.active] }

// SetTime seeks the playhead. While paused this repaints immediately via
// the time-changed notification.
func (p *Player) SetTime(t float64) {
	total := p.model.Project().Duration(p.cfg.FallbackDurationSeconds)
	if t < 0 {
		t = 0
	}
	if t > total {
		t = total
	}
	p.time = t
	if clip := p.activeVideoClip(t); clip != nil {
		p.syncSurface(clip, t)
	}
	p.model.NotifyTimeChanged()
}

// Play starts playback from the current time.
func (p *Player) Play() {
	if p.state == Playing {
		return
	}
	p.state = Playing
	p.hasTick = false
	if clip := p.activeVideoClip(p.time); clip != nil {
		p.syncSurface(clip, p.time)
	}
	p.surfaces[p.active].Play()
	p.model.NotifyPlayStateChanged()
}

// Pause halts playback, keeping the current time.
func (p *Player) Pause() {
	if p.state == Paused {
		return
	}
	p.state = Paused
	p.surfaces[p.active].Pause()
	p.model.NotifyPlayStateChanged()
}

// Tick advances one display refresh. now is the caller's frame timestamp.
func (p *Player) Tick(now time.Time) {
	if p.state != Playing {
		return
	}
	total := p.model.Project().Duration(p.cfg.FallbackDurationSeconds)
	prev := p.activeVideoClip(p.time)

	p.advance(now, prev)

	if p.time >= total {
		// End of timeline: stop and rewind.
		p.time = 0
		p.state = Paused
		p.surfaces[p.active].Pause()
		p.hasTick = false
		p.model.NotifyPlayStateChanged()
		p.model.NotifyTimeChanged()
		return
	}

	cur := p.activeVideoClip(p.time)
	if prev != nil && cur != prev {
		p.crossBoundary(prev, cur)
	}
	if cur != nil {
		p.preloadNext(cur)
	}
	p.model.NotifyTimeChanged()
}

// advance moves the playhead: media-derived when the active surface tracks
// the active clip within the drift threshold, wall-clock delta otherwise.
func (p *Player) advance(now time.Time, clip *scene.VideoClip) {
	defer func() {
		p.lastTick = now
		p.hasTick = true
	}()

	if clip != nil {
		surf := p.surfaces[p.active]
		if surf.Src() == clip.Src {
			if pos, ok := surf.Position(); ok {
				derived := clip.TimelineTimeAt(pos)
				if math.Abs(derived-p.time) <= p.cfg.DriftThresholdSeconds {
					p.time = derived
					return
				}
				p.logger.Debug().
					Float64("derived", derived).
					Float64("time", p.time).
					Msg("surface position drifted, using wall clock")
			}
		}
	}
	if p.hasTick {
		p.time += now.Sub(p.lastTick).Seconds()
	}
}

// crossBoundary handles the playhead leaving prev. If the next clip's
// source is already decoded on the idle surface, the surfaces swap roles
// and playback continues without a visible gap; otherwise the active
// surface seeks directly, which may stutter.
func (p *Player) crossBoundary(prev, next *scene.VideoClip) {
	if next == nil {
		p.surfaces[p.active].Pause()
		return
	}
	if next.Src == prev.Src {
		p.surfaces[p.active].SeekTo(next.SourceTimeAt(p.time))
		return
	}

	idle := p.surfaces[1-p.active]
	if idle.Src() == next.Src && idle.Ready() {
		p.surfaces[p.active].Pause()
		p.active = 1 - p.active
		p.surfaces[p.active].SeekTo(next.SourceTimeAt(p.time))
		p.surfaces[p.active].Play()
		return
	}

	// Preload did not finish in time: direct switch on the active surface.
	active := p.surfaces[p.active]
	active.Load(next.Src)
	active.SeekTo(next.SourceTimeAt(p.time))
	active.Play()
}

// preloadNext warms the idle surface with the next clip's source shortly
// before the boundary, so the swap finds a decoded frame waiting.
func (p *Player) preloadNext(cur *scene.VideoClip) {
	if cur.EndTime-p.time > p.cfg.PreloadLeadSeconds {
		return
	}
	next := p.followingVideoClip(cur)
	if next == nil || next.Src == cur.Src {
		return
	}
	idle := p.surfaces[1-p.active]
	if idle.Src() == next.Src {
		return
	}
	idle.Load(next.Src)
	idle.SeekTo(next.SrcStart)
}

// syncSurface points the active surface at the clip's source position for
// the given timeline time.
func (p *Player) syncSurface(clip *scene.VideoClip, t float64) {
	surf := p.surfaces[p.active]
	if surf.Src() != clip.Src {
		surf.Load(clip.Src)
	}
	surf.SeekTo(clip.SourceTimeAt(t))
}

// activeVideoClip scans layers in array order and returns the first video
// clip active at t. Array order, not z-order: the playback surface follows
// the flattened clip list.
func (p *Player) activeVideoClip(t float64) *scene.VideoClip {
	for _, l := range p.model.Project().Layers {
		if !l.Visible {
			continue
		}
		for _, c := range l.Clips {
			v, ok := c.(*scene.VideoClip)
			if !ok {
				continue
			}
			if scene.Active(c, t) {
				return v
			}
		}
	}
	return nil
}

// followingVideoClip returns the clip that starts next at or after cur's
// end, nil when cur is the last one.
func (p *Player) followingVideoClip(cur *scene.VideoClip) *scene.VideoClip {
	var next *scene.VideoClip
	for _, v := range p.model.Project().VideoClips() {
		if v.StartTime < cur.EndTime-1e-9 || v == cur {
			continue
		}
		if next == nil || v.StartTime < next.StartTime {
			next = v
		}
	}
	return next
}

// FrameAt implements FrameProvider: the active surface's frame when it is
// showing the clip's source, nil otherwise.
func (p *Player) FrameAt(clip *scene.VideoClip, _ float64) image.Image {
	for _, surf := range p.surfaces {
		if surf.Src() == clip.Src && surf.Ready() {
			return surf.Frame()
		}
	}
	return nil
}
