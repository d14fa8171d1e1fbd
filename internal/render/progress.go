package render

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rdyjun/lclip/internal/config"
	"github.com/rdyjun/lclip/pkg/types"
)

// StatusStore persists export status for polling clients. Writes are
// last-write-wins; there is only one writer per export.
type StatusStore interface {
	WriteStatus(status types.ExportStatus) error
}

// Reporter maps the two export phases onto a single 0-100 progress scale:
// extraction covers 0-60, the composite pass 60-100. Progress goes to the
// sink on every call; persisted status writes are throttled to at most one
// per second, except terminal states which always flush.
type Reporter struct {
	sink   types.ProgressSink
	store  StatusStore
	logger zerolog.Logger

	now       func() time.Time
	lastWrite time.Time
}

// NewReporter creates a reporter. sink and store may each be nil.
func NewReporter(sink types.ProgressSink, store StatusStore, logger zerolog.Logger) *Reporter {
	if sink == nil {
		sink = types.NopSink{}
	}
	return &Reporter{
		sink:   sink,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Extraction reports clip done of total extracted.
func (r *Reporter) Extraction(done, total int, message string) {
	frac := 0.0
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	r.report(frac*config.ExtractProgressSpan, message)
}

// Composite reports progress through the composite pass as a 0-1 fraction.
func (r *Reporter) Composite(frac float64, message string) {
	span := config.CompositeProgressEnd - config.ExtractProgressSpan
	r.report(config.ExtractProgressSpan+frac*span, message)
}

// Done terminates the export successfully.
func (r *Reporter) Done(outputRef string) {
	r.sink.OnProgress(config.CompositeProgressEnd, "done")
	r.sink.OnDone(outputRef)
	r.write(types.ExportStatus{
		State:     types.ExportDone,
		Percent:   config.CompositeProgressEnd,
		Message:   "done",
		OutputRef: outputRef,
	})
}

// Fail terminates the export with an error message.
func (r *Reporter) Fail(message string) {
	r.sink.OnError(message)
	r.write(types.ExportStatus{
		State:   types.ExportFailed,
		Message: message,
		Error:   message,
	})
}

func (r *Reporter) report(percent float64, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > config.CompositeProgressEnd {
		percent = config.CompositeProgressEnd
	}
	r.sink.OnProgress(percent, message)
	r.write(types.ExportStatus{
		State:   types.ExportRunning,
		Percent: percent,
		Message: message,
	})
}

func (r *Reporter) write(status types.ExportStatus) {
	if r.store == nil {
		return
	}
	now := r.now()
	interval := time.Duration(config.ProgressWriteIntervalSec * float64(time.Second))
	if !status.State.Terminal() && now.Sub(r.lastWrite) < interval {
		return
	}
	r.lastWrite = now
	if err := r.store.WriteStatus(status); err != nil {
		// Status persistence is best-effort; the sink already has the event.
		r.logger.Warn().Err(err).Msg("failed to persist export status")
	}
}
