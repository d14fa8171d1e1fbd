// Package types holds the export status surface shared between the render
// executors and host applications.
package types

// ExportState is the lifecycle state of one export task.
type ExportState string

const (
	ExportPending ExportState = "pending"
	ExportRunning ExportState = "running"
	ExportDone    ExportState = "done"
	ExportFailed  ExportState = "failed"
)

// Terminal reports whether the state can no longer change.
func (s ExportState) Terminal() bool {
	return s == ExportDone || s == ExportFailed
}

// ExportStatus is a point-in-time snapshot of an export task, suitable for
// persisting and for polling.
type ExportStatus struct {
	State   ExportState `json:"state"`
	Percent float64     `json:"percent"`
	Message string      `json:"message"`

	// OutputRef names the finished output (a file path or blob handle).
	// Set only when State is ExportDone.
	OutputRef string `json:"outputRef,omitempty"`

	// Error is the failure message. Set only when State is ExportFailed.
	Error string `json:"error,omitempty"`
}

// ProgressSink receives export progress. OnProgress may be called many
// times; exactly one of OnDone or OnError terminates the stream.
type ProgressSink interface {
	OnProgress(percent float64, message string)
	OnDone(outputRef string)
	OnError(message string)
}

// NopSink discards all progress events.
type NopSink struct{}

func (NopSink) OnProgress(float64, string) {}
func (NopSink) OnDone(string)              {}
func (NopSink) OnError(string)             {}
