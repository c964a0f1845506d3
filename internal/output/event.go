package output

import (
	"fedhost/internal/compose"
)

// Event types emitted while a page is composed.
const (
	EventRenderStarted   = "render.started"
	EventRegionSuspended = "region.suspended"
	EventRegionResolved  = "region.resolved"
	EventRegionFailed    = "region.failed"
	EventRenderFinished  = "render.finished"
)

// Event is a lifecycle record for NDJSON streaming output.
//
// JSON mode aggregates the region.resolved and region.failed events only.
type Event struct {
	Type      string `json:"type"`
	View      string `json:"view,omitempty"`
	Region    string `json:"region,omitempty"`
	Ref       string `json:"ref,omitempty"`
	Status    string `json:"status,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
	Regions   int    `json:"regions,omitempty"`
	Failed    int    `json:"failed,omitempty"`
	ExitCode  int    `json:"exit_code,omitempty"`
}

func (e Event) settled() bool {
	return e.Type == EventRegionResolved || e.Type == EventRegionFailed
}

// StartedEvent opens the event stream for a mounted view.
func StartedEvent(v *compose.View, regions int) Event {
	return Event{Type: EventRenderStarted, View: v.ID(), Regions: regions}
}

// SuspendedEvent reports a region that is still loading after mount.
func SuspendedEvent(v *compose.View, reg compose.Region) Event {
	return Event{
		Type:   EventRegionSuspended,
		View:   v.ID(),
		Region: reg.ID,
		Ref:    reg.Ref.String(),
		Status: compose.StatusPending.String(),
	}
}

// RegionEvent converts a settled region into an event. Failures carry the
// presented message, so entry URLs are only included when verbose.
func RegionEvent(v *compose.View, reg compose.Region, u compose.Update, verbose bool) Event {
	e := Event{
		Type:      EventRegionResolved,
		View:      v.ID(),
		Region:    reg.ID,
		Ref:       reg.Ref.String(),
		Status:    u.Status.String(),
		ElapsedMS: u.Elapsed.Milliseconds(),
	}
	if u.Status == compose.StatusFailed {
		p := compose.PresentError(u.Err, verbose)
		e.Type = EventRegionFailed
		e.ErrorKind = string(p.Kind)
		e.Message = p.Message
	}
	return e
}

// FinishedEvent closes the stream.
func FinishedEvent(v *compose.View, regions, failed, exitCode int) Event {
	return Event{Type: EventRenderFinished, View: v.ID(), Regions: regions, Failed: failed, ExitCode: exitCode}
}
