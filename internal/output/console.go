package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ConsoleSink prints events for humans ("text") or machines ("json", "ndjson").
type ConsoleSink struct {
	writer          io.Writer
	format          string // "text", "json", "ndjson"
	mu              sync.Mutex
	results         []Event
	allowedStatuses map[string]bool

	ok, warn, fail, bold *color.Color
}

// NewConsoleSink builds a console sink. filterStatuses limits region events
// to the given statuses (pending, resolved, failed); lifecycle events are
// always written.
func NewConsoleSink(w io.Writer, format string, filterStatuses ...string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer: w,
		format: format,
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed, color.Bold),
		bold:   color.New(color.Bold),
	}

	if len(filterStatuses) > 0 {
		s.allowedStatuses = make(map[string]bool)
		for _, st := range filterStatuses {
			s.allowedStatuses[strings.ToLower(st)] = true
		}
	}

	return s
}

// DisableColor strips ANSI sequences from text output.
func (s *ConsoleSink) DisableColor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range []*color.Color{s.ok, s.warn, s.fail, s.bold} {
		c.DisableColor()
	}
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	e, ok := v.(Event)
	if !ok {
		return nil
	}
	if len(s.allowedStatuses) > 0 && e.Status != "" && !s.allowedStatuses[e.Status] {
		return nil
	}

	switch s.format {
	case "json":
		if e.settled() {
			s.results = append(s.results, e)
		}
		return nil
	case "ndjson":
		if err := json.NewEncoder(s.writer).Encode(e); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "text":
		if err := s.printText(e); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) printText(e Event) error {
	var err error
	switch e.Type {
	case EventRenderStarted:
		_, err = s.bold.Fprintf(s.writer, "Composing %d region(s)\n", e.Regions)
	case EventRegionSuspended:
		_, err = fmt.Fprintf(s.writer, "%s %s: %s\n", s.warn.Sprint("[PENDING]"), e.Region, e.Ref)
	case EventRegionResolved:
		_, err = fmt.Fprintf(s.writer, "%s %s: %s (%dms)\n", s.ok.Sprint("[RESOLVED]"), e.Region, e.Ref, e.ElapsedMS)
	case EventRegionFailed:
		_, err = fmt.Fprintf(s.writer, "%s %s: %s - %s: %s\n", s.fail.Sprint("[FAILED]"), e.Region, e.Ref, e.ErrorKind, e.Message)
	case EventRenderFinished:
		summary := fmt.Sprintf("%d region(s), %d failed", e.Regions, e.Failed)
		if e.Failed > 0 {
			_, err = fmt.Fprintln(s.writer, s.fail.Sprint(summary))
		} else {
			_, err = fmt.Fprintln(s.writer, s.ok.Sprint(summary))
		}
	}
	return err
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		return writeAggregate(s.writer, s.results)
	}
	if s.format != "text" && s.format != "ndjson" {
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return nil
}

func writeAggregate(w io.Writer, results []Event) error {
	if results == nil {
		results = []Event{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return err
	}
	return flushIfPossible(w)
}
