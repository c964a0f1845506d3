package loader

import (
	"sync"
	"time"

	"fedhost/internal/data"
	"fedhost/internal/ui"
)

type State int

const (
	Pending State = iota
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadState tracks the resolution of one component reference. It moves from
// Pending to Resolved or Failed exactly once and never back.
type LoadState struct {
	ref     data.ComponentRef
	started time.Time
	done    chan struct{}
	once    sync.Once

	comp ui.Component
	err  error
}

func newLoadState(ref data.ComponentRef, now time.Time) *LoadState {
	return &LoadState{ref: ref, started: now, done: make(chan struct{})}
}

func (s *LoadState) Ref() data.ComponentRef { return s.ref }

// Done is closed once the state is terminal.
func (s *LoadState) Done() <-chan struct{} { return s.done }

func (s *LoadState) State() State {
	select {
	case <-s.done:
		if s.err != nil {
			return Failed
		}
		return Resolved
	default:
		return Pending
	}
}

// Result returns the component or the load error. Before Done is closed it
// returns (nil, nil).
func (s *LoadState) Result() (ui.Component, error) {
	select {
	case <-s.done:
		return s.comp, s.err
	default:
		return nil, nil
	}
}

func (s *LoadState) settle(comp ui.Component, err error) bool {
	settled := false
	s.once.Do(func() {
		s.comp, s.err = comp, err
		close(s.done)
		settled = true
	})
	return settled
}
