package engine

import "sync"

// Recorder collects the messages produced by event actions during one
// request or render.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

// Record is a no-op on a nil Recorder.
func (r *Recorder) Record(msg string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *Recorder) Messages() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
