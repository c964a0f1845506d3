package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RequestBudget paces outbound entry requests and honours server back-off
// (Retry-After on 429 and 503 responses).
type RequestBudget struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	cooldown time.Time
	now      func() time.Time
	notifyCh chan struct{}
}

// NewRequestBudget allows perSecond requests with the given burst.
// perSecond <= 0 disables pacing; back-off is still honoured.
func NewRequestBudget(perSecond float64, burst int) *RequestBudget {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RequestBudget{
		limiter:  rate.NewLimiter(limit, burst),
		now:      time.Now,
		notifyCh: make(chan struct{}),
	}
}

// CooldownUntil reports the time before which no request will be issued.
func (b *RequestBudget) CooldownUntil() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cooldown
}

// Acquire blocks until one request may be issued.
func (b *RequestBudget) Acquire(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("Acquire: nil context")
	}
	if b == nil {
		return fmt.Errorf("Acquire: nil RequestBudget")
	}
	if b.now == nil || b.limiter == nil || b.notifyCh == nil {
		return fmt.Errorf("Acquire: RequestBudget is not initialized (use NewRequestBudget)")
	}

	for {
		b.mu.Lock()
		now := b.now()
		if !now.Before(b.cooldown) {
			b.mu.Unlock()
			return b.limiter.Wait(ctx)
		}
		until := b.cooldown
		ch := b.notifyCh
		b.mu.Unlock()

		timer := time.NewTimer(until.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-ch:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (b *RequestBudget) signalLocked() {
	close(b.notifyCh)
	b.notifyCh = make(chan struct{})
}

// UpdateFromResponse extends the cooldown when the server asks clients to back off.
func (b *RequestBudget) UpdateFromResponse(resp *http.Response) {
	if resp == nil || b == nil || b.now == nil {
		return
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return
	}
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var until time.Time
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		if seconds <= 0 {
			return
		}
		until = now.Add(time.Duration(seconds) * time.Second)
	} else if at, err := http.ParseTime(retryAfter); err == nil {
		until = at
	} else {
		return
	}

	if until.After(b.cooldown) {
		b.cooldown = until
		b.signalLocked()
	}
}
