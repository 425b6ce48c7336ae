package refresh

import (
	"sync"
	"time"
)

// Options are the injected thresholds governing one data stream. They come
// from config.Settings; nothing here is hard-coded.
type Options struct {
	// Staleness is the maximum age of cached data before a foreground
	// request should force a refresh.
	Staleness time.Duration

	// FailureThreshold is how many consecutive failures must accumulate
	// inside FailureWindow before an error may become visible.
	FailureThreshold int

	// FailureWindow bounds a failure streak. A failure arriving after the
	// window has elapsed starts a new streak rather than extending the old
	// one.
	FailureWindow time.Duration

	// Debounce is the delay between crossing the failure threshold and the
	// error actually becoming visible. A success inside this delay cancels
	// the pending error permanently for that streak.
	Debounce time.Duration
}

// Policy decides when cached data is stale and whether refresh failures
// should be surfaced to users.
//
// The surfacing contract: no single isolated failure is ever visible. Only
// a streak of FailureThreshold consecutive failures inside FailureWindow
// schedules a visible error, and only after Debounce has elapsed with no
// intervening success. Transport, decode, and empty-result failures are
// treated identically.
//
// Every refresh attempt is tagged with a monotonic sequence number; the
// completion of a superseded attempt is discarded, so a slow early response
// can never clobber fresher data.
type Policy struct {
	mu    sync.Mutex
	opts  Options
	clock Clock

	lastSuccess time.Time
	failures    int
	streakStart time.Time
	inFlight    bool

	seq       uint64 // last issued attempt
	completed uint64 // last attempt whose outcome was applied

	pending    Timer
	pendingErr string
	visibleErr string
}

// NewPolicy creates a Policy with the given thresholds and clock. Pass
// RealClock() outside of tests.
func NewPolicy(opts Options, clock Clock) *Policy {
	return &Policy{
		opts:  opts,
		clock: clock,
	}
}

// Stale reports whether cached data is old enough that a refresh should be
// triggered. Before the first success everything is stale.
func (p *Policy) Stale() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastSuccess.IsZero() {
		return true
	}
	return p.clock.Now().Sub(p.lastSuccess) >= p.opts.Staleness
}

// LastSuccess returns the timestamp of the last successful refresh.
func (p *Policy) LastSuccess() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSuccess
}

// InFlight reports whether an attempt is currently outstanding.
func (p *Policy) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Begin registers a new refresh attempt and returns its sequence token.
// The token must be passed back to Succeed or Fail.
func (p *Policy) Begin() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.inFlight = true
	return p.seq
}

// Succeed records a successful completion. It returns false if the attempt
// was superseded by a newer one, in which case the caller must discard the
// fetched data. On an accepted success the failure streak resets and any
// pending or visible error is cleared.
func (p *Policy) Succeed(token uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token <= p.completed {
		return false
	}
	p.completed = token
	if token == p.seq {
		p.inFlight = false
	}

	p.lastSuccess = p.clock.Now()
	p.failures = 0
	p.streakStart = time.Time{}
	p.cancelPendingLocked()
	p.visibleErr = ""
	return true
}

// Fail records a failed completion with the message that would be shown to
// users should the streak become visible. Failures of superseded attempts
// are ignored; the timestamp of the last success is never touched.
func (p *Policy) Fail(token uint64, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token <= p.completed {
		return
	}
	p.completed = token
	if token == p.seq {
		p.inFlight = false
	}

	now := p.clock.Now()
	if p.failures == 0 || now.Sub(p.streakStart) > p.opts.FailureWindow {
		p.failures = 1
		p.streakStart = now
	} else {
		p.failures++
	}

	if p.failures < p.opts.FailureThreshold {
		return
	}

	// Each qualifying failure restarts the debounce clock.
	p.cancelPendingLocked()
	p.pendingErr = message
	p.pending = p.clock.AfterFunc(p.opts.Debounce, p.surfacePending)
}

func (p *Policy) surfacePending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return
	}
	p.visibleErr = p.pendingErr
	p.pending = nil
	p.pendingErr = ""
}

func (p *Policy) cancelPendingLocked() {
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
		p.pendingErr = ""
	}
}

// VisibleError returns the user-visible error message, if any. An empty
// string means nothing should be shown.
func (p *Policy) VisibleError() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visibleErr, p.visibleErr != ""
}

// ConsecutiveFailures returns the current failure streak length.
func (p *Policy) ConsecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}
