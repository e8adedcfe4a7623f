// Package metrics implements the bounded-window, EWMA-smoothed request
// metrics of spec.md §4.5, excluding 5xx outcomes from every derived
// signal so a server-side fault never depresses client concurrency.
package metrics

// ErrorKind classifies a failed outcome for metrics purposes, distinct
// from but aligned with pkg/errtax.Kind.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorTimeout
	ErrorRateLimit
	ErrorServer
	ErrorClient
	ErrorNetwork
)

// Outcome is a single recorded request result.
type Outcome struct {
	Success   bool
	LatencyMs int64
	ErrorKind ErrorKind // ErrorNone when Success is true and there was no error classification
}

// HasErrorKind reports whether this outcome carries an explicit error
// classification (mirrors the Rust `error_type.is_some()` check, which a
// bool+enum pair needs an explicit flag to reproduce).
func (o Outcome) HasErrorKind() bool { return o.ErrorKind != ErrorNone }

// LatencyHealth classifies EWMA latency relative to baseline.
type LatencyHealth int

const (
	Healthy LatencyHealth = iota
	Normal
	High
)

func (h LatencyHealth) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Normal:
		return "normal"
	default:
		return "high"
	}
}

const windowCap = 20

// Window is the ring-buffer outcome window plus EWMA latency tracker
// described in spec.md §3 and §4.5.
type Window struct {
	alpha            float64
	ewmaLatencyMs    float64
	baselineLatencyMs float64
	initialized      bool

	outcomes       []Outcome // used as a simple FIFO slice; capped at windowCap
	rateLimitCount int
	requestsSinceAdjust int
}

// NewWindow seeds baseline_latency_ms = max(1, initialTimeoutMs * 0.3).
func NewWindow(initialTimeoutMs int, alpha float64) *Window {
	baseline := float64(initialTimeoutMs) * 0.3
	if baseline < 1 {
		baseline = 1
	}
	return &Window{
		alpha:             alpha,
		ewmaLatencyMs:     baseline,
		baselineLatencyMs: baseline,
		outcomes:          make([]Outcome, 0, windowCap),
	}
}

// Record applies one outcome. 5xx (ErrorServer) outcomes return
// immediately without touching EWMA, the window, or any counter — they
// must not depress client concurrency, since the fault is server-side.
func (w *Window) Record(o Outcome) {
	if o.ErrorKind == ErrorServer {
		return
	}

	if o.Success || o.HasErrorKind() {
		w.updateEWMA(o.LatencyMs)
	}

	if o.ErrorKind == ErrorRateLimit {
		w.rateLimitCount++
	}

	if len(w.outcomes) >= windowCap {
		removed := w.outcomes[0]
		w.outcomes = w.outcomes[1:]
		if removed.ErrorKind == ErrorRateLimit && w.rateLimitCount > 0 {
			w.rateLimitCount--
		}
	}
	w.outcomes = append(w.outcomes, o)
	w.requestsSinceAdjust++
}

func (w *Window) updateEWMA(latencyMs int64) {
	l := float64(latencyMs)
	if !w.initialized {
		w.ewmaLatencyMs = l
		w.initialized = true
		return
	}
	w.ewmaLatencyMs = w.alpha*l + (1-w.alpha)*w.ewmaLatencyMs
}

// EWMALatencyMs returns the current smoothed latency.
func (w *Window) EWMALatencyMs() float64 { return w.ewmaLatencyMs }

// BaselineLatencyMs returns the fixed baseline.
func (w *Window) BaselineLatencyMs() float64 { return w.baselineLatencyMs }

// SuccessRate returns successes/|window|, or 1.0 when the window is empty.
func (w *Window) SuccessRate() float64 {
	if len(w.outcomes) == 0 {
		return 1.0
	}
	successes := 0
	for _, o := range w.outcomes {
		if o.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(w.outcomes))
}

// HasRateLimit reports whether any rate-limit outcome is currently in
// the window.
func (w *Window) HasRateLimit() bool { return w.rateLimitCount > 0 }

// SampleCount returns the number of outcomes currently in the window.
func (w *Window) SampleCount() int { return len(w.outcomes) }

// HasMinimumSamples reports whether the window holds at least min
// outcomes.
func (w *Window) HasMinimumSamples(min int) bool { return len(w.outcomes) >= min }

// RequestsSinceAdjust returns the count since the last strategy
// adjustment.
func (w *Window) RequestsSinceAdjust() int { return w.requestsSinceAdjust }

// ResetAdjustCounter zeroes RequestsSinceAdjust, called after the
// strategy actually changes an axis.
func (w *Window) ResetAdjustCounter() { w.requestsSinceAdjust = 0 }

// LatencyHealth classifies the current EWMA relative to baseline: ≤0.8
// Healthy, ≤1.5 Normal, else High.
func (w *Window) LatencyHealth() LatencyHealth {
	ratio := w.ewmaLatencyMs / w.baselineLatencyMs
	switch {
	case ratio <= 0.8:
		return Healthy
	case ratio <= 1.5:
		return Normal
	default:
		return High
	}
}
