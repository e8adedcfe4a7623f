// Package strategy implements the AIMD (additive-increase,
// multiplicative-decrease) adaptive upload strategy of spec.md §6: a
// warmup phase that probes from minimum concurrency up to a
// heuristic-derived target, followed by steady-state up/downgrades
// driven by internal/metrics.Window.
package strategy

import (
	"github.com/rs/zerolog"

	"github.com/ctxmcp/ctxmcp/internal/metrics"
)

const (
	minConcurrency = 1
	maxConcurrency = 8
	minTimeoutMs   = 15000
	maxTimeoutMs   = 180000

	minSamples      = 20
	cooldownReqs    = 5
	downgradeSuccessThreshold = 0.70
	upgradeSuccessThreshold   = 0.95

	warmupRequests       = 5
	warmupSuccessThreshold = 0.90
	maxWarmupRequests    = 10

	ewmaAlpha  = 0.2
)

// Adjustment is the outcome of RecordOutcome: whether the strategy
// changed anything this call.
type Adjustment int

const (
	NoChange Adjustment = iota
	Upgrade
	Downgrade
)

func (a Adjustment) String() string {
	switch a {
	case Upgrade:
		return "upgrade"
	case Downgrade:
		return "downgrade"
	default:
		return "no_change"
	}
}

type warmupState int

const (
	warmupActive warmupState = iota
	warmupCompleted
)

// Overrides pins individual axes to operator-supplied values, disabling
// adaptation for that axis specifically.
type Overrides struct {
	Concurrency *int
	TimeoutMs   *int
}

// Adaptive tracks the live concurrency/timeout for one upload session.
type Adaptive struct {
	concurrency int
	timeoutMs   int

	targetConcurrency int
	targetTimeoutMs   int
	batchSize         int

	metrics *metrics.Window

	adaptiveEnabled bool
	overrides       Overrides

	warmup        warmupState
	warmupCount   int

	log zerolog.Logger
}

// New builds an Adaptive strategy for a project with chunkCount chunks.
// When adaptiveEnabled and no concurrency override is given, it starts
// warmup at minConcurrency; otherwise it starts directly at the target.
func New(chunkCount int, overrides Overrides, adaptiveEnabled bool, log zerolog.Logger) *Adaptive {
	h := HeuristicFor(chunkCount)

	targetConcurrency := h.Concurrency
	if overrides.Concurrency != nil {
		targetConcurrency = *overrides.Concurrency
	}
	if targetConcurrency < minConcurrency {
		targetConcurrency = minConcurrency
	}

	targetTimeoutMs := h.TimeoutMs
	if overrides.TimeoutMs != nil {
		targetTimeoutMs = *overrides.TimeoutMs
	}

	warmupWillRun := adaptiveEnabled && overrides.Concurrency == nil

	initialConcurrency := targetConcurrency
	if warmupWillRun {
		initialConcurrency = minConcurrency
	}

	initialTimeoutMs := targetTimeoutMs

	w := warmupCompleted
	if warmupWillRun {
		w = warmupActive
	}

	a := &Adaptive{
		concurrency:       initialConcurrency,
		timeoutMs:         initialTimeoutMs,
		targetConcurrency: targetConcurrency,
		targetTimeoutMs:   targetTimeoutMs,
		batchSize:         h.BatchSize,
		metrics:           metrics.NewWindow(targetTimeoutMs, ewmaAlpha),
		adaptiveEnabled:   adaptiveEnabled,
		overrides:         overrides,
		warmup:            w,
		log:               log,
	}

	a.log.Info().
		Int("concurrency", a.concurrency).
		Int("timeout_ms", a.timeoutMs).
		Bool("adaptive", adaptiveEnabled).
		Bool("warmup", warmupWillRun).
		Msg("upload strategy initialized")

	return a
}

// Concurrency returns the current live concurrency.
func (a *Adaptive) Concurrency() int { return a.concurrency }

// TimeoutMs returns the current live timeout.
func (a *Adaptive) TimeoutMs() int { return a.timeoutMs }

// BatchSize returns the fixed (non-adaptive) batch size.
func (a *Adaptive) BatchSize() int { return a.batchSize }

// Window exposes the underlying metrics window for read-only reporting
// (e.g. telemetry export).
func (a *Adaptive) Window() *metrics.Window { return a.metrics }

// RecordOutcome feeds one request result into the metrics window and
// potentially adjusts concurrency/timeout, returning what changed.
func (a *Adaptive) RecordOutcome(success bool, latencyMs int64, errKind metrics.ErrorKind) Adjustment {
	a.metrics.Record(metrics.Outcome{Success: success, LatencyMs: latencyMs, ErrorKind: errKind})

	if a.warmup == warmupActive {
		a.warmupCount++
		return a.checkWarmupExit()
	}

	if !a.adaptiveEnabled {
		return NoChange
	}

	if a.overrides.Concurrency != nil && a.overrides.TimeoutMs != nil {
		return NoChange
	}

	return a.evaluateAdjustment()
}

func (a *Adaptive) checkWarmupExit() Adjustment {
	if a.warmupCount < warmupRequests {
		return NoChange
	}

	if a.warmupCount >= maxWarmupRequests {
		a.log.Info().
			Int("requests", a.warmupCount).
			Float64("success_rate", a.metrics.SuccessRate()).
			Msg("warmup forced exit")
		a.warmup = warmupCompleted
		return NoChange
	}

	if a.metrics.SampleCount() == 0 {
		return NoChange
	}

	successRate := a.metrics.SuccessRate()

	if successRate >= warmupSuccessThreshold && a.metrics.LatencyHealth() != metrics.High {
		a.log.Info().
			Int("target_concurrency", a.targetConcurrency).
			Float64("success_rate", successRate).
			Msg("warmup success, jumping to target concurrency")
		a.warmup = warmupCompleted
		if a.overrides.Concurrency == nil {
			a.concurrency = a.targetConcurrency
		}
		a.metrics.ResetAdjustCounter()
		return Upgrade
	}

	if successRate < downgradeSuccessThreshold {
		a.log.Info().
			Float64("success_rate", successRate).
			Msg("warmup failed, keeping minimum concurrency")
		a.warmup = warmupCompleted
		return NoChange
	}

	return NoChange
}

func (a *Adaptive) evaluateAdjustment() Adjustment {
	if !a.metrics.HasMinimumSamples(minSamples) {
		return NoChange
	}
	if a.metrics.RequestsSinceAdjust() < cooldownReqs {
		return NoChange
	}

	successRate := a.metrics.SuccessRate()
	latencyHealth := a.metrics.LatencyHealth()
	hasRateLimit := a.metrics.HasRateLimit()

	var adj Adjustment
	switch {
	case successRate < downgradeSuccessThreshold || hasRateLimit || latencyHealth == metrics.High:
		adj = a.applyDowngrade(successRate, hasRateLimit, latencyHealth)
	case successRate > upgradeSuccessThreshold && latencyHealth == metrics.Healthy:
		adj = a.applyUpgrade(successRate)
	default:
		adj = NoChange
	}

	if adj != NoChange {
		a.metrics.ResetAdjustCounter()
	}
	return adj
}

func (a *Adaptive) applyDowngrade(successRate float64, hasRateLimit bool, latencyHealth metrics.LatencyHealth) Adjustment {
	oldConcurrency, oldTimeout := a.concurrency, a.timeoutMs

	if a.overrides.Concurrency == nil {
		a.concurrency = a.concurrency / 2
		if a.concurrency < minConcurrency {
			a.concurrency = minConcurrency
		}
	}
	if a.overrides.TimeoutMs == nil {
		a.timeoutMs = int(float64(a.timeoutMs) * 1.5)
		if a.timeoutMs > maxTimeoutMs {
			a.timeoutMs = maxTimeoutMs
		}
	}

	reason := "low_success_rate"
	if hasRateLimit {
		reason = "rate_limited"
	} else if latencyHealth == metrics.High {
		reason = "high_latency"
	}

	a.log.Info().
		Str("reason", reason).
		Int("old_concurrency", oldConcurrency).Int("concurrency", a.concurrency).
		Int("old_timeout_ms", oldTimeout).Int("timeout_ms", a.timeoutMs).
		Float64("success_rate", successRate).
		Msg("strategy downgrade")

	return Downgrade
}

func (a *Adaptive) applyUpgrade(successRate float64) Adjustment {
	oldConcurrency, oldTimeout := a.concurrency, a.timeoutMs

	atMaxConcurrency := a.concurrency >= maxConcurrency || a.concurrency >= a.targetConcurrency
	atMinTimeout := a.timeoutMs <= minTimeoutMs || a.timeoutMs <= a.targetTimeoutMs

	if atMaxConcurrency && atMinTimeout {
		return NoChange
	}

	if a.overrides.Concurrency == nil && !atMaxConcurrency {
		a.concurrency++
		if a.concurrency > maxConcurrency {
			a.concurrency = maxConcurrency
		}
	}
	if a.overrides.TimeoutMs == nil && !atMinTimeout {
		a.timeoutMs = int(float64(a.timeoutMs) * 0.8)
		if a.timeoutMs < minTimeoutMs {
			a.timeoutMs = minTimeoutMs
		}
	}

	if a.concurrency == oldConcurrency && a.timeoutMs == oldTimeout {
		return NoChange
	}

	a.log.Info().
		Int("old_concurrency", oldConcurrency).Int("concurrency", a.concurrency).
		Int("old_timeout_ms", oldTimeout).Int("timeout_ms", a.timeoutMs).
		Float64("success_rate", successRate).
		Msg("strategy upgrade")

	return Upgrade
}
