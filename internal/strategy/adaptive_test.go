package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctxmcp/ctxmcp/internal/logging"
	"github.com/ctxmcp/ctxmcp/internal/metrics"
)

func newTestAdaptive(chunkCount int, overrides Overrides, adaptiveEnabled bool) *Adaptive {
	return New(chunkCount, overrides, adaptiveEnabled, logging.NewDefault("error"))
}

func TestNew_AdaptiveEnabledStartsAtMinConcurrency(t *testing.T) {
	a := newTestAdaptive(100, Overrides{}, true)
	require.Equal(t, minConcurrency, a.Concurrency())
}

func TestNew_AdaptiveDisabledStartsAtHeuristicTarget(t *testing.T) {
	a := newTestAdaptive(100, Overrides{}, false)
	h := HeuristicFor(100)
	require.Equal(t, h.Concurrency, a.Concurrency())
}

func TestNew_ConcurrencyOverrideSkipsWarmup(t *testing.T) {
	c := 5
	a := newTestAdaptive(100, Overrides{Concurrency: &c}, true)
	require.Equal(t, 5, a.Concurrency())
}

func TestNew_TimeoutOverride(t *testing.T) {
	ms := 120000
	a := newTestAdaptive(100, Overrides{TimeoutMs: &ms}, true)
	require.Equal(t, 120000, a.TimeoutMs())
}

func TestWarmup_SuccessJumpsToTarget(t *testing.T) {
	a := newTestAdaptive(100, Overrides{}, true)
	require.Equal(t, minConcurrency, a.Concurrency())

	var last Adjustment
	for i := 0; i < warmupRequests; i++ {
		last = a.RecordOutcome(true, 1000, metrics.ErrorNone)
	}

	require.Equal(t, Upgrade, last)
	h := HeuristicFor(100)
	require.Equal(t, h.Concurrency, a.Concurrency())
}

func TestWarmup_FailureKeepsMinConcurrency(t *testing.T) {
	a := newTestAdaptive(100, Overrides{}, true)

	for i := 0; i < warmupRequests; i++ {
		a.RecordOutcome(false, 1000, metrics.ErrorClient)
	}

	require.Equal(t, minConcurrency, a.Concurrency())
}

func TestWarmup_ForcedExitAtMaxRequests(t *testing.T) {
	a := newTestAdaptive(100, Overrides{}, true)

	// success rate sitting in the ambiguous band (between downgrade and
	// warmup thresholds) never resolves warmup on its own; it must be
	// forced out at maxWarmupRequests.
	for i := 0; i < maxWarmupRequests; i++ {
		success := i != 0 // 80%-89% success over counts 5-9, above downgrade(0.70) but below warmup(0.90)
		a.RecordOutcome(success, 1000, metrics.ErrorTimeout)
	}

	require.Equal(t, warmupCompleted, a.warmup)
}

func TestSteadyState_DowngradeOnLowSuccessRate(t *testing.T) {
	a := newTestAdaptive(3000, Overrides{}, false) // skip warmup entirely (adaptive disabled)
	a.adaptiveEnabled = true                       // force steady-state evaluation without warmup
	startConcurrency := a.Concurrency()

	for i := 0; i < minSamples+cooldownReqs; i++ {
		a.RecordOutcome(false, 1000, metrics.ErrorTimeout)
	}

	require.Less(t, a.Concurrency(), startConcurrency)
}

func TestSteadyState_UpgradeOnHighSuccessRate(t *testing.T) {
	c := 1
	a := newTestAdaptive(3000, Overrides{Concurrency: &c}, true) // override skips warmup
	a.overrides = Overrides{}                                    // then drop it so upgrades can move concurrency
	a.concurrency = 1
	a.targetConcurrency = 4

	var last Adjustment
	for i := 0; i < minSamples+cooldownReqs; i++ {
		last = a.RecordOutcome(true, 10, metrics.ErrorNone)
	}

	require.Equal(t, Upgrade, last)
	require.Greater(t, a.Concurrency(), 1)
}

func TestRecordOutcome_ServerErrorNeverMovesStrategy(t *testing.T) {
	a := newTestAdaptive(100, Overrides{}, true)
	for i := 0; i < warmupRequests; i++ {
		a.RecordOutcome(true, 1000, metrics.ErrorNone)
	}
	concurrency := a.Concurrency()

	for i := 0; i < 50; i++ {
		a.RecordOutcome(false, 99999, metrics.ErrorServer)
	}

	require.Equal(t, concurrency, a.Concurrency())
}

func TestBothOverridesShortCircuitsAdjustment(t *testing.T) {
	c, ms := 3, 30000
	a := newTestAdaptive(100, Overrides{Concurrency: &c, TimeoutMs: &ms}, true)
	require.Equal(t, 3, a.Concurrency())

	for i := 0; i < minSamples+cooldownReqs; i++ {
		a.RecordOutcome(false, 1000, metrics.ErrorTimeout)
	}

	require.Equal(t, 3, a.Concurrency())
	require.Equal(t, 30000, a.TimeoutMs())
}
