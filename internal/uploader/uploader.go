package uploader

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ctxmcp/ctxmcp/internal/metrics"
	"github.com/ctxmcp/ctxmcp/internal/strategy"
	"github.com/ctxmcp/ctxmcp/pkg/errtax"
)

const maxAttempts = 3

// attempter is the subset of HTTPClient a retry loop needs; narrowed to
// an interface so tests can substitute a fake transport.
type attempter interface {
	attempt(ctx context.Context, batch Batch, timeout time.Duration) attemptResult
}

// BatchResult is the outcome of uploading one batch: either a set of
// confirmed chunk names, or the error that made the batch permanently
// fail after retries (or immediately, for a fatal status).
type BatchResult struct {
	Batch      Batch
	ChunkNames []string
	Err        error
}

// Uploader drives the dispatch loop and per-batch retry policy of
// spec.md §4.7, reporting every attempt to an adaptive strategy so
// concurrency and timeout can react to live conditions.
type Uploader struct {
	client   attempter
	strategy *strategy.Adaptive
	log      zerolog.Logger
}

// New builds an Uploader posting through client and governed by s.
func New(client *HTTPClient, s *strategy.Adaptive, log zerolog.Logger) *Uploader {
	return &Uploader{client: client, strategy: s, log: log}
}

// Run executes the dispatch loop: while in-flight count is below the
// strategy's *current* concurrency and the queue is non-empty, start
// another batch; otherwise await the next completion and feed its
// outcome to the strategy before re-evaluating concurrency. A started
// batch always runs to completion under the concurrency value in effect
// when it started.
func (u *Uploader) Run(ctx context.Context, batches []Batch) []BatchResult {
	results := make([]BatchResult, len(batches))
	type completion struct {
		idx    int
		result BatchResult
	}
	done := make(chan completion)

	next := 0
	inFlight := 0
	total := len(batches)

	start := func(idx int) {
		inFlight++
		b := batches[idx]
		go func() {
			names, err := u.uploadWithRetry(ctx, b)
			done <- completion{idx: idx, result: BatchResult{Batch: b, ChunkNames: names, Err: err}}
		}()
	}

	for next < total || inFlight > 0 {
		for inFlight < u.strategy.Concurrency() && next < total {
			start(next)
			next++
		}
		if inFlight == 0 {
			break
		}
		c := <-done
		inFlight--
		results[c.idx] = c.result
	}

	return results
}

// uploadWithRetry performs up to maxAttempts attempts for one batch,
// reporting every attempt's outcome to the strategy, and returns either
// the confirmed chunk names or the final classified error.
func (u *Uploader) uploadWithRetry(ctx context.Context, batch Batch) ([]string, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		timeout := time.Duration(u.strategy.TimeoutMs()) * time.Millisecond
		start := time.Now()
		res := u.client.attempt(ctx, batch, timeout)
		latencyMs := time.Since(start).Milliseconds()

		if res.transport == nil && res.statusCode >= 200 && res.statusCode < 300 {
			u.strategy.RecordOutcome(true, latencyMs, metrics.ErrorNone)
			return res.chunkNames, nil
		}

		classified := errtax.Classify(res.statusCode, res.retryAfter, res.transport, ctx.Err())
		if classified == nil {
			// a 2xx status with an unparseable body: fatal, not retryable
			u.strategy.RecordOutcome(false, latencyMs, metrics.ErrorClient)
			return nil, res.transport
		}

		u.strategy.RecordOutcome(false, latencyMs, toMetricsKind(classified.Kind))
		lastErr = classified

		if !classified.Retryable() || attempt == maxAttempts {
			return nil, classified
		}

		wait := backoffFor(classified, attempt)
		u.log.Debug().Str("batch_status", classified.Kind.String()).Int("attempt", attempt).Dur("wait", wait).Msg("retrying batch upload")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, lastErr
}

func toMetricsKind(k errtax.Kind) metrics.ErrorKind {
	switch k {
	case errtax.RateLimit:
		return metrics.ErrorRateLimit
	case errtax.ServerError:
		return metrics.ErrorServer
	case errtax.Timeout:
		return metrics.ErrorTimeout
	case errtax.NetworkError:
		return metrics.ErrorNetwork
	default:
		return metrics.ErrorClient
	}
}

// backoffFor picks the wait before the next attempt: Retry-After
// (seconds, default 1) for rate limits, exponential 1s*2^(attempt-1)
// otherwise (so the gap after the first failed attempt is 1s, then 2s).
func backoffFor(e *errtax.Error, attempt int) time.Duration {
	if e.Kind == errtax.RateLimit {
		secs := parseRetryAfterSeconds(e.RetryAfter)
		return time.Duration(secs) * time.Second
	}
	return time.Second * time.Duration(1<<uint(attempt-1))
}

func parseRetryAfterSeconds(raw string) int {
	if raw == "" {
		return 1
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 1
	}
	return secs
}
