// Package worker contains the bounded pool that delivers acceptance
// notifications. It owns the timeout and retry policy for outbound SMS so the
// card package never has to: the api and card packages only see
// card.Dispatcher, which *Runner satisfies.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nyashahama/valentine-card/internal/card"
	"github.com/nyashahama/valentine-card/internal/sms"
	"github.com/nyashahama/valentine-card/internal/store"
)

// ErrStopped is returned by Dispatch once the pool has shut down.
var ErrStopped = errors.New("worker: runner stopped")

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. All fields have
// sensible defaults if zero-valued; call DefaultRunnerConfig() to get them.
type RunnerConfig struct {
	// Workers is the number of concurrent delivery goroutines. Default: 3.
	Workers int

	// JobTimeout is the per-attempt context deadline. Default: 15s.
	JobTimeout time.Duration

	// MaxRetries is the total number of attempts for a retryable failure.
	// Default: 3.
	MaxRetries int

	// Backoff is the base delay between attempts; attempt n waits
	// Backoff * 2^n. Default: 1s.
	Backoff time.Duration
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:    3,
		JobTimeout: 15 * time.Second,
		MaxRetries: 3,
		Backoff:    time.Second,
	}
}

// Budget is the longest a single Dispatch can spend in the pool once a
// worker picks it up: every attempt timing out plus the back-off between
// attempts.
func (c RunnerConfig) Budget() time.Duration {
	total := time.Duration(c.MaxRetries) * c.JobTimeout
	for attempt := 1; attempt < c.MaxRetries; attempt++ {
		total += time.Duration(1<<attempt) * c.Backoff
	}
	return total
}

type request struct {
	n      card.Notification
	result chan result
}

type result struct {
	sid string
	err error
}

// Runner manages a pool of delivery goroutines fed by an in-process channel.
type Runner struct {
	job      *Job
	recorder DeliveryRecorder
	cfg      RunnerConfig
	logger   *slog.Logger

	queue   chan request
	wg      sync.WaitGroup
	stopped chan struct{}
}

// NewRunner constructs a Runner. Call Start() to begin processing. recorder
// may be nil.
func NewRunner(job *Job, recorder DeliveryRecorder, cfg RunnerConfig, logger *slog.Logger) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}

	return &Runner{
		job:      job,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
		// Buffer = Workers*2 so Dispatch rarely waits for a free slot.
		queue:   make(chan request, cfg.Workers*2),
		stopped: make(chan struct{}),
	}
}

// Dispatch hands n to the pool and waits for its final outcome. It satisfies
// card.Dispatcher. An empty destination is rejected before queueing.
func (r *Runner) Dispatch(ctx context.Context, n card.Notification) (string, error) {
	if n.Destination == "" {
		return "", card.ErrDestinationRequired
	}

	req := request{n: n, result: make(chan result, 1)}
	select {
	case r.queue <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.stopped:
		return "", ErrStopped
	}

	select {
	case res := <-req.result:
		return res.sid, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.stopped:
		return "", ErrStopped
	}
}

// Budget reports the retry budget of the effective configuration, with
// defaults applied.
func (r *Runner) Budget() time.Duration {
	return r.cfg.Budget()
}

// Start launches the worker pool. It blocks until ctx is cancelled and every
// worker has returned. Call it in a goroutine from main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "workers", r.cfg.Workers, "max_retries", r.cfg.MaxRetries)

	for i := range r.cfg.Workers {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Wait()
	close(r.stopped)
	r.logger.Info("worker: stopped")
}

// work is the inner loop for each worker goroutine.
func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)
	log.Debug("worker: goroutine started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker: goroutine stopping")
			return
		case req := <-r.queue:
			sid, err := r.runWithRetry(ctx, req.n, log)
			req.result <- result{sid: sid, err: err}
		}
	}
}

// runWithRetry executes the job up to MaxRetries times, stopping early on a
// permanent failure, then records the final outcome.
func (r *Runner) runWithRetry(ctx context.Context, n card.Notification, log *slog.Logger) (string, error) {
	var (
		sid      string
		lastErr  error
		attempts []store.AttemptRecord
	)

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
		sid, lastErr = r.job.Run(jobCtx, n)
		cancel()

		rec := store.AttemptRecord{Attempt: attempt, At: time.Now()}
		if lastErr != nil {
			rec.Error = lastErr.Error()
		}
		attempts = append(attempts, rec)

		if lastErr == nil {
			log.Info("worker: sms delivered", "destination", n.Destination, "sid", sid, "attempt", attempt)
			break
		}

		log.Warn("worker: delivery attempt failed",
			"destination", n.Destination,
			"attempt", attempt,
			"max", r.cfg.MaxRetries,
			"error", lastErr,
		)

		if !retryable(lastErr) || attempt == r.cfg.MaxRetries {
			break
		}

		// Exponential back-off: 2, 4, 8 … × Backoff.
		backoff := time.Duration(1<<attempt) * r.cfg.Backoff
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			r.record(n, "", lastErr, attempts, log)
			return "", lastErr
		case <-time.After(backoff):
		}
	}

	if lastErr != nil {
		log.Error("worker: delivery permanently failed", "destination", n.Destination, "error", lastErr)
		sid = ""
	}
	r.record(n, sid, lastErr, attempts, log)
	return sid, lastErr
}

// record writes the outcome to the delivery log. Recording failures are
// logged and never change the dispatch result.
func (r *Runner) record(n card.Notification, sid string, err error, attempts []store.AttemptRecord, log *slog.Logger) {
	if r.recorder == nil {
		return
	}

	p := store.RecordDeliveryParams{
		Destination:   n.Destination,
		SenderName:    n.SenderName,
		RecipientName: n.RecipientName,
		DeliveryID:    sid,
		Status:        store.StatusSent,
		Attempts:      attempts,
	}
	if err != nil {
		p.Status = store.StatusFailed
		p.ErrorMessage = err.Error()
	}

	recCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, recErr := r.recorder.RecordDelivery(recCtx, p); recErr != nil {
		log.Error("worker: failed to record delivery", "destination", n.Destination, "error", recErr)
	}
}

func retryable(err error) bool {
	if errors.Is(err, card.ErrDestinationRequired) {
		return false
	}
	return sms.Retryable(err)
}
