package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/metrics"
)

// RedirectCountWriter is the slice of the link store the counter needs.
type RedirectCountWriter interface {
	IncrementRedirectCount(ctx context.Context, slug string) error
}

type CounterConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// CounterWorker applies redirect-count increments off the request path.
// Enqueue never blocks: when the queue is full the increment is dropped and
// logged. Write failures are logged and swallowed.
type CounterWorker struct {
	store   RedirectCountWriter
	queue   chan string
	workers int
	timeout time.Duration
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending int
	idle    chan struct{}
	closed  bool
	group   *errgroup.Group
}

func NewCounterWorker(store RedirectCountWriter, cfg CounterConfig, log zerolog.Logger, m *metrics.Metrics) *CounterWorker {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	idle := make(chan struct{})
	close(idle)
	return &CounterWorker{
		store:   store,
		queue:   make(chan string, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		log:     log.With().Str("component", "redirect_counter").Logger(),
		metrics: m,
		idle:    idle,
	}
}

// Start launches the worker goroutines. Calling it twice is a no-op.
func (w *CounterWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.group != nil || w.closed {
		return
	}

	w.group = &errgroup.Group{}
	for i := 0; i < w.workers; i++ {
		w.group.Go(func() error {
			for slug := range w.queue {
				w.apply(slug)
			}
			return nil
		})
	}
}

func (w *CounterWorker) Enqueue(slug string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.drop(slug, "closed")
		return
	}

	select {
	case w.queue <- slug:
		if w.pending == 0 {
			w.idle = make(chan struct{})
		}
		w.pending++
		w.metrics.QueueDepth(len(w.queue))
	default:
		w.drop(slug, "queue full")
	}
}

func (w *CounterWorker) drop(slug, reason string) {
	w.metrics.CounterIncrement(metrics.CounterDropped)
	w.log.Warn().Str("slug", slug).Str("reason", reason).Msg("redirect count increment dropped")
}

func (w *CounterWorker) apply(slug string) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.store.IncrementRedirectCount(ctx, slug); err != nil {
		w.metrics.CounterIncrement(metrics.CounterFailed)
		w.log.Warn().Err(err).Str("slug", slug).Msg("failed to increment redirect count")
	} else {
		w.metrics.CounterIncrement(metrics.CounterApplied)
	}

	w.mu.Lock()
	w.pending--
	if w.pending == 0 {
		close(w.idle)
	}
	w.metrics.QueueDepth(len(w.queue))
	w.mu.Unlock()
}

// Drain blocks until every accepted increment has been attempted.
func (w *CounterWorker) Drain(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting increments and waits for the workers to finish the
// queue, or for ctx to end.
func (w *CounterWorker) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	group := w.group
	w.mu.Unlock()

	if group == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
