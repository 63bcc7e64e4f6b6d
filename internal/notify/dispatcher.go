package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tojsavdo/orderpush/internal/metrics"
)

// Job is one delivery request: a composed message plus its recipients,
// either a broadcast topic or an explicit token list.
type Job struct {
	Msg    Message
	Topic  string
	Tokens []string
}

// Dispatcher runs notification delivery on a fixed pool of workers so the
// request path never waits on the push provider. Outcomes are logged and
// counted, never surfaced to the caller: the contract is "queued", not
// "delivered".
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	jobs     chan Job
	workers  int

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of delivery workers.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) { d.workers = n }
}

// WithQueueSize sets the capacity of the pending-job queue.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) { d.jobs = make(chan Job, n) }
}

// WithMetrics attaches delivery counters.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(n Notifier, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		notifier: n,
		logger:   logger,
		workers:  4,
		jobs:     make(chan Job, 64),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker goroutines. It returns immediately.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true

	d.logger.Info("dispatcher starting", slog.Int("workers", d.workers))
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.deliverLoop()
	}
}

// Stop signals the workers and waits for in-flight deliveries to finish, or
// for the context deadline, whichever comes first. Queued jobs that
// never started are dropped; delivery is best-effort.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	close(d.stopCh)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
	case <-ctx.Done():
		d.logger.Warn("dispatcher shutdown timed out")
	}
}

// Enqueue submits a job and returns immediately. A full queue drops the job
// with a log line rather than blocking the request path.
func (d *Dispatcher) Enqueue(j Job) bool {
	select {
	case d.jobs <- j:
		return true
	default:
		d.logger.Warn("notification queue full, dropping job",
			slog.String("title", j.Msg.Title),
			slog.String("topic", j.Topic),
			slog.Int("tokens", len(j.Tokens)))
		d.count("dropped")
		return false
	}
}

func (d *Dispatcher) deliverLoop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stopCh:
			return
		case j := <-d.jobs:
			d.deliver(j)
		}
	}
}

// deliver attempts every recipient independently; one recipient's failure
// never aborts the rest.
func (d *Dispatcher) deliver(j Job) {
	ctx := context.Background()

	if j.Topic != "" {
		id, err := d.notifier.SendToTopic(ctx, j.Topic, j.Msg)
		if err != nil {
			d.logger.Error("topic delivery failed",
				slog.String("topic", j.Topic), slog.String("error", err.Error()))
			d.count("failed")
			return
		}
		d.logger.Info("notification sent",
			slog.String("topic", j.Topic), slog.String("delivery_id", id))
		d.count("sent")
		return
	}

	for _, token := range j.Tokens {
		id, err := d.notifier.SendToToken(ctx, token, j.Msg)
		switch {
		case errors.Is(err, ErrUnregistered):
			d.logger.Warn("stale token, skipping",
				slog.String("token", truncateToken(token)))
			d.count("unregistered")
		case err != nil:
			d.logger.Error("token delivery failed",
				slog.String("token", truncateToken(token)),
				slog.String("error", err.Error()))
			d.count("failed")
		default:
			d.logger.Info("notification sent",
				slog.String("token", truncateToken(token)),
				slog.String("delivery_id", id))
			d.count("sent")
		}
	}
}

func (d *Dispatcher) count(outcome string) {
	if d.metrics != nil {
		d.metrics.Notifications.WithLabelValues(outcome).Inc()
	}
}

// truncateToken keeps logs readable and avoids writing whole delivery
// addresses to the log stream.
func truncateToken(t string) string {
	if len(t) <= 12 {
		return t
	}
	return t[:12] + "…"
}
