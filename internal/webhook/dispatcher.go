package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/botpe-relay/internal/observability/metrics"
	"github.com/wolfman30/botpe-relay/pkg/logging"
)

// Handler processes one webhook body. *Router satisfies it.
type Handler interface {
	Dispatch(ctx context.Context, routeAccount string, body []byte) error
}

// Archiver keeps a copy of raw webhook bodies before they are processed.
type Archiver interface {
	Archive(ctx context.Context, account string, body []byte, receivedAt time.Time) (string, error)
}

// Job is one acknowledged webhook delivery waiting to be processed.
type Job struct {
	Account    string
	Body       []byte
	ReceivedAt time.Time
}

// Dispatcher runs webhook processing off the request path on a bounded pool.
// When the queue is full the job runs on its own goroutine instead of being dropped.
// After Run returns, Submit processes jobs on the caller's goroutine.
type Dispatcher struct {
	handler      Handler
	archiver     Archiver
	metrics      *metrics.RelayMetrics
	logger       *logging.Logger
	queue        chan Job
	workers      int
	drainTimeout time.Duration

	mu       sync.RWMutex
	closed   bool
	overflow sync.WaitGroup
	now      func() time.Time
}

func NewDispatcher(handler Handler, logger *logging.Logger) *Dispatcher {
	if handler == nil {
		panic("webhook: handler required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		handler:      handler,
		logger:       logger,
		queue:        make(chan Job, 256),
		workers:      4,
		drainTimeout: 15 * time.Second,
		now:          time.Now,
	}
}

func (d *Dispatcher) WithWorkers(n int) *Dispatcher {
	if n > 0 {
		d.workers = n
	}
	return d
}

// WithQueueSize resizes the queue. Call it before Run and Submit.
func (d *Dispatcher) WithQueueSize(n int) *Dispatcher {
	if n > 0 {
		d.queue = make(chan Job, n)
	}
	return d
}

func (d *Dispatcher) WithArchiver(a Archiver) *Dispatcher {
	d.archiver = a
	return d
}

func (d *Dispatcher) WithMetrics(m *metrics.RelayMetrics) *Dispatcher {
	d.metrics = m
	return d
}

func (d *Dispatcher) WithDrainTimeout(t time.Duration) *Dispatcher {
	if t > 0 {
		d.drainTimeout = t
	}
	return d
}

// Submit enqueues a body received on the endpoint bound to account. It only blocks
// once the dispatcher has stopped.
func (d *Dispatcher) Submit(account string, body []byte) {
	job := Job{Account: account, Body: body, ReceivedAt: d.now()}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("webhook dispatcher stopped; processing inline", "account", account)
		d.process(context.Background(), job)
		return
	}
	select {
	case d.queue <- job:
	default:
		d.metrics.ObserveDropped("queue_full")
		d.logger.Warn("webhook queue full; processing inline goroutine", "account", account)
		d.overflow.Add(1)
		go func() {
			defer d.overflow.Done()
			d.process(context.Background(), job)
		}()
	}
}

// Run processes jobs until ctx is cancelled, then drains what is queued.
func (d *Dispatcher) Run(ctx context.Context) {
	jobCtx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-d.queue:
					d.process(jobCtx, job)
				}
			}
		}()
	}
	wg.Wait()
	// Submits that already hold the read lock finish enqueueing before closed flips.
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.drain(jobCtx)
	d.overflow.Wait()
}

func (d *Dispatcher) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, d.drainTimeout)
	defer cancel()
	drained := 0
	for {
		select {
		case job := <-d.queue:
			d.process(ctx, job)
			drained++
		default:
			if drained > 0 {
				d.logger.Info("webhook queue drained", "jobs", drained)
			}
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, job Job) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			d.metrics.ObserveDropped("panic")
			d.logger.Error("webhook processing panicked", "panic", fmt.Sprint(rec), "account", job.Account)
		}
		d.metrics.ObserveWebhookLatency(job.Account, time.Since(start).Seconds())
	}()

	if d.archiver != nil {
		if key, err := d.archiver.Archive(ctx, job.Account, job.Body, job.ReceivedAt); err != nil {
			d.logger.Warn("webhook archive failed", "error", err, "account", job.Account)
		} else {
			d.logger.Debug("webhook archived", "key", key, "account", job.Account)
		}
	}
	if err := d.handler.Dispatch(ctx, job.Account, job.Body); err != nil {
		d.logger.Debug("webhook body not dispatched", "error", err, "account", job.Account)
	}
}
