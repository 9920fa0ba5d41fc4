// Package queue delivers notifications asynchronously through sharded workers.
package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/apilogin/auth-api/internal/api/metrics"
	"github.com/apilogin/auth-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("mail queue closed")

// Dispatcher implements ports.Notifier by handing messages to a fixed set of
// workers, sharded on the recipient so mail to one address stays ordered.
// Send returns once the message is queued; delivery errors are only logged.
type Dispatcher struct {
	workers []chan ports.Message
	next    ports.Notifier
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers
// delivering through next. If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, next ports.Notifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.Message, numWorkers),
		next:    next,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. ctx bounds each delivery attempt;
// workers exit once Close has drained their channel.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Send queues msg on the worker responsible for its recipient. It blocks only
// while that worker's buffer is full.
func (d *Dispatcher) Send(ctx context.Context, msg ports.Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	idx := d.shardIndex(msg.To)
	select {
	case d.workers[idx] <- msg:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Message) {
	defer d.wg.Done()
	depth := metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(id))

	for msg := range ch {
		depth.Dec()
		if err := d.next.Send(ctx, msg); err != nil {
			metrics.MailDeliveriesTotal.WithLabelValues(metrics.ResultFailure).Inc()
			d.log.Error().Err(err).
				Str("to", msg.To).
				Int("worker_id", id).
				Msg("email delivery failed")
			continue
		}
		metrics.MailDeliveriesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	}
}
