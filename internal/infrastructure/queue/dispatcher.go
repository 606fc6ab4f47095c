package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kitchenhelper/users-service/internal/core/domain"
	"github.com/kitchenhelper/users-service/internal/core/ports"
	"github.com/kitchenhelper/users-service/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	drainTimeout   = 5 * time.Second
)

// Dispatcher routes integration events to a fixed set of workers using
// consistent hashing on the event key, guaranteeing per-aggregate ordering.
type Dispatcher struct {
	workers   []chan domain.Event
	publisher ports.EventPublisher
	log       zerolog.Logger

	wg sync.WaitGroup

	// mu guards closed and senders. Workers drain only after sendersDone is
	// closed, so every event handed over before shutdown is published.
	mu          sync.Mutex
	closed      bool
	senders     int
	stopped     chan struct{}
	sendersDone chan struct{}
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher ports.EventPublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:     make([]chan domain.Event, numWorkers),
		publisher:   publisher,
		log:         log,
		stopped:     make(chan struct{}),
		sendersDone: make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Event, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. When ctx is cancelled each worker
// publishes what is left in its channel and exits.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		d.stop()
	}()
}

func (d *Dispatcher) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.stopped)
	if d.senders == 0 {
		close(d.sendersDone)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands an event to the worker responsible for its key. It blocks
// while that worker's buffer is full; events enqueued after shutdown are
// dropped.
func (d *Dispatcher) Enqueue(event domain.Event) {
	idx := d.shardIndex(event.Key)
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.drop(event, "dispatcher stopped")
		return
	}
	d.senders++
	d.mu.Unlock()
	defer d.doneSending()

	select {
	case d.workers[idx] <- event:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	case <-d.stopped:
		d.drop(event, "dispatcher stopped")
	}
}

func (d *Dispatcher) doneSending() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders--
	if d.closed && d.senders == 0 {
		close(d.sendersDone)
	}
}

// shardIndex maps an event key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Event) {
	defer d.wg.Done()
	workerID := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			<-d.sendersDone
			d.drain(id, ch)
			return
		case event := <-ch:
			metrics.EventsQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))
			d.publish(ctx, id, event)
		}
	}
}

func (d *Dispatcher) drain(id int, ch <-chan domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-ch:
			d.publish(ctx, id, event)
		default:
			metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(0)
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, id int, event domain.Event) {
	if err := d.publisher.Publish(ctx, event); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "error").Inc()
		d.log.Error().Err(err).
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Str("key", event.Key).
			Int("worker_id", id).
			Msg("event publish failed")
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "ok").Inc()
}

func (d *Dispatcher) drop(event domain.Event, reason string) {
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "dropped").Inc()
	d.log.Warn().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("key", event.Key).
		Msg(reason)
}
