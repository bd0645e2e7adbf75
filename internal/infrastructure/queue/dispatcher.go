package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/patricktravel/portal/internal/api/metrics"
	"github.com/patricktravel/portal/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes outgoing mail to a fixed set of workers using consistent
// hashing on the recipient, guaranteeing per-recipient delivery order.
type Dispatcher struct {
	workers []chan ports.MailMessage
	mailer  ports.Mailer
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, mailer ports.Mailer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.MailMessage, numWorkers),
		mailer:  mailer,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.MailMessage, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Enqueue hands msg to the worker responsible for its recipient. It never
// blocks a request: when that worker's channel is full the message is dropped
// and counted.
func (d *Dispatcher) Enqueue(msg ports.MailMessage) {
	idx := d.shardIndex(msg.To)
	select {
	case d.workers[idx] <- msg:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.MailSentTotal.WithLabelValues(string(msg.Kind), "dropped").Inc()
		d.log.Error().Str("kind", string(msg.Kind)).Int("worker_id", idx).Msg("mail queue full, message dropped")
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(recipient)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.MailMessage) {
	defer d.wg.Done()
	depth := metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))

			start := time.Now()
			err := d.mailer.Send(ctx, msg)
			metrics.MailSendDuration.WithLabelValues(string(msg.Kind)).Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.MailSentTotal.WithLabelValues(string(msg.Kind), "failed").Inc()
				d.log.Error().Err(err).
					Str("kind", string(msg.Kind)).
					Int("worker_id", id).
					Msg("mail delivery failed")
				continue
			}
			metrics.MailSentTotal.WithLabelValues(string(msg.Kind), "sent").Inc()
		}
	}
}
