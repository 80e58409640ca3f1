package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jpalmerr/storewatch/internal/metrics"
	"github.com/jpalmerr/storewatch/internal/status"
)

// TopicStatus is the only topic subscribers can join.
const TopicStatus = "status"

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

var (
	// ErrInvalidTopic is returned by [Registry.Subscribe] for unknown topics.
	ErrInvalidTopic = errors.New("invalid channel")

	// ErrClosed is returned by [Registry.Subscribe] after [Registry.Close].
	ErrClosed = errors.New("registry closed")

	// ErrBufferFull is the cause recorded when a subscriber cannot keep up.
	ErrBufferFull = errors.New("subscriber buffer full")
)

// DeliveryError records a subscriber dropped after a failed delivery.
// It is logged, never returned to broadcasters.
type DeliveryError struct {
	SubscriberID string
	Topic        string
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to subscriber %s on %q failed: %v", e.SubscriberID, e.Topic, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// CurrentFunc renders the status message delivered to a subscriber on join.
type CurrentFunc func() status.Message

// Subscription is one observer's handle. Its channel is closed when the
// subscription is removed for any reason.
type Subscription struct {
	id    string
	topic string
	ch    chan status.Message
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Topic returns the topic the subscription joined.
func (s *Subscription) Topic() string {
	return s.topic
}

// C returns the channel of messages for this subscriber.
func (s *Subscription) C() <-chan status.Message {
	return s.ch
}

// Registry is a concurrency-safe set of subscriptions grouped by topic.
//
// Membership changes take the write lock; broadcasts deliver under the read
// lock. A subscription is therefore never sent to after its removal, and
// removals never interleave with an iteration.
type Registry struct {
	mu      sync.RWMutex
	topics  map[string]map[*Subscription]struct{}
	closed  bool
	current CurrentFunc
	buffer  int
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a [Registry].
type Option func(*Registry)

// WithBuffer sets the per-subscriber channel capacity. Values below 1 are ignored.
func WithBuffer(n int) Option {
	return func(r *Registry) {
		if n >= 1 {
			r.buffer = n
		}
	}
}

// WithLogger sets the logger for dropped subscribers.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics enables subscriber instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// New creates a [Registry] serving the "status" topic. current is called on
// every join to produce the immediate status delivery.
func New(current CurrentFunc, opts ...Option) *Registry {
	r := &Registry{
		topics: map[string]map[*Subscription]struct{}{
			TopicStatus: {},
		},
		current: current,
		buffer:  DefaultBuffer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe joins topic and returns the new [Subscription].
//
// The current status is queued on the subscription before it becomes visible
// to broadcasts, so a subscriber always receives at least one message.
// Returns [ErrInvalidTopic] for unknown topics and [ErrClosed] after Close.
func (r *Registry) Subscribe(topic string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	subs, ok := r.topics[topic]
	if !ok {
		return nil, ErrInvalidTopic
	}

	sub := &Subscription{
		id:    uuid.NewString(),
		topic: topic,
		ch:    make(chan status.Message, r.buffer),
	}
	if r.current != nil {
		sub.ch <- r.current() // buffer >= 1, never blocks
	}
	subs[sub] = struct{}{}
	r.metrics.SetSubscribers(r.countLocked())

	r.logger.Debug("subscriber joined", "subscriber", sub.id, "topic", topic)
	return sub, nil
}

// Unsubscribe removes sub and closes its channel.
// Safe to call multiple times or with a subscription already dropped.
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.removeLocked(sub) {
		r.logger.Debug("subscriber left", "subscriber", sub.id, "topic", sub.topic)
	}
}

// Broadcast delivers msg to every subscriber of topic and returns the number
// of successful deliveries.
//
// Delivery never blocks. A subscriber whose buffer is full is removed after
// the pass; the remaining subscribers still receive msg. Unknown topics
// deliver to nobody.
func (r *Registry) Broadcast(topic string, msg status.Message) int {
	var (
		delivered int
		failed    []*Subscription
	)

	r.mu.RLock()
	for sub := range r.topics[topic] {
		select {
		case sub.ch <- msg:
			delivered++
		default:
			failed = append(failed, sub)
		}
	}
	r.mu.RUnlock()

	r.metrics.IncBroadcast()

	if len(failed) == 0 {
		return delivered
	}

	r.mu.Lock()
	for _, sub := range failed {
		if !r.removeLocked(sub) {
			continue // already gone
		}
		r.metrics.IncDropped()
		err := &DeliveryError{SubscriberID: sub.id, Topic: topic, Err: ErrBufferFull}
		r.logger.Warn("dropping subscriber", "subscriber", sub.id, "error", err)
	}
	r.mu.Unlock()

	return delivered
}

// Count returns the number of subscribers on topic.
func (r *Registry) Count(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

// Close removes every subscription and closes their channels. Subsequent
// Subscribe calls fail with [ErrClosed]. Close is idempotent.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for _, subs := range r.topics {
		for sub := range subs {
			delete(subs, sub)
			close(sub.ch)
		}
	}
	r.metrics.SetSubscribers(0)
}

// removeLocked deletes sub and closes its channel. Caller holds r.mu.
// Reports whether sub was present.
func (r *Registry) removeLocked(sub *Subscription) bool {
	subs := r.topics[sub.topic]
	if _, ok := subs[sub]; !ok {
		return false
	}
	delete(subs, sub)
	close(sub.ch)
	r.metrics.SetSubscribers(r.countLocked())
	return true
}

func (r *Registry) countLocked() int {
	n := 0
	for _, subs := range r.topics {
		n += len(subs)
	}
	return n
}
