// Package mirror copies persisted progress fields to remote stores. Writes
// are best effort: the local store stays authoritative and a failed remote
// write is logged, counted and dropped.
package mirror

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/sankofa-trivia/backend/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Sink is one remote destination. Write sets a single field of the
// identity's document.
type Sink interface {
	Name() string
	Write(ctx context.Context, identity, field string, value json.RawMessage) error
}

type update struct {
	identity string
	field    string
	value    json.RawMessage
}

type Option func(*Mirror)

// WithBackOff replaces the retry policy used for each sink write.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(m *Mirror) { m.newBackOff = newBackOff }
}

// Mirror fans pushed fields out to its sinks from a single worker, so writes
// for one identity reach each sink in push order.
type Mirror struct {
	sinks      []Sink
	queue      chan update
	maxRetries uint64
	newBackOff func() backoff.BackOff

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func New(sinks []Sink, queueSize int, maxRetries uint64, opts ...Option) *Mirror {
	if queueSize <= 0 {
		queueSize = 1
	}
	m := &Mirror{
		sinks:      sinks,
		queue:      make(chan update, queueSize),
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs the worker until ctx is cancelled or Close drains the queue.
func (m *Mirror) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		for {
			select {
			case u, ok := <-m.queue:
				if !ok {
					return
				}
				m.deliver(ctx, u)
			case <-ctx.Done():
				return
			}
		}
	}()
	logrus.Infof("[mirror] worker started with %d sink(s)", len(m.sinks))
}

// Push enqueues a field write without blocking. When the queue is full the
// write is dropped.
func (m *Mirror) Push(identity, field string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		logrus.WithFields(logrus.Fields{"identity": identity, "field": field}).
			Warnf("[mirror] encode failed, dropping: %v", err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- update{identity: identity, field: field, value: data}:
	default:
		metrics.RemoteSyncDropped.Inc()
		logrus.WithFields(logrus.Fields{"identity": identity, "field": field}).
			Warn("[mirror] queue full, dropping write")
	}
}

// Close stops accepting pushes and waits for queued writes to finish. The
// worker must have been started.
func (m *Mirror) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()
	<-m.done
}

func (m *Mirror) deliver(ctx context.Context, u update) {
	for _, sink := range m.sinks {
		sink := sink
		op := func() error {
			return sink.Write(ctx, u.identity, u.field, u.value)
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(m.newBackOff(), m.maxRetries), ctx)
		if err := backoff.Retry(op, policy); err != nil {
			metrics.RemoteSyncFailures.WithLabelValues(sink.Name()).Inc()
			logrus.WithFields(logrus.Fields{
				"identity": u.identity,
				"field":    u.field,
				"sink":     sink.Name(),
			}).Warnf("[mirror] write failed after retries: %v", err)
		}
	}
}
