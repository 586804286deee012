// Package events fans scene selections out to other services over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/signalsfoundry/globe-visualizer/internal/logging"
	"github.com/signalsfoundry/globe-visualizer/model"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "globe.selection"

// SelectionEvent is the message published for every successful pick.
type SelectionEvent struct {
	Scene     string          `json:"scene"`
	Frame     uint64          `json:"frame"`
	EventType model.EventType `json:"eventType"`
	EventName string          `json:"eventName"`
	At        time.Time       `json:"at"`
}

// Publisher delivers selection events.
type Publisher interface {
	PublishSelection(ctx context.Context, ev SelectionEvent) error
	Close()
}

// natsConn is the part of *nats.Conn the publisher needs.
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher publishes selection events as JSON on a plain NATS subject.
type NATSPublisher struct {
	conn    natsConn
	subject string

	mu     sync.Mutex
	closed bool
}

// NewNATSPublisher connects to url. The connection keeps retrying in the
// background if the server is not up yet.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("globe-visualizer"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return newNATSPublisher(conn, subject), nil
}

func newNATSPublisher(conn natsConn, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: conn, subject: subject}
}

// Subject returns the subject events are published on.
func (p *NATSPublisher) Subject() string { return p.subject }

// PublishSelection implements Publisher.
func (p *NATSPublisher) PublishSelection(ctx context.Context, ev SelectionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nats.ErrConnectionClosed
	}
	return p.conn.Publish(p.subject, data)
}

// Close drains the connection. It is safe to call more than once.
func (p *NATSPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	_ = p.conn.Drain()
}

// Noop discards events.
type Noop struct{}

func (Noop) PublishSelection(context.Context, SelectionEvent) error { return nil }
func (Noop) Close()                                                 {}

// Subscribe decodes selection events from subject on nc and hands them to
// handler. Malformed messages are logged and dropped.
func Subscribe(nc *nats.Conn, subject string, log logging.Logger, handler func(SelectionEvent)) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = logging.Noop()
	}
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		ev, err := Decode(msg.Data)
		if err != nil {
			log.Warn(context.Background(), "dropping malformed selection event", logging.Err(err))
			return
		}
		handler(ev)
	})
}

// Decode parses one published event.
func Decode(data []byte) (SelectionEvent, error) {
	var ev SelectionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return SelectionEvent{}, fmt.Errorf("decode selection event: %w", err)
	}
	return ev, nil
}
