// Package bus provides the event fabric between claim intake and the
// adjudication workers: an in-process channel bus for the Community
// tier and NATS for the Pro tier.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-health/egret/internal/domain"
)

// ChannelBus is the Community tier event bus. Delivery is at-most-once
// within the process: a subscriber that cannot keep up sheds messages
// instead of blocking claim intake.
type ChannelBus struct {
	mu     sync.RWMutex
	buffer int
	closed bool

	// subscribers, keyed by tenant-scoped subject then subscription ID.
	subs map[string]map[string]*channelSubscription

	shed atomic.Int64
}

type channelSubscription struct {
	id      string
	subject string
	topic   string
	bus     *ChannelBus

	inbox   chan *domain.Message
	handler domain.MessageHandler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewChannelBus creates an in-process bus. Each subscription gets its
// own inbox of bufferSize messages.
func NewChannelBus(bufferSize int) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &ChannelBus{
		buffer: bufferSize,
		subs:   make(map[string]map[string]*channelSubscription),
	}
}

// Publish delivers a message to every subscriber of the tenant's topic.
// Publishing to a topic with no subscribers is a no-op.
func (b *ChannelBus) Publish(ctx context.Context, tenantID string, topic string, payload []byte) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}

	msg := &domain.Message{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("bus is closed")
	}
	targets := make([]*channelSubscription, 0, len(b.subs[subjectOf(tenantID, topic)]))
	for _, sub := range b.subs[subjectOf(tenantID, topic)] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.inbox <- msg:
		default:
			b.shed.Add(1)
			slog.Warn("subscriber backlogged, message shed",
				"tenant_id", tenantID,
				"topic", topic,
				"message_id", msg.ID,
			)
		}
	}
	return nil
}

// Subscribe registers a handler for a tenant's topic. Each message is
// handled on the subscription's own goroutine.
func (b *ChannelBus) Subscribe(ctx context.Context, tenantID string, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("bus is closed")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &channelSubscription{
		id:      uuid.New().String(),
		subject: subjectOf(tenantID, topic),
		topic:   topic,
		bus:     b,
		inbox:   make(chan *domain.Message, b.buffer),
		handler: handler,
		ctx:     subCtx,
		cancel:  cancel,
	}

	if b.subs[sub.subject] == nil {
		b.subs[sub.subject] = make(map[string]*channelSubscription)
	}
	b.subs[sub.subject][sub.id] = sub

	go sub.drain()
	return sub, nil
}

// Request implements request-reply over an ephemeral reply topic.
func (b *ChannelBus) Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	replyCh := make(chan []byte, 1)
	replyTopic := topic + ".reply." + uuid.New().String()

	sub, err := b.Subscribe(ctx, tenantID, replyTopic, func(ctx context.Context, msg *domain.Message) error {
		select {
		case replyCh <- msg.Payload:
		default:
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	if err := b.Publish(ctx, tenantID, topic, payload); err != nil {
		return nil, err
	}

	select {
	case reply := <-replyCh:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("request timeout")
	}
}

// Ping reports bus health.
func (b *ChannelBus) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}
	return nil
}

// Shed returns the number of messages dropped because a subscriber's
// inbox was full.
func (b *ChannelBus) Shed() int64 {
	return b.shed.Load()
}

// Close cancels every subscription and rejects further publishes.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, bySubject := range b.subs {
		for _, sub := range bySubject {
			sub.cancel()
		}
	}
	b.subs = make(map[string]map[string]*channelSubscription)
	return nil
}

// remove detaches a subscription; no-op after Close.
func (b *ChannelBus) remove(sub *channelSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bySubject, ok := b.subs[sub.subject]; ok {
		delete(bySubject, sub.id)
		if len(bySubject) == 0 {
			delete(b.subs, sub.subject)
		}
	}
}

func subjectOf(tenantID, topic string) string {
	return tenantID + ":" + topic
}

// drain feeds inbox messages to the handler until the subscription is
// cancelled.
func (s *channelSubscription) drain() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.inbox:
			if msg != nil {
				_ = s.handler(s.ctx, msg)
			}
		}
	}
}

// Unsubscribe stops delivery and detaches from the bus.
func (s *channelSubscription) Unsubscribe() error {
	s.cancel()
	s.bus.remove(s)
	return nil
}

// Topic returns the subscribed topic.
func (s *channelSubscription) Topic() string {
	return s.topic
}
