// Package events is the change-notification interface the storage layer
// exposes: after a committed write, the owning service publishes a change
// event keyed by bill, and read-side collaborators re-run their queries.
package events

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

// Module provides the shared hub.
var Module = fx.Provide(NewHub)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

// Kind names what changed on the bill.
type Kind string

const (
	KindBillOpened    Kind = "bill.opened"
	KindItemsAdded    Kind = "bill.items_added"
	KindPaymentAdded  Kind = "bill.payment_added"
	KindDiscountAdded Kind = "bill.discount_added"
	KindItemVoided    Kind = "bill.item_voided"
	KindItemComped    Kind = "bill.item_comped"
	KindBillStored    Kind = "bill.stored"
	KindBillClosed    Kind = "bill.closed"
	KindCallRaised    Kind = "bill.call_raised"
	KindPrintStatus   Kind = "bill.print_status"
	KindPeriodChanged Kind = "period.changed"
)

// Event is one committed change notification.
type Event struct {
	BillID     snowflake.ID `json:"bill_id"`
	Kind       Kind         `json:"kind"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Hub fans committed change events out to subscribed readers. Slow
// subscribers drop events rather than block the writer.
type Hub struct {
	mu               sync.RWMutex
	streams          map[snowflake.ID]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []Event
	subs   map[uint64]chan Event
	nextID uint64
}

// Subscription is one reader's registration for a bill's events.
type Subscription struct {
	hub    *Hub
	billID snowflake.ID
	id     uint64
	ch     chan Event
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[snowflake.ID]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Publish delivers an event to every subscriber of the bill.
func (h *Hub) Publish(billID snowflake.ID, event Event) {
	if h == nil || billID == 0 {
		return
	}
	h.mu.RLock()
	stream := h.streams[billID]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	stream.buffer = append(stream.buffer, event)
	if len(stream.buffer) > h.bufferSize {
		stream.buffer = stream.buffer[len(stream.buffer)-h.bufferSize:]
	}
	subs := make([]chan Event, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a reader and returns the buffered recent events.
func (h *Hub) Subscribe(billID snowflake.ID) (*Subscription, []Event) {
	stream := h.ensureStream(billID)

	stream.mu.Lock()
	if stream.subs == nil {
		stream.subs = make(map[uint64]chan Event)
	}
	id := stream.nextID
	stream.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	stream.subs[id] = ch
	buffer := append([]Event(nil), stream.buffer...)
	stream.mu.Unlock()

	return &Subscription{
		hub:    h,
		billID: billID,
		id:     id,
		ch:     ch,
	}, buffer
}

// Events is the channel committed changes arrive on.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close unsubscribes; safe to call multiple times.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s.billID, s.id)
	})
}

func (h *Hub) ensureStream(billID snowflake.ID) *stream {
	h.mu.RLock()
	current := h.streams[billID]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[billID]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan Event)}
		h.streams[billID] = current
	}
	return current
}

func (h *Hub) unsubscribe(billID snowflake.ID, id uint64) {
	h.mu.RLock()
	stream := h.streams[billID]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	remaining := len(stream.subs)
	stream.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	if current := h.streams[billID]; current == stream {
		delete(h.streams, billID)
	}
	h.mu.Unlock()
}
