// Package realtime implements the live side of the messenger: the
// broadcast hub that fans events out to connected subscribers, the
// ephemeral typing registry, and the websocket connection plumbing.
//
// The hub is a single in-process fan-out point. Horizontal scale-out would
// put a broker (Redis, NATS) behind Publish; nothing else would change for
// callers.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Event names delivered to subscribers. The payload shapes are:
//   - EventNewMessage:     the full persisted message
//   - EventMessageUpdated: UpdatePayload {id, body}
//   - EventMessageDeleted: DeletePayload {id}
//   - EventUserTyping:     TypingPayload {room, typing_users}
const (
	EventNewMessage     = "newMessage"
	EventMessageUpdated = "messageUpdated"
	EventMessageDeleted = "messageDeleted"
	EventUserTyping     = "userTyping"
)

// UpdatePayload announces a redacted message.
type UpdatePayload struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// DeletePayload announces a hard-deleted message.
type DeletePayload struct {
	ID string `json:"id"`
}

// TypingPayload carries the full typing set of a room after a change.
type TypingPayload struct {
	Room        string   `json:"room"`
	TypingUsers []string `json:"typing_users"`
}

// envelope is the wire shape of every hub event.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

var (
	hubSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hub_subscribers",
		Help: "Current number of connected hub subscribers.",
	})
	hubDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_events_delivered_total",
		Help: "Events delivered to subscriber buffers, by event name.",
	}, []string{"event"})
	hubDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_events_dropped_total",
		Help: "Events dropped because a subscriber buffer was full, by event name.",
	}, []string{"event"})
)

func init() {
	prometheus.MustRegister(hubSubscribers, hubDelivered, hubDropped)
}

// subscriberBuffer is the per-subscriber channel depth. A slow client can
// lag this many events before the hub starts dropping for it.
const subscriberBuffer = 64

// Subscriber is one connected client's view of the hub: a FIFO channel of
// encoded event frames. Obtain one via Hub.Subscribe and release it with
// Hub.Unsubscribe; afterwards the channel is closed.
type Subscriber struct {
	ch chan []byte
}

// C returns the subscriber's event stream. The channel is closed on
// Unsubscribe; frames are JSON envelopes {"event": ..., "data": ...}.
func (s *Subscriber) C() <-chan []byte { return s.ch }

// Hub maintains the set of live subscribers and fans events out to all of
// them. Delivery is best-effort and never blocks: a subscriber whose buffer
// is full misses that event (counted in hub_events_dropped_total) while
// everyone else still receives it. Events published from one goroutine
// arrive at every subscriber in publish order.
//
// The hub delivers globally: every subscriber sees every event regardless
// of room. That mirrors the single-process design; room-scoped delivery
// would hang a room set off each subscriber and filter in Publish.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers and returns a new subscriber handle.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	hubSubscribers.Inc()
	return sub
}

// Unsubscribe removes the handle and closes its channel. Calling it again,
// or with a handle the hub never saw, is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.subs[sub]
	if ok {
		delete(h.subs, sub)
	}
	h.mu.Unlock()
	if ok {
		close(sub.ch)
		hubSubscribers.Dec()
	}
}

// Len reports the current number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish encodes the event once and delivers it to every current
// subscriber. Encoding failures are logged and swallowed; fan-out is
// best-effort and must never fail the operation that triggered it.
func (h *Hub) Publish(event string, data any) {
	frame, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("hub: encode event")
		return
	}

	// Holding the read lock while sending keeps Unsubscribe (and its
	// channel close) from interleaving with delivery.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- frame:
			hubDelivered.WithLabelValues(event).Inc()
		default:
			hubDropped.WithLabelValues(event).Inc()
		}
	}
}
