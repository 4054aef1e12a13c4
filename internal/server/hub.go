package server

import (
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/tonimelisma/gradecal/internal/sync"
)

// subscriberBuffer is how many events a slow subscriber may lag behind
// before events are dropped for it.
const subscriberBuffer = 32

// Event is one finished pass, as streamed to report subscribers.
type Event struct {
	UserID  string           `json:"user_id"`
	Trigger string           `json:"trigger"`
	Result  sync.Result      `json:"result"`
	Report  *sync.PassReport `json:"report,omitempty"`
	Time    time.Time        `json:"time"`
}

// NewEvent builds the Event for a pass outcome.
func NewEvent(userID string, trigger sync.Trigger, report *sync.PassReport, err error) Event {
	return Event{
		UserID:  userID,
		Trigger: trigger.String(),
		Result:  sync.ResultOf(err),
		Report:  report,
		Time:    time.Now().UTC(),
	}
}

// Hub fans pass events out to websocket subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     stdsync.Mutex
	subs   map[chan Event]struct{}
	logger *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		subs:   make(map[chan Event]struct{}),
		logger: logger,
	}
}

// Publish delivers ev to every subscriber with room for it.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("report subscriber lagging, event dropped", slog.String("user_id", ev.UserID))
		}
	}
}

// PublishUserReport publishes the outcome of one pass of a bulk run. It
// has the shape of sync.OrchestratorConfig.OnReport once the trigger is
// bound.
func (h *Hub) PublishUserReport(trigger sync.Trigger) func(*sync.UserReport) {
	return func(r *sync.UserReport) {
		h.Publish(NewEvent(r.UserID, trigger, r.Report, r.Err))
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}

// Subscribe registers a new subscriber. The returned function removes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}
