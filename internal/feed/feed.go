// Package feed fans out per-user change events so clients can refresh what
// they display without polling. Writers publish only after their database
// transaction commits.
package feed

import (
	"sync"
	"time"

	"github.com/stanrainier/stan-finance-tracker/internal/metrics"
)

// Op is the kind of change made to a document.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event announces one changed document in one of the user's collections.
type Event struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Op         Op     `json:"op"`
	At         int64  `json:"at"` // unix millis
}

// Publisher is what writers need from the feed.
type Publisher interface {
	Publish(uid string, events ...Event)
}

// Subscription receives the events of one user, optionally narrowed to a
// set of collections.
type Subscription struct {
	C           <-chan Event
	ch          chan Event
	collections map[string]bool
}

func (s *Subscription) wants(collection string) bool {
	return len(s.collections) == 0 || s.collections[collection]
}

// Hub keeps the subscribers of every user.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

// NewHub creates a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber for uid. With no collections given every
// collection is delivered. The returned func unsubscribes and closes C.
func (h *Hub) Subscribe(uid string, collections ...string) (*Subscription, func()) {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch}
	if len(collections) > 0 {
		sub.collections = make(map[string]bool, len(collections))
		for _, c := range collections {
			sub.collections[c] = true
		}
	}

	h.mu.Lock()
	if h.subs[uid] == nil {
		h.subs[uid] = make(map[*Subscription]struct{})
	}
	h.subs[uid][sub] = struct{}{}
	h.mu.Unlock()
	metrics.FeedSubscribers.Inc()

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[uid], sub)
			if len(h.subs[uid]) == 0 {
				delete(h.subs, uid)
			}
			close(sub.ch)
			h.mu.Unlock()
			metrics.FeedSubscribers.Dec()
		})
	}
}

// Publish delivers events to uid's subscribers. A subscriber whose buffer is
// full misses the event rather than stalling the writer.
func (h *Hub) Publish(uid string, events ...Event) {
	now := time.Now().UnixMilli()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[uid] {
		for _, ev := range events {
			if !sub.wants(ev.Collection) {
				continue
			}
			if ev.At == 0 {
				ev.At = now
			}
			select {
			case sub.ch <- ev:
			default:
				metrics.FeedDropped.Inc()
			}
		}
	}
}

// Count returns the number of subscribers for uid.
func (h *Hub) Count(uid string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[uid])
}
