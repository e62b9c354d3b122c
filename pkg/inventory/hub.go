package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"greenbite/entities"

	"github.com/gofiber/fiber/v2/log"
)

const snapshotTimeout = 10 * time.Second

// Loader reads the full current collection of a user.
type Loader func(ctx context.Context, userID string) ([]entities.FoodItem, error)

// Hub fans change signals out to live view subscribers. Every delivery is a
// complete snapshot re-read from the loader, never a diff. Signals that
// arrive while a subscriber is busy collapse into one reload.
type Hub struct {
	load Loader

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub(load Loader) *Hub {
	return &Hub{
		load: load,
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription is a registered live view listener.
type Subscription struct {
	hub      *Hub
	userID   string
	onChange func([]entities.FoodItem)

	dirty   chan struct{}
	done    chan struct{}
	once    sync.Once
	stopped atomic.Bool
}

// Subscribe registers onChange for userID and calls it with the current
// snapshot before returning. Later snapshots are delivered from a dedicated
// goroutine, one at a time.
func (h *Hub) Subscribe(ctx context.Context, userID string, onChange func([]entities.FoodItem)) (*Subscription, error) {
	sub := &Subscription{
		hub:      h,
		userID:   userID,
		onChange: onChange,
		dirty:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	// Register before the first read so a write racing the initial load
	// still marks the subscription dirty.
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	items, err := h.load(ctx, userID)
	if err != nil {
		h.remove(sub)
		return nil, err
	}
	onChange(items)

	go sub.run()
	return sub, nil
}

// Broadcast marks every subscription of userID dirty. It never blocks.
func (h *Hub) Broadcast(_ context.Context, userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[userID] {
		select {
		case sub.dirty <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions of userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs[sub.userID], sub)
	if len(h.subs[sub.userID]) == 0 {
		delete(h.subs, sub.userID)
	}
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.dirty:
			ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
			items, err := s.hub.load(ctx, s.userID)
			cancel()
			if err != nil {
				log.Errorf("live view: reload for user %s failed: %v", s.userID, err)
				continue
			}
			if s.stopped.Load() {
				return
			}
			s.onChange(items)
		}
	}
}

// Unsubscribe stops further callbacks. A callback already running is allowed
// to return. Safe to call more than once and from inside the callback.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.stopped.Store(true)
		close(s.done)
		s.hub.remove(s)
	})
}
