package feed

import (
	"sync"

	"go.uber.org/zap"
)

const (
	defaultSubscriberBufferSize = 16
	defaultBroadcastBufferSize  = 64
)

// Subscriber receives the change stream for one room.
type Subscriber struct {
	room    string
	changes chan Change
	done    chan struct{}
}

// Changes returns the channel for receiving deltas.
func (s *Subscriber) Changes() <-chan Change {
	return s.changes
}

// Done returns a channel that is closed when the subscriber is unsubscribed.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Hub manages subscribers and broadcasts state changes.
// Uses 1 goroutine + channel management pattern for thread safety.
type Hub struct {
	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan Change
	stop       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once

	subscriberBufferSize int
	logger               *zap.SugaredLogger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithSubscriberBufferSize sets the buffer size for subscriber channels.
func WithSubscriberBufferSize(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.subscriberBufferSize = size
		}
	}
}

// WithLogger sets the logger for the Hub.
func WithLogger(logger *zap.SugaredLogger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub creates a new change-feed hub.
// Call Run() to start the hub's event loop.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		register:             make(chan *Subscriber),
		unregister:           make(chan *Subscriber),
		broadcast:            make(chan Change, defaultBroadcastBufferSize),
		stop:                 make(chan struct{}),
		stopped:              make(chan struct{}),
		subscriberBufferSize: defaultSubscriberBufferSize,
		logger:               zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's event loop.
// This method blocks until Stop() is called.
// Should be called in a goroutine: go hub.Run()
func (h *Hub) Run() {
	clients := make(map[*Subscriber]struct{})
	defer close(h.stopped)

	for {
		select {
		case sub := <-h.register:
			clients[sub] = struct{}{}
			h.logger.Debugw("subscriber registered", "room", sub.room, "count", len(clients))

		case sub := <-h.unregister:
			if _, ok := clients[sub]; ok {
				delete(clients, sub)
				close(sub.done)
				close(sub.changes)
				h.logger.Debugw("subscriber unregistered", "count", len(clients))
			}

		case c := <-h.broadcast:
			for sub := range clients {
				if sub.room != "" && sub.room != c.Row.Room {
					continue
				}
				select {
				case sub.changes <- c:
				default:
					// Channel full, drop the delta for this subscriber
					h.logger.Warnw("subscriber channel full, change dropped",
						"op", c.Op,
						"player_id", c.Row.PlayerID,
					)
				}
			}

		case <-h.stop:
			for sub := range clients {
				close(sub.done)
				close(sub.changes)
			}
			return
		}
	}
}

// Stop stops the hub's event loop.
// Blocks until the hub has fully stopped.
// Safe to call multiple times (idempotent).
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	<-h.stopped
}

// Subscribe creates a new subscriber for the given room. An empty room
// subscribes to every room. The caller must call Unsubscribe when done.
func (h *Hub) Subscribe(room string) *Subscriber {
	sub := &Subscriber{
		room:    room,
		changes: make(chan Change, h.subscriberBufferSize),
		done:    make(chan struct{}),
	}

	select {
	case h.register <- sub:
		return sub
	case <-h.stopped:
		// Hub is stopped, return a closed subscriber
		close(sub.done)
		close(sub.changes)
		return sub
	}
}

// Unsubscribe removes a subscriber.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	select {
	case h.unregister <- sub:
	case <-h.stopped:
	}
}

// Publish sends a change to all subscribers of its room.
// Non-blocking: if the broadcast channel is full, the change is dropped.
func (h *Hub) Publish(c Change) {
	select {
	case h.broadcast <- c:
	case <-h.stopped:
	default:
		h.logger.Warnw("broadcast channel full, change dropped",
			"op", c.Op,
			"player_id", c.Row.PlayerID,
		)
	}
}
