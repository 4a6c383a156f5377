package client

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/qrparty/partyroom/internal/party"
)

// Session owns one player's live view of a room: the snapshot fetch, the
// feed subscription, and the single-threaded merge loop. Rendering code
// reads the roster; nothing here blocks an animation tick on network I/O.
type Session struct {
	client *Client
	roster *Roster
	room   string
	logger *zap.SugaredLogger

	playerID string

	inFlight    atomic.Bool
	backfilling atomic.Bool

	mu     sync.Mutex
	status string

	cancel context.CancelFunc
	done   chan struct{}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *zap.SugaredLogger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates a Session for the given room.
func NewSession(c *Client, room string, opts ...SessionOption) *Session {
	if room == "" {
		room = party.DefaultRoom
	}
	s := &Session{
		client: c,
		roster: NewRoster(nil),
		room:   room,
		logger: zap.NewNop().Sugar(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Roster returns the reconciled roster for rendering.
func (s *Session) Roster() *Roster {
	return s.roster
}

// PlayerID returns our own id, empty before Join.
func (s *Session) PlayerID() string {
	return s.playerID
}

// InFlight reports whether an action call is outstanding; the UI disables
// its trigger controls while true.
func (s *Session) InFlight() bool {
	return s.inFlight.Load()
}

// Status returns the last human-readable failure, empty when healthy.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
}

// Join registers with the server, remembering the returned id for
// subsequent triggers. Pass a previously stored id to rejoin.
func (s *Session) Join(ctx context.Context, name, existingID string) error {
	id, err := s.client.Join(ctx, name, existingID)
	if err != nil {
		s.setStatus("join failed: " + err.Error())
		return err
	}
	s.playerID = id
	s.setStatus("")
	return nil
}

// Start fetches the cold snapshot, subscribes to the change feed, and
// launches the merge loop. It blocks until the snapshot is loaded, so the
// caller can render immediately afterwards.
func (s *Session) Start(ctx context.Context) error {
	players, err := s.client.FetchPlayers(ctx)
	if err != nil {
		s.setStatus("snapshot failed: " + err.Error())
		return err
	}
	states, err := s.client.FetchRoomState(ctx, s.room)
	if err != nil {
		s.setStatus("snapshot failed: " + err.Error())
		return err
	}
	s.roster.Load(players, states)

	fc, err := s.client.SubscribeFeed(ctx, s.room)
	if err != nil {
		s.setStatus("feed failed: " + err.Error())
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx, fc)

	s.setStatus("")
	return nil
}

// run is the merge loop: deltas are applied one at a time, in arrival
// order. A dropped feed only stops roster updates; it never crashes the
// caller's render loop.
func (s *Session) run(ctx context.Context, fc *FeedConn) {
	defer close(s.done)
	defer fc.Close()

	for {
		select {
		case change, ok := <-fc.Changes():
			if !ok {
				s.setStatus("live updates disconnected")
				return
			}
			if s.roster.Apply(change) {
				s.backfillMeta(ctx)
			}

		case <-ctx.Done():
			return
		}
	}
}

// backfillMeta eagerly fetches identity metadata after a cold insert so
// placeholder names get resolved. Best effort, single flight.
func (s *Session) backfillMeta(ctx context.Context) {
	if !s.backfilling.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.backfilling.Store(false)
		players, err := s.client.FetchPlayers(ctx)
		if err != nil {
			s.logger.Debugw("metadata backfill failed", "error", err)
			return
		}
		s.roster.SetMeta(players)
	}()
}

// Trigger submits a coded action. Returns the applied patch for
// optimistic feedback. No retries: a failed trigger surfaces as an error
// and the caller decides.
func (s *Session) Trigger(ctx context.Context, code string) (party.Patch, error) {
	s.inFlight.Store(true)
	defer s.inFlight.Store(false)

	patch, err := s.client.Trigger(ctx, s.playerID, code)
	if err != nil {
		s.setStatus("action failed: " + err.Error())
		return party.Patch{}, err
	}
	s.setStatus("")
	return patch, nil
}

// MoveTo translates a finished drag into a move trigger.
func (s *Session) MoveTo(ctx context.Context, x, y float64) (party.Patch, error) {
	s.inFlight.Store(true)
	defer s.inFlight.Store(false)

	patch, err := s.client.MoveTo(ctx, s.playerID, x, y)
	if err != nil {
		s.setStatus("action failed: " + err.Error())
		return party.Patch{}, err
	}
	s.setStatus("")
	return patch, nil
}

// Stop unsubscribes from the feed and ends the merge loop. In-flight
// action calls are allowed to finish; their results are discarded.
func (s *Session) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}
