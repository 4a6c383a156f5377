package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/qrparty/partyroom/internal/feed"
)

// FeedConn is a live subscription to a room's change feed. Changes arrive
// on a channel that closes when the connection drops or Close is called.
type FeedConn struct {
	changes   chan feed.Change
	done      chan struct{}
	closeOnce sync.Once
	closeFn   func() error
}

// Changes returns the delta channel.
func (f *FeedConn) Changes() <-chan feed.Change {
	return f.changes
}

// Close tears down the subscription. Safe to call multiple times. The
// done channel releases a reader mid-send; closing the socket alone only
// reaches a reader parked in ReadJSON.
func (f *FeedConn) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		err = f.closeFn()
	})
	return err
}

// SubscribeFeed opens the WebSocket change feed for a room.
func (c *Client) SubscribeFeed(ctx context.Context, room string) (*FeedConn, error) {
	wsURL, err := feedURL(c.baseURL, room)
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	fc := &FeedConn{
		changes: make(chan feed.Change, 16),
		done:    make(chan struct{}),
		closeFn: conn.Close,
	}

	go func() {
		defer close(fc.changes)
		defer conn.Close()
		for {
			var change feed.Change
			if err := conn.ReadJSON(&change); err != nil {
				c.logger.Debugw("feed closed", "error", err)
				return
			}
			select {
			case fc.changes <- change:
			case <-fc.done:
				return
			}
		}
	}()

	return fc, nil
}

func feedURL(baseURL, room string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/feed"
	q := u.Query()
	q.Set("table", "player_state")
	q.Set("room", room)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
