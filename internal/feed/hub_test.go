package feed

import (
	"testing"
	"time"

	"github.com/qrparty/partyroom/internal/party"
)

func change(op Op, playerID, room string) Change {
	return Change{
		Op: op,
		Row: party.StateRow{
			PlayerID: playerID,
			Room:     room,
			Pose:     party.PoseIdle,
			Item:     party.ItemNone,
		},
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe("main")
	if sub == nil {
		t.Fatal("Subscribe returned nil")
	}

	select {
	case <-sub.Done():
		t.Error("Done channel should not be closed")
	default:
	}

	hub.Unsubscribe(sub)

	select {
	case <-sub.Done():
		// Expected
	case <-time.After(100 * time.Millisecond):
		t.Error("Done channel should be closed after unsubscribe")
	}
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe("main")
	defer hub.Unsubscribe(sub)

	hub.Publish(change(OpInsert, "p1", "main"))

	select {
	case received := <-sub.Changes():
		if received.Op != OpInsert || received.Row.PlayerID != "p1" {
			t.Errorf("got %+v, want INSERT for p1", received)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for change")
	}
}

func TestHub_RoomFiltering(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	mainSub := hub.Subscribe("main")
	defer hub.Unsubscribe(mainSub)
	loungeSub := hub.Subscribe("lounge")
	defer hub.Unsubscribe(loungeSub)
	allSub := hub.Subscribe("")
	defer hub.Unsubscribe(allSub)

	hub.Publish(change(OpUpdate, "p1", "lounge"))

	select {
	case received := <-loungeSub.Changes():
		if received.Row.Room != "lounge" {
			t.Errorf("lounge subscriber got room %q", received.Row.Room)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("lounge subscriber should receive the change")
	}

	select {
	case received := <-allSub.Changes():
		if received.Row.PlayerID != "p1" {
			t.Errorf("all-rooms subscriber got %+v", received)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("all-rooms subscriber should receive the change")
	}

	select {
	case received := <-mainSub.Changes():
		t.Errorf("main subscriber should not receive lounge change, got %+v", received)
	case <-time.After(50 * time.Millisecond):
		// Expected
	}
}

func TestHub_PublishToMultipleSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	const numSubscribers = 5
	subs := make([]*Subscriber, numSubscribers)
	for i := 0; i < numSubscribers; i++ {
		subs[i] = hub.Subscribe("main")
	}
	defer func() {
		for _, sub := range subs {
			hub.Unsubscribe(sub)
		}
	}()

	hub.Publish(change(OpDelete, "p9", "main"))

	for i, sub := range subs {
		select {
		case received := <-sub.Changes():
			if received.Op != OpDelete {
				t.Errorf("subscriber %d got op %q, want DELETE", i, received.Op)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d timed out", i)
		}
	}
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	sub := hub.Subscribe("main")
	hub.Stop()

	select {
	case <-sub.Done():
		// Expected
	case <-time.After(100 * time.Millisecond):
		t.Error("Done should be closed after Stop")
	}

	// Idempotent
	hub.Stop()

	// Subscribe after stop returns a closed subscriber instead of
	// blocking.
	late := hub.Subscribe("main")
	select {
	case <-late.Done():
	case <-time.After(100 * time.Millisecond):
		t.Error("late subscriber should be closed immediately")
	}
}
