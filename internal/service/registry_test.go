package service

import (
	"testing"
	"time"

	"paynow-terminal-gateway/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(terminalID string) domain.TerminalSnapshot {
	return domain.NewSnapshot(terminalID, nil, time.Now().UTC())
}

func TestTerminalRegistry_AttachDeliversReplayFirst(t *testing.T) {
	reg := NewTerminalRegistry(4, zerolog.Nop())

	replay := snap("T-001")
	sub := reg.Attach("T-001", replay)
	reg.Publish(snap("T-001"))

	first := <-sub.Snapshots()
	assert.Equal(t, replay.AsOf, first.AsOf, "replay must be the first delivery")

	second := <-sub.Snapshots()
	assert.Equal(t, "T-001", second.TerminalID)
}

func TestTerminalRegistry_PublishReachesOnlyThatTerminal(t *testing.T) {
	reg := NewTerminalRegistry(4, zerolog.Nop())

	subA := reg.Attach("T-A", snap("T-A"))
	subB := reg.Attach("T-B", snap("T-B"))
	<-subA.Snapshots() // drain replays
	<-subB.Snapshots()

	reg.Publish(snap("T-A"))

	select {
	case got := <-subA.Snapshots():
		assert.Equal(t, "T-A", got.TerminalID)
	default:
		t.Fatal("subscriber of T-A received nothing")
	}
	select {
	case got := <-subB.Snapshots():
		t.Fatalf("subscriber of T-B received snapshot for %s", got.TerminalID)
	default:
	}
}

func TestTerminalRegistry_DetachClosesChannelIdempotently(t *testing.T) {
	reg := NewTerminalRegistry(4, zerolog.Nop())

	sub := reg.Attach("T-001", snap("T-001"))
	reg.Detach(sub)
	reg.Detach(sub) // second detach must not panic

	// Replay was enqueued before detach; after draining it the channel
	// reports closed.
	<-sub.Snapshots()
	_, open := <-sub.Snapshots()
	assert.False(t, open)
	assert.Equal(t, 0, reg.SubscriberCount("T-001"))
}

func TestTerminalRegistry_SlowSubscriberIsDropped(t *testing.T) {
	reg := NewTerminalRegistry(1, zerolog.Nop())

	sub := reg.Attach("T-001", snap("T-001")) // replay fills the 1-slot buffer
	require.Equal(t, 1, reg.SubscriberCount("T-001"))

	reg.Publish(snap("T-001")) // no room: subscriber is dropped

	assert.Equal(t, 0, reg.SubscriberCount("T-001"))
	<-sub.Snapshots() // replay still drains
	_, open := <-sub.Snapshots()
	assert.False(t, open, "dropped subscriber's channel must be closed")
}

func TestTerminalRegistry_FanOut(t *testing.T) {
	reg := NewTerminalRegistry(4, zerolog.Nop())

	subs := make([]struct {
		s <-chan domain.TerminalSnapshot
	}, 3)
	for i := range subs {
		sub := reg.Attach("T-001", snap("T-001"))
		<-sub.Snapshots()
		subs[i].s = sub.Snapshots()
	}

	reg.Publish(snap("T-001"))
	for i, sub := range subs {
		select {
		case got := <-sub.s:
			assert.Equal(t, "T-001", got.TerminalID)
		default:
			t.Fatalf("subscriber %d missed the publish", i)
		}
	}
}
