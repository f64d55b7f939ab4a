package broadcast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adultna/go-session-gateway/broadcast"
)

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	hub := broadcast.NewHub()
	defer hub.Close()

	tabA := hub.Subscribe()
	tabB := hub.Subscribe()
	require.Equal(t, 2, hub.Subscribers())

	hub.PublishLogout()

	require.Equal(t, broadcast.EventLogout, (<-tabA.C).Type)
	require.Equal(t, broadcast.EventLogout, (<-tabB.C).Type)
}

func TestHub_EventsArriveInPublishOrder(t *testing.T) {
	hub := broadcast.NewHub()
	defer hub.Close()

	sub := hub.Subscribe()
	hub.PublishLogin()
	hub.PublishLogout()
	hub.PublishLogin()

	require.Equal(t, broadcast.EventLogin, (<-sub.C).Type)
	require.Equal(t, broadcast.EventLogout, (<-sub.C).Type)
	require.Equal(t, broadcast.EventLogin, (<-sub.C).Type)
}

func TestHub_PublishWithNoSubscribersIsNoOp(t *testing.T) {
	hub := broadcast.NewHub()
	defer hub.Close()

	hub.PublishLogout() // must not panic or block
	require.Equal(t, 0, hub.Subscribers())
}

func TestHub_ClosedSubscriptionStopsReceiving(t *testing.T) {
	hub := broadcast.NewHub()
	defer hub.Close()

	sub := hub.Subscribe()
	sub.Close()
	require.Equal(t, 0, hub.Subscribers())

	hub.PublishLogout()

	_, open := <-sub.C
	require.False(t, open)

	// Closing twice is a no-op.
	sub.Close()
}

func TestHub_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	hub := broadcast.NewHub()
	defer hub.Close()

	sub := hub.Subscribe()
	// Overfill the buffer; Publish must never block even though nothing
	// drains the channel.
	for i := 0; i < 20; i++ {
		hub.PublishLogin()
	}
	require.NotEmpty(t, sub.C)
}

func TestHub_NilHubDegradesToNoOps(t *testing.T) {
	var hub *broadcast.Hub

	hub.PublishLogin()
	hub.PublishLogout()
	hub.Close()
	require.Equal(t, 0, hub.Subscribers())

	sub := hub.Subscribe()
	require.NotNil(t, sub)
	sub.Close()
}

func TestHub_CloseClosesSubscriberChannels(t *testing.T) {
	hub := broadcast.NewHub()
	sub := hub.Subscribe()

	hub.Close()

	_, open := <-sub.C
	require.False(t, open)

	// Subscribing after close yields a closed channel.
	late := hub.Subscribe()
	_, open = <-late.C
	require.False(t, open)
}
