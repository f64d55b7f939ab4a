package gateway

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/adultna/go-session-gateway/broadcast"
)

func dialEvents(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + RouteAPIEvents
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) broadcast.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event broadcast.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestEventsHandler(t *testing.T) {
	srv, _ := newTestServer(t)
	server := httptest.NewServer(srv)
	defer server.Close()

	t.Run("hub events reach connected clients", func(t *testing.T) {
		conn := dialEvents(t, server)
		waitForSubscribers(t, srv.hub, 1)

		srv.hub.PublishLogout()
		require.Equal(t, broadcast.EventLogout, readEvent(t, conn).Type)
	})

	t.Run("a client event fans out to other clients", func(t *testing.T) {
		first := dialEvents(t, server)
		second := dialEvents(t, server)
		waitForSubscribers(t, srv.hub, 2)

		require.NoError(t, first.WriteJSON(broadcast.Event{Type: broadcast.EventLogin}))

		require.Equal(t, broadcast.EventLogin, readEvent(t, first).Type)
		require.Equal(t, broadcast.EventLogin, readEvent(t, second).Type)
	})

	t.Run("unknown event types are dropped", func(t *testing.T) {
		conn := dialEvents(t, server)
		waitForSubscribers(t, srv.hub, 1)

		require.NoError(t, conn.WriteJSON(broadcast.Event{Type: "SHRUG"}))
		srv.hub.PublishLogin()

		// The unknown frame produced nothing; the next event delivered is
		// the hub's own.
		require.Equal(t, broadcast.EventLogin, readEvent(t, conn).Type)
	})
}

func waitForSubscribers(t *testing.T, hub *broadcast.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() < want {
		if time.Now().After(deadline) {
			t.Fatalf("never reached %d subscribers", want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
