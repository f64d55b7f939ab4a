package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adultna/go-session-gateway/broadcast"
)

const (
	eventWriteWait = 10 * time.Second
	eventPongWait  = 60 * time.Second
	eventPingEvery = (eventPongWait * 9) / 10
)

// EventsHandler upgrades the connection to a websocket and bridges it onto
// the broadcast hub. The channel is bidirectional: every hub event is pushed
// to the tab, and a tab may send {"type":"LOGIN"} or {"type":"LOGOUT"} to
// publish to every other tab. Unknown event types are dropped.
func (s *Server) EventsHandler() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return s.config.GetAllowedOrigins().IsAllowedOrigin(origin)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		sub := s.hub.Subscribe()
		s.metrics.ConnectedClients.Inc()
		s.logger.Debug().Str("remote", r.RemoteAddr).Msg("event client connected")

		go s.eventWritePump(conn, sub)
		s.eventReadPump(conn, sub, r.RemoteAddr)
	}
}

// eventReadPump consumes inbound frames until the tab disconnects. It owns
// teardown for the connection.
func (s *Server) eventReadPump(conn *websocket.Conn, sub *broadcast.Subscription, remote string) {
	defer func() {
		sub.Close()
		conn.Close()
		s.metrics.ConnectedClients.Dec()
		s.logger.Debug().Str("remote", remote).Msg("event client disconnected")
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(eventPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventPongWait))
	})

	for {
		var event broadcast.Event
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Str("remote", remote).Msg("event client read error")
			}
			return
		}

		switch event.Type {
		case broadcast.EventLogin:
			s.hub.PublishLogin()
		case broadcast.EventLogout:
			s.hub.PublishLogout()
		default:
			s.logger.Warn().Str("type", string(event.Type)).Str("remote", remote).
				Msg("unknown event type dropped")
		}
	}
}

// eventWritePump pushes hub events and keepalive pings to the tab. It exits
// when the subscription is closed, which the read pump does on disconnect.
func (s *Server) eventWritePump(conn *websocket.Conn, sub *broadcast.Subscription) {
	ticker := time.NewTicker(eventPingEvery)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
