package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/stream"
)

func (s *Server) registerEventRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", s.EventSocket)
}

// emit publishes a change when the mutation succeeded, including changes that
// were kept in memory only.
func (s *Server) emit(kind stream.Kind, tradeID, date string, err error) {
	if err != nil && !apperrors.IsWarning(err) {
		return
	}
	s.events.Publish(stream.Event{Kind: kind, TradeID: tradeID, Date: date})
}

// EventSocket streams journal change events until the client goes away
// GET /api/events
func (s *Server) EventSocket(c *gin.Context) {
	// Subscribed before the handshake completes so no change after it is missed.
	id, events := s.events.Subscribe()
	defer s.events.Unsubscribe(id)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	s.logger.Debug().Str("subscriber", id).Msg("Event socket opened")

	// The client never sends data; reading detects the close and handles pongs.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
