package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
	"mindful-trader/pkg/response"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 16 << 10
)

// ChatRequest is the body of POST /api/chat and of websocket frames sent by
// the client.
type ChatRequest struct {
	Text string `json:"text"`
}

// ChatFrame is a websocket frame sent to the client. A failed exchange
// carries both the fallback reply and the error.
type ChatFrame struct {
	Message *models.ChatMessage `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     localOrigin,
}

// localOrigin accepts requests without an Origin header and pages served
// from the local machine.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func (s *Server) registerChatRoutes(rg *gin.RouterGroup) {
	rg.GET("/chat", s.ChatHistory)
	rg.POST("/chat", s.Chat)
	rg.GET("/chat/ws", s.ChatSocket)
}

// ChatHistory returns the messages of the journal's chat session
// GET /api/chat
func (s *Server) ChatHistory(c *gin.Context) {
	history := s.journal.ChatHistory()
	if history == nil {
		history = []models.ChatMessage{}
	}
	response.Success(c, history)
}

// Chat sends one message on the journal's chat session. A failed exchange
// still returns the fallback reply, with a warning code
// POST /api/chat
func (s *Server) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	reply, err := s.journal.Chat(c.Request.Context(), req.Text)
	switch {
	case err == nil:
		response.Success(c, reply)
	case reply.Text != "":
		response.Warning(c, http.StatusOK, reply, err.Error())
	default:
		s.fail(c, err)
	}
}

// ChatSocket holds a conversation over a websocket, one session per connection
// GET /api/chat/ws
func (s *Server) ChatSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	session := s.journal.NewChatSession()
	if session == nil {
		s.writeFrame(conn, ChatFrame{Error: apperrors.ErrMissingAPIKey.Error()})
		return
	}
	s.logger.Debug().Str("remote", c.Request.RemoteAddr).Msg("Chat socket opened")

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(conn, done)

	ctx := c.Request.Context()
	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("Chat socket closed unexpectedly")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		reply, err := session.Send(ctx, req.Text)
		frame := ChatFrame{}
		if reply.Text != "" {
			frame.Message = &reply
		}
		if err != nil {
			frame.Error = err.Error()
		}
		if err := s.writeFrame(conn, frame); err != nil {
			return
		}
	}
}

// writeFrame must only be called from the connection's reader goroutine.
func (s *Server) writeFrame(conn *websocket.Conn, frame ChatFrame) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(frame)
}

// pingLoop keeps the connection alive until done is closed.
func (s *Server) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
