package coach

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sashabaranov/go-openai"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
)

// Texts shown as the model's turn when a chat exchange fails.
const (
	ChatFallbackText = "Sorry, something went wrong reaching the AI service. Please try again later."
	EmptyReplyText   = "Sorry, I couldn't generate a response."
)

const mentorPrompt = `You are a seasoned price action mentor in the tradition of Al Brooks and Steve Nison, with a working understanding of modern institutional order flow concepts (ICT/SMC).

Your role:
1. Answer questions about candlestick patterns, market structure (higher highs and higher lows), support and resistance, trend lines and channels.
2. Stay concise, professional and objective. Never give investment advice such as "buy now"; describe the technical picture instead, for example "this is a double bottom; a break of the neckline could offer a long".
3. Keep risk management and trading psychology in view. If the trader sounds impatient or is gambling, remind them gently.

Your areas of expertise: trend identification; reversal patterns (wedges, double tops and bottoms, head and shoulders); breakouts and pullbacks; bar signals (pin bar, engulfing, inside bar); reading market context.`

// completer is the part of Client a Session depends on.
type completer interface {
	complete(ctx context.Context, op string, messages []openai.ChatCompletionMessage, jsonMode bool) (string, error)
}

// Session is one open-ended coaching conversation. Exchanges are strictly
// sequential: a Send while another is in flight is refused.
type Session struct {
	api completer
	now func() time.Time

	mu       sync.Mutex
	busy     bool
	turns    []openai.ChatCompletionMessage // successful exchanges sent as context
	messages []models.ChatMessage           // everything shown to the trader
}

// NewSession starts a conversation with the mentor persona.
func (c *Client) NewSession() *Session {
	return newSession(c, time.Now)
}

func newSession(api completer, now func() time.Time) *Session {
	return &Session{
		api:   api,
		now:   now,
		turns: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: mentorPrompt}},
	}
}

// Send posts text and waits for the reply. Blank text is rejected with
// errors.ErrEmptyMessage and a concurrent call with errors.ErrSessionBusy,
// neither touching the history. Any other failure still appends a fallback
// reply, which is returned together with the error.
func (s *Session) Send(ctx context.Context, text string) (models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatMessage{}, apperrors.ErrEmptyMessage
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return models.ChatMessage{}, apperrors.ErrSessionBusy
	}
	s.busy = true
	s.messages = append(s.messages, s.message(models.RoleUser, text))
	request := append(append([]openai.ChatCompletionMessage(nil), s.turns...),
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})
	s.mu.Unlock()

	reply, err := s.api.complete(ctx, "chat", request, false)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if err != nil {
		text := ChatFallbackText
		if apperrors.Is(err, apperrors.ErrMissingAPIKey) {
			text = MissingKeyText
		}
		msg := s.message(models.RoleModel, text)
		s.messages = append(s.messages, msg)
		return msg, err
	}

	if strings.TrimSpace(reply) == "" {
		reply = EmptyReplyText
	}
	s.turns = append(request, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply})
	msg := s.message(models.RoleModel, reply)
	s.messages = append(s.messages, msg)
	return msg, nil
}

// Busy reports whether a reply is pending.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Messages returns a copy of the visible history, oldest first.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.messages...)
}

func (s *Session) message(role models.Role, text string) models.ChatMessage {
	return models.ChatMessage{
		ID:        ulid.Make().String(),
		Role:      role,
		Text:      text,
		Timestamp: s.now().UnixMilli(),
	}
}
