package coach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
	"mindful-trader/internal/resilience"
)

// fakeAPI serves /v1/chat/completions with canned replies.
type fakeAPI struct {
	mu       sync.Mutex
	status   int
	replies  []string
	requests []openai.ChatCompletionRequest
	calls    atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	var req openai.ChatCompletionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	status := f.status
	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"request rejected","type":"invalid_request_error"}}`))
		return
	}
	_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		ID:    "cmpl-1",
		Model: "test-model",
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
		}},
	})
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		APIKey:      "test-key",
		Model:       "test-model",
		BaseURL:     srv.URL + "/v1",
		MaxAttempts: 2,
	}, zerolog.Nop())
	c.retry.InitialDelay = time.Millisecond
	return c
}

func sampleTrade() models.Trade {
	return models.Trade{
		ID:            "t1",
		Asset:         models.AssetNQ,
		Strategy:      models.StrategyBreakout,
		Style:         models.StyleScalp,
		Direction:     models.DirectionShort,
		EntryPrice:    18000,
		StopLoss:      18010,
		Status:        models.StatusClosed,
		ExitPrice:     models.Float(17990),
		PnLPoints:     models.Float(10),
		MarketContext: "failed breakout above overnight high",
		Confidence:    70,
	}
}

func TestAnalyzeParsesReply(t *testing.T) {
	api := &fakeAPI{replies: []string{`{"feedback":"Clean short.","score":8}`}}
	c := newTestClient(t, api)

	fb, err := c.Analyze(context.Background(), sampleTrade())
	require.NoError(t, err)
	assert.Equal(t, Feedback{Text: "Clean short.", Score: 8}, fb)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, "test-model", req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	assert.Contains(t, req.Messages[1].Content, "failed breakout above overnight high")
}

func TestAnalyzeAttachesChartImage(t *testing.T) {
	api := &fakeAPI{replies: []string{`{"feedback":"ok","score":5}`}}
	c := newTestClient(t, api)

	tr := sampleTrade()
	tr.ChartImage = "data:image/png;base64,iVBORw0KGgo="
	_, err := c.Analyze(context.Background(), tr)
	require.NoError(t, err)

	parts := api.requests[0].Messages[1].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, parts[1].Type)
	assert.Equal(t, tr.ChartImage, parts[1].ImageURL.URL)
}

func TestAnalyzeReportsEmptyReply(t *testing.T) {
	api := &fakeAPI{replies: []string{"", `{"feedback":"second try","score":3}`}}
	c := newTestClient(t, api)

	_, err := c.Analyze(context.Background(), sampleTrade())
	assert.ErrorIs(t, err, apperrors.ErrNoResponse)

	fb, err := c.Analyze(context.Background(), sampleTrade())
	require.NoError(t, err)
	assert.Equal(t, "second try", fb.Text)
}

func TestAnalyzeRetriesServerErrors(t *testing.T) {
	api := &fakeAPI{status: http.StatusInternalServerError}
	c := newTestClient(t, api)

	_, err := c.Analyze(context.Background(), sampleTrade())
	assert.Error(t, err)
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestAnalyzeDoesNotRetryAuthErrors(t *testing.T) {
	api := &fakeAPI{status: http.StatusUnauthorized}
	c := newTestClient(t, api)

	_, err := c.Analyze(context.Background(), sampleTrade())
	var ce *apperrors.CoachError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestAnalyzeShortCircuitsAfterRepeatedFailures(t *testing.T) {
	api := &fakeAPI{status: http.StatusBadGateway}
	c := newTestClient(t, api)
	c.retry.MaxAttempts = 1

	for i := 0; i < 3; i++ {
		_, err := c.Analyze(context.Background(), sampleTrade())
		require.Error(t, err)
	}
	require.Equal(t, int32(3), api.calls.Load())

	_, err := c.Analyze(context.Background(), sampleTrade())
	assert.ErrorIs(t, err, resilience.ErrOpen)
	assert.Equal(t, int32(3), api.calls.Load())
	assert.Equal(t, Feedback{Text: FallbackText}, Fallback(err))
}

func TestAnalyzeWithoutKey(t *testing.T) {
	c := NewClient(Config{MaxAttempts: 1}, zerolog.Nop())
	assert.False(t, c.Ready())

	_, err := c.Analyze(context.Background(), sampleTrade())
	assert.ErrorIs(t, err, apperrors.ErrMissingAPIKey)
	assert.Equal(t, Feedback{Text: MissingKeyText}, Fallback(err))
	assert.Equal(t, Feedback{Text: FallbackText}, Fallback(apperrors.ErrNoResponse))
}

func TestParseFeedback(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Feedback
	}{
		{"plain", `{"feedback":"good","score":7}`, Feedback{"good", 7}},
		{"fenced", "```json\n{\"feedback\":\"good\",\"score\":7}\n```", Feedback{"good", 7}},
		{"clamped high", `{"feedback":"x","score":14}`, Feedback{"x", 10}},
		{"clamped low", `{"feedback":"x","score":-2}`, Feedback{"x", 0}},
		{"huge", `{"feedback":"x","score":1e20}`, Feedback{"x", 10}},
		{"huge negative", `{"feedback":"x","score":-1e20}`, Feedback{"x", 0}},
		{"rounded", `{"feedback":"x","score":6.6}`, Feedback{"x", 7}},
		{"string score", `{"feedback":"x","score":"9"}`, Feedback{"x", 0}},
		{"missing feedback", `{"score":4}`, Feedback{EmptyFeedbackText, 4}},
		{"blank feedback", `{"feedback":"  ","score":4}`, Feedback{EmptyFeedbackText, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFeedback(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFeedback("not json")
	assert.Error(t, err)
}

func TestAnalysisPromptMentionsOpenTrade(t *testing.T) {
	tr := sampleTrade()
	tr.Status = models.StatusOpen
	tr.ExitPrice = nil
	tr.PnLPoints = nil
	tr.IsEmotional = true

	p := AnalysisPrompt(tr)
	assert.Contains(t, p, "Result: still open")
	assert.Contains(t, p, "emotional")
	assert.Contains(t, p, "NQ (Nasdaq 100)")
}

// stubCompleter blocks until release is closed.
type stubCompleter struct {
	release chan struct{}
	reply   string
	err     error
	seen    [][]openai.ChatCompletionMessage
}

func (s *stubCompleter) complete(_ context.Context, _ string, msgs []openai.ChatCompletionMessage, _ bool) (string, error) {
	if s.release != nil {
		<-s.release
	}
	s.seen = append(s.seen, msgs)
	return s.reply, s.err
}

func TestSessionKeepsHistory(t *testing.T) {
	stub := &stubCompleter{reply: "Look for a second entry."}
	s := newSession(stub, time.Now)

	msg, err := s.Send(context.Background(), "  how do I trade a wedge?  ")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModel, msg.Role)
	assert.Equal(t, "Look for a second entry.", msg.Text)

	_, err = s.Send(context.Background(), "and the stop?")
	require.NoError(t, err)

	second := stub.seen[1]
	require.Len(t, second, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, second[0].Role)
	assert.Equal(t, "how do I trade a wedge?", second[1].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, second[2].Role)
	assert.Len(t, s.Messages(), 4)
}

func TestSessionRejectsBlankAndBusy(t *testing.T) {
	stub := &stubCompleter{release: make(chan struct{}), reply: "ok"}
	s := newSession(stub, time.Now)

	_, err := s.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Send(context.Background(), "first")
	}()
	require.Eventually(t, s.Busy, time.Second, time.Millisecond)

	_, err = s.Send(context.Background(), "second")
	assert.ErrorIs(t, err, apperrors.ErrSessionBusy)

	close(stub.release)
	<-done
	assert.False(t, s.Busy())
	assert.Len(t, s.Messages(), 2)
}

func TestSessionFailureAppendsFallback(t *testing.T) {
	stub := &stubCompleter{err: apperrors.NewCoachError("chat", apperrors.ErrNoResponse)}
	s := newSession(stub, time.Now)

	msg, err := s.Send(context.Background(), "hello")
	assert.Error(t, err)
	assert.Equal(t, ChatFallbackText, msg.Text)

	stub.err = nil
	stub.reply = ""
	msg, err = s.Send(context.Background(), "hello again")
	require.NoError(t, err)
	assert.Equal(t, EmptyReplyText, msg.Text)

	// The failed exchange is not part of the context sent to the model.
	assert.Len(t, stub.seen[1], 2)
}
