package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
	"mindful-trader/pkg/utils"
)

// User-visible texts substituted when analysis cannot produce a review.
const (
	FallbackText      = "Could not reach the AI coach. Please try again later."
	MissingKeyText    = "No API key configured. Set OPENAI_API_KEY or MINDFUL_API_KEY to enable the AI coach."
	EmptyFeedbackText = "Unable to generate feedback."
)

// MaxScore is the top of the execution score scale.
const MaxScore = 10

// Feedback is the coach's review of a single trade.
type Feedback struct {
	Text  string `json:"feedback"`
	Score int    `json:"score"`
}

// Analyzer reviews a point-in-time snapshot of a trade.
type Analyzer interface {
	Analyze(ctx context.Context, trade models.Trade) (Feedback, error)
}

// Fallback returns the feedback shown in place of a failed analysis.
func Fallback(err error) Feedback {
	if errors.Is(err, apperrors.ErrMissingAPIKey) {
		return Feedback{Text: MissingKeyText}
	}
	return Feedback{Text: FallbackText}
}

const reviewerPrompt = `You are an experienced institutional trading coach who specialises in price action and trading psychology. You review the execution of a developing discretionary futures trader. Be concise and specific. Be demanding, but end on something the trader can build on. Reply with a single JSON object of the form {"feedback": "<review>", "score": <integer 0-10>} and nothing else.`

// Analyze asks the model to review trade. The returned error is non-nil when
// no review could be obtained; callers substitute Fallback(err).
func (c *Client) Analyze(ctx context.Context, trade models.Trade) (Feedback, error) {
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	prompt := AnalysisPrompt(trade)
	if url, ok := imageURL(trade.ChartImage); ok {
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    url,
				Detail: openai.ImageURLDetailAuto,
			}},
		}
	} else {
		user.Content = prompt
	}

	content, err := c.complete(ctx, "analyze", []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: reviewerPrompt},
		user,
	}, true)
	if err != nil {
		return Feedback{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Feedback{}, apperrors.NewCoachError("analyze", apperrors.ErrNoResponse)
	}

	fb, err := ParseFeedback(content)
	if err != nil {
		return Feedback{}, apperrors.NewCoachError("analyze", err)
	}
	c.logger.Debug().Str("trade_id", trade.ID).Int("score", fb.Score).Msg("Trade analysed")
	return fb, nil
}

// AnalysisPrompt renders the review request for trade.
func AnalysisPrompt(t models.Trade) string {
	var b strings.Builder
	orNone := func(s, none string) string {
		if strings.TrimSpace(s) == "" {
			return none
		}
		return s
	}
	result := "still open"
	if t.PnLPoints != nil {
		result = utils.FormatPoints(*t.PnLPoints) + " points"
	}
	mindset := "calm and stable"
	if t.IsEmotional {
		mindset = "emotional, not settled"
	}

	b.WriteString("Trade details:\n")
	fmt.Fprintf(&b, "- Instrument: %s\n", t.Asset.Label())
	fmt.Fprintf(&b, "- Setup: %s\n", t.Strategy.Label())
	fmt.Fprintf(&b, "- Style: %s\n", t.Style)
	fmt.Fprintf(&b, "- Timeframe: %s\n", orNone(t.Timeframe, "not given"))
	fmt.Fprintf(&b, "- Entry bar: %s\n", orNone(t.EntryCandleNumber, "not given"))
	fmt.Fprintf(&b, "- Exit bar: %s\n", orNone(t.ExitCandleNumber, "open or not given"))
	fmt.Fprintf(&b, "- Direction: %s\n", t.Direction)
	fmt.Fprintf(&b, "- Order type: %s\n", t.OrderType)
	fmt.Fprintf(&b, "- Entry: %s\n", utils.FormatPrice(t.EntryPrice))
	fmt.Fprintf(&b, "- Stop loss: %s\n", utils.FormatPrice(t.StopLoss))
	fmt.Fprintf(&b, "- Take profit: %s\n", utils.FormatOptionalPrice(t.TakeProfit))
	fmt.Fprintf(&b, "- Exit: %s\n", utils.FormatOptionalPrice(t.ExitPrice))
	fmt.Fprintf(&b, "- Result: %s\n", result)
	fmt.Fprintf(&b, "- At a key level: %t\n", t.IsKeyLevel)
	fmt.Fprintf(&b, "- Market context (trader's words): %q\n", t.MarketContext)
	fmt.Fprintf(&b, "- Confidence: %d%%\n", t.Confidence)
	fmt.Fprintf(&b, "- Mindset before entry: %s\n", mindset)
	fmt.Fprintf(&b, "- Trader's notes: %q\n", orNone(t.UserNotes, "none"))
	b.WriteString(`
Review it:
1. Judge whether the setup fits the stated setup and style.
2. Assess the planned risk against the reward. If the trade is closed, judge whether the exit was reasonable given the bars and prices.
3. If a chart is attached, read the price action in it (reversals, breakouts, momentum).
4. Respond to the trader's own notes.
5. Score the execution from 0 to 10, where 10 is flawless.`)
	return b.String()
}

var fencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// ParseFeedback decodes the model's JSON reply. A missing or empty feedback
// text becomes EmptyFeedbackText; a non-numeric score becomes 0; numeric
// scores are rounded and clamped to 0..MaxScore.
func ParseFeedback(content string) (Feedback, error) {
	content = strings.TrimSpace(content)
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Feedback{}, fmt.Errorf("decoding coach reply: %w", err)
	}

	fb := Feedback{Text: EmptyFeedbackText}
	if s, ok := raw["feedback"].(string); ok && strings.TrimSpace(s) != "" {
		fb.Text = s
	}
	if n, ok := raw["score"].(float64); ok && !math.IsNaN(n) {
		n = math.Max(0, math.Min(MaxScore, n))
		fb.Score = int(math.Round(n))
	}
	return fb, nil
}

// ClampScore limits score to 0..MaxScore.
func ClampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > MaxScore:
		return MaxScore
	default:
		return score
	}
}

var dataURLPattern = regexp.MustCompile(`^data:([^;,]+);base64,(.+)$`)

// imageURL returns the chart as an inline image URL when it is a base64 data URL.
func imageURL(chart string) (string, bool) {
	if !dataURLPattern.MatchString(chart) {
		return "", false
	}
	return chart, true
}
