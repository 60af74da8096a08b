// Package intake implements the two-step trade entry form: a mindset check
// that gates access to the trade details.
package intake

import (
	"strings"
	"time"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
	"mindful-trader/pkg/utils"
)

// Step is a wizard state.
type Step int

const (
	StepMindset Step = iota + 1
	StepDetails
	StepSubmitted
)

func (s Step) String() string {
	switch s {
	case StepMindset:
		return "mindset"
	case StepDetails:
		return "details"
	case StepSubmitted:
		return "submitted"
	}
	return "unknown"
}

// EmotionalWarning is shown when the trader reports being emotional.
const EmotionalWarning = "Warning: you said you are trading in an emotional state. Are you sure you want to take this trade? Stepping away from the screen is the better choice."

// Mindset is the pre-trade checklist.
type Mindset struct {
	// IsEmotional is nil until the question has been answered.
	IsEmotional   *bool        `json:"isEmotional"`
	MarketContext string       `json:"marketContext"`
	IsKeyLevel    bool         `json:"isKeyLevel"`
	Confidence    int          `json:"confidence"`
	Style         models.Style `json:"style"`
}

// Details is the trade entry as typed by the trader. Prices are raw text.
type Details struct {
	Date              string           `json:"date"`
	Asset             models.Asset     `json:"asset"`
	Timeframe         string           `json:"timeframe"`
	EntryCandleNumber string           `json:"entryCandleNumber"`
	Strategy          models.Strategy  `json:"strategy"`
	OrderType         models.OrderType `json:"orderType"`
	Direction         models.Direction `json:"direction"`
	EntryPrice        string           `json:"entryPrice"`
	StopLoss          string           `json:"stopLoss"`
	TakeProfit        string           `json:"takeProfit"`
	ChartImage        string           `json:"chartImage"`

	// Closed marks a trade entered after the fact, with its exit.
	Closed           bool   `json:"closed"`
	ExitPrice        string `json:"exitPrice"`
	ExitCandleNumber string `json:"exitCandleNumber"`
}

// Wizard is the intake state machine. It is not safe for concurrent use.
type Wizard struct {
	step         Step
	mindset      Mindset
	details      Details
	acknowledged bool
}

// New returns a wizard at the mindset step with the form defaults, dated date.
func New(date string) *Wizard {
	return &Wizard{
		step: StepMindset,
		mindset: Mindset{
			Confidence: 50,
			Style:      models.StyleScalp,
		},
		details: Details{
			Date:      date,
			Asset:     models.AssetES,
			Timeframe: "1m",
			Strategy:  models.StrategyTrendFollow,
			OrderType: models.OrderTypeMarket,
			Direction: models.DirectionLong,
		},
	}
}

// WithTimeframe overrides the default timeframe label.
func (w *Wizard) WithTimeframe(tf string) *Wizard {
	if tf != "" {
		w.details.Timeframe = tf
	}
	return w
}

// Step returns the current state.
func (w *Wizard) Step() Step { return w.step }

// Mindset returns the checklist as entered so far.
func (w *Wizard) Mindset() Mindset { return w.mindset }

// Details returns the trade details as entered so far.
func (w *Wizard) Details() Details { return w.details }

// SetMindset replaces the checklist answers. Changing the emotional answer
// withdraws an earlier acknowledgement.
func (w *Wizard) SetMindset(m Mindset) {
	if !sameAnswer(w.mindset.IsEmotional, m.IsEmotional) {
		w.acknowledged = false
	}
	w.mindset = m
}

// SetDetails replaces the trade details.
func (w *Wizard) SetDetails(d Details) {
	w.details = d
}

// AcknowledgeEmotionalRisk records the trader's explicit decision to trade
// despite reporting an emotional state.
func (w *Wizard) AcknowledgeEmotionalRisk() {
	w.acknowledged = true
}

// NeedsAcknowledgement reports whether Next will refuse until the emotional
// risk is acknowledged.
func (w *Wizard) NeedsAcknowledgement() bool {
	e := w.mindset.IsEmotional
	return e != nil && *e && !w.acknowledged
}

// Next advances from the mindset step to the details step.
func (w *Wizard) Next() error {
	if w.step != StepMindset {
		return apperrors.NewValidationError("step", w.step.String(), "not at the mindset step")
	}
	m := w.mindset
	if m.IsEmotional == nil {
		return apperrors.NewValidationError("isEmotional", nil, "answer the emotional check question")
	}
	if strings.TrimSpace(m.MarketContext) == "" {
		return apperrors.NewValidationError("marketContext", nil, "describe the market context")
	}
	if m.Confidence < 0 || m.Confidence > 100 {
		return apperrors.NewValidationError("confidence", m.Confidence, "must be between 0 and 100")
	}
	if !m.Style.Valid() {
		return apperrors.NewValidationError("style", m.Style, "unknown style")
	}
	if w.NeedsAcknowledgement() {
		return apperrors.ErrEmotionalOverride
	}
	w.step = StepDetails
	return nil
}

// Back returns from the details step to the mindset step, keeping all input.
func (w *Wizard) Back() {
	if w.step == StepDetails {
		w.step = StepMindset
	}
}

// Submit validates the details and returns the trade. The id and creation
// time are left for the journal to assign. On error the wizard is unchanged
// and no trade is produced.
func (w *Wizard) Submit() (models.Trade, error) {
	if w.step != StepDetails {
		return models.Trade{}, apperrors.NewValidationError("step", w.step.String(), "not at the details step")
	}
	d := w.details

	if _, err := time.Parse(models.DateLayout, d.Date); err != nil {
		return models.Trade{}, apperrors.NewValidationError("date", d.Date, "must be YYYY-MM-DD")
	}
	entry, err := requiredPrice("entryPrice", d.EntryPrice)
	if err != nil {
		return models.Trade{}, err
	}
	stop, err := requiredPrice("stopLoss", d.StopLoss)
	if err != nil {
		return models.Trade{}, err
	}
	tp, err := utils.ParsePrice(d.TakeProfit)
	if err != nil {
		return models.Trade{}, apperrors.NewValidationError("takeProfit", d.TakeProfit, err.Error())
	}
	exit, err := utils.ParsePrice(d.ExitPrice)
	if err != nil {
		return models.Trade{}, apperrors.NewValidationError("exitPrice", d.ExitPrice, err.Error())
	}
	if d.Closed && exit == nil {
		return models.Trade{}, apperrors.NewValidationError("exitPrice", nil, "enter the exit price of a closed trade")
	}

	for _, check := range []struct {
		field string
		value any
		ok    bool
	}{
		{"asset", d.Asset, d.Asset.Valid()},
		{"strategy", d.Strategy, d.Strategy.Valid()},
		{"orderType", d.OrderType, d.OrderType.Valid()},
		{"direction", d.Direction, d.Direction.Valid()},
	} {
		if !check.ok {
			return models.Trade{}, apperrors.NewValidationError(check.field, check.value, "unknown value")
		}
	}
	if d.ChartImage != "" && !strings.HasPrefix(d.ChartImage, "data:") {
		return models.Trade{}, apperrors.NewValidationError("chartImage", nil, "must be a data URL")
	}

	t := models.Trade{
		Date:              d.Date,
		IsEmotional:       *w.mindset.IsEmotional,
		MarketContext:     strings.TrimSpace(w.mindset.MarketContext),
		IsKeyLevel:        w.mindset.IsKeyLevel,
		Confidence:        w.mindset.Confidence,
		Style:             w.mindset.Style,
		Asset:             d.Asset,
		Timeframe:         d.Timeframe,
		EntryCandleNumber: d.EntryCandleNumber,
		Strategy:          d.Strategy,
		OrderType:         d.OrderType,
		Direction:         d.Direction,
		EntryPrice:        *entry,
		StopLoss:          *stop,
		TakeProfit:        tp,
		Status:            models.StatusOpen,
		ChartImage:        d.ChartImage,
	}
	if d.Closed {
		t.Status = models.StatusClosed
		t.ExitPrice = exit
		t.ExitCandleNumber = d.ExitCandleNumber
		t.PnLPoints = models.Float(models.PnLPoints(*entry, *exit, d.Direction))
	}

	w.step = StepSubmitted
	return t, nil
}

func requiredPrice(field, raw string) (*float64, error) {
	p, err := utils.ParsePrice(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(field, raw, err.Error())
	}
	if p == nil {
		return nil, apperrors.NewValidationError(field, nil, "entry and stop-loss prices are required")
	}
	return p, nil
}

func sameAnswer(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
