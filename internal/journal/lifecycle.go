package journal

import (
	"math"
	"strings"
	"time"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
)

// Close records the exit of an open trade. A nil exitPrice refuses the
// transition and returns the trade unchanged with errors.ErrExitPriceRequired.
// Closing a closed trade is refused the same way.
func Close(trade models.Trade, exitPrice *float64, exitCandle, notes string) (models.Trade, error) {
	if trade.IsClosed() {
		return trade, apperrors.NewValidationError("status", trade.Status, "trade is already closed; edit the exit price instead")
	}
	if exitPrice == nil {
		return trade, apperrors.ErrExitPriceRequired
	}
	if !finite(*exitPrice) {
		return trade, apperrors.NewValidationError("exitPrice", *exitPrice, "must be a number")
	}

	t := trade.Clone()
	t.Status = models.StatusClosed
	t.ExitPrice = models.Float(*exitPrice)
	t.ExitCandleNumber = exitCandle
	t.UserNotes = notes
	t.PnLPoints = models.Float(models.PnLPoints(t.EntryPrice, *exitPrice, t.Direction))
	return t, nil
}

// Edit carries a partial update. Nil fields are left untouched.
type Edit struct {
	Date              *string           `json:"date,omitempty"`
	EntryPrice        *float64          `json:"entryPrice,omitempty"`
	StopLoss          *float64          `json:"stopLoss,omitempty"`
	TakeProfit        *float64          `json:"takeProfit,omitempty"`
	ClearTakeProfit   bool              `json:"clearTakeProfit,omitempty"`
	ExitPrice         *float64          `json:"exitPrice,omitempty"`
	Direction         *models.Direction `json:"direction,omitempty"`
	Strategy          *models.Strategy  `json:"strategy,omitempty"`
	Style             *models.Style     `json:"style,omitempty"`
	EntryCandleNumber *string           `json:"entryCandleNumber,omitempty"`
	ExitCandleNumber  *string           `json:"exitCandleNumber,omitempty"`
	MarketContext     *string           `json:"marketContext,omitempty"`
	IsEmotional       *bool             `json:"isEmotional,omitempty"`
	Confidence        *int              `json:"confidence,omitempty"`
	ChartImage        *string           `json:"chartImage,omitempty"`
}

// Empty reports whether e changes nothing.
func (e Edit) Empty() bool {
	return e == Edit{}
}

// ApplyEdit returns trade with e applied. When the edited trade is closed and
// has an exit price, its pnl is recomputed from the resulting values. An invalid
// field rejects the whole edit.
func ApplyEdit(trade models.Trade, e Edit) (models.Trade, error) {
	if err := e.validate(trade); err != nil {
		return trade, err
	}

	t := trade.Clone()
	if e.Date != nil {
		t.Date = *e.Date
	}
	if e.EntryPrice != nil {
		t.EntryPrice = *e.EntryPrice
	}
	if e.StopLoss != nil {
		t.StopLoss = *e.StopLoss
	}
	if e.ClearTakeProfit {
		t.TakeProfit = nil
	} else if e.TakeProfit != nil {
		t.TakeProfit = models.Float(*e.TakeProfit)
	}
	if e.ExitPrice != nil {
		t.ExitPrice = models.Float(*e.ExitPrice)
	}
	if e.Direction != nil {
		t.Direction = *e.Direction
	}
	if e.Strategy != nil {
		t.Strategy = *e.Strategy
	}
	if e.Style != nil {
		t.Style = *e.Style
	}
	if e.EntryCandleNumber != nil {
		t.EntryCandleNumber = *e.EntryCandleNumber
	}
	if e.ExitCandleNumber != nil {
		t.ExitCandleNumber = *e.ExitCandleNumber
	}
	if e.MarketContext != nil {
		t.MarketContext = *e.MarketContext
	}
	if e.IsEmotional != nil {
		t.IsEmotional = *e.IsEmotional
	}
	if e.Confidence != nil {
		t.Confidence = *e.Confidence
	}
	if e.ChartImage != nil {
		t.ChartImage = *e.ChartImage
	}

	if t.IsClosed() && t.ExitPrice != nil {
		t.PnLPoints = models.Float(models.PnLPoints(t.EntryPrice, *t.ExitPrice, t.Direction))
	}
	return t, nil
}

func (e Edit) validate(trade models.Trade) error {
	if e.Date != nil {
		if _, err := time.Parse(models.DateLayout, *e.Date); err != nil {
			return apperrors.NewValidationError("date", *e.Date, "must be YYYY-MM-DD")
		}
	}
	prices := []struct {
		field string
		v     *float64
	}{
		{"entryPrice", e.EntryPrice},
		{"stopLoss", e.StopLoss},
		{"takeProfit", e.TakeProfit},
		{"exitPrice", e.ExitPrice},
	}
	for _, p := range prices {
		if p.v != nil && !finite(*p.v) {
			return apperrors.NewValidationError(p.field, *p.v, "must be a number")
		}
	}
	if e.ExitPrice != nil && !trade.IsClosed() {
		return apperrors.NewValidationError("exitPrice", *e.ExitPrice, "close the trade to record an exit")
	}
	if e.Direction != nil && !e.Direction.Valid() {
		return apperrors.NewValidationError("direction", *e.Direction, "unknown direction")
	}
	if e.Strategy != nil && !e.Strategy.Valid() {
		return apperrors.NewValidationError("strategy", *e.Strategy, "unknown strategy")
	}
	if e.Style != nil && !e.Style.Valid() {
		return apperrors.NewValidationError("style", *e.Style, "unknown style")
	}
	if e.Confidence != nil && (*e.Confidence < 0 || *e.Confidence > 100) {
		return apperrors.NewValidationError("confidence", *e.Confidence, "must be between 0 and 100")
	}
	if e.ChartImage != nil && *e.ChartImage != "" && !strings.HasPrefix(*e.ChartImage, "data:") {
		return apperrors.NewValidationError("chartImage", nil, "must be a data URL")
	}
	return nil
}

// AttachFeedback sets the coach's review. No other field changes.
func AttachFeedback(trade models.Trade, feedback string, score int) models.Trade {
	t := trade.Clone()
	t.AIFeedback = feedback
	t.AIScore = models.Int(score)
	return t
}

// SetNotes replaces the trader's notes. No other field changes.
func SetNotes(trade models.Trade, notes string) models.Trade {
	t := trade.Clone()
	t.UserNotes = notes
	return t
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
