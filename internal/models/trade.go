package models

import (
	"math"
	"time"
)

// DateLayout is the calendar date format used for Trade.Date.
const DateLayout = "2006-01-02"

// Trade represents one logged discretionary position from entry to optional exit.
type Trade struct {
	ID        string `json:"id" yaml:"id"`
	Date      string `json:"date" yaml:"date"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"` // Unix milliseconds

	// Pre-trade check
	IsEmotional   bool   `json:"isEmotional" yaml:"isEmotional"`
	MarketContext string `json:"marketContext" yaml:"marketContext"`
	IsKeyLevel    bool   `json:"isKeyLevel" yaml:"isKeyLevel"`
	Confidence    int    `json:"confidence" yaml:"confidence"` // 0-100
	Style         Style  `json:"style" yaml:"style"`

	// Trade details
	Asset             Asset     `json:"asset" yaml:"asset"`
	Timeframe         string    `json:"timeframe" yaml:"timeframe"`
	EntryCandleNumber string    `json:"entryCandleNumber,omitempty" yaml:"entryCandleNumber,omitempty"`
	Strategy          Strategy  `json:"strategy" yaml:"strategy"`
	OrderType         OrderType `json:"orderType" yaml:"orderType"`
	Direction         Direction `json:"direction" yaml:"direction"`
	EntryPrice        float64   `json:"entryPrice" yaml:"entryPrice"`
	StopLoss          float64   `json:"stopLoss" yaml:"stopLoss"`
	TakeProfit        *float64  `json:"takeProfit,omitempty" yaml:"takeProfit,omitempty"`

	// Execution
	Status           TradeStatus `json:"status" yaml:"status"`
	ExitPrice        *float64    `json:"exitPrice,omitempty" yaml:"exitPrice,omitempty"`
	ExitCandleNumber string      `json:"exitCandleNumber,omitempty" yaml:"exitCandleNumber,omitempty"`
	PnLPoints        *float64    `json:"pnlPoints,omitempty" yaml:"pnlPoints,omitempty"`

	// Media & AI
	ChartImage string `json:"chartImage,omitempty" yaml:"chartImage,omitempty"` // data URL
	AIFeedback string `json:"aiFeedback,omitempty" yaml:"aiFeedback,omitempty"`
	AIScore    *int   `json:"aiScore,omitempty" yaml:"aiScore,omitempty"` // 0-10
	UserNotes  string `json:"userNotes,omitempty" yaml:"userNotes,omitempty"`
}

// IsClosed reports whether the trade carries a realized outcome.
func (t Trade) IsClosed() bool {
	return t.Status == StatusClosed
}

// CreatedAt returns the creation instant.
func (t Trade) CreatedAt() time.Time {
	return time.UnixMilli(t.Timestamp)
}

// PnL returns the realized pnl, or zero when the trade has none.
func (t Trade) PnL() float64 {
	if t.PnLPoints == nil {
		return 0
	}
	return *t.PnLPoints
}

// Clone returns a deep copy so callers never share pointer fields.
func (t Trade) Clone() Trade {
	c := t
	c.TakeProfit = copyPtr(t.TakeProfit)
	c.ExitPrice = copyPtr(t.ExitPrice)
	c.PnLPoints = copyPtr(t.PnLPoints)
	c.AIScore = copyPtr(t.AIScore)
	return c
}

// Round2 rounds to two decimal places. Halves round toward positive
// infinity, so -0.125 becomes -0.12 and 0.125 becomes 0.13.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// PnLPoints computes realized profit/loss in price points.
func PnLPoints(entry, exit float64, dir Direction) float64 {
	return Round2((exit - entry) * dir.Multiplier())
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// DailyStats summarises the trades of one calendar date.
type DailyStats struct {
	Date        string   `json:"date"`
	Total       int      `json:"totalTrades"`
	ClosedCount int      `json:"closedCount"`
	ClosedIDs   []string `json:"closedIds"`
	Points      float64  `json:"totalPoints"`
	Wins        int      `json:"wins"`
	Losses      int      `json:"losses"`
	WinRate     int      `json:"winRate"` // percent
	Overtrading bool     `json:"overtrading"`
	Outcome     Outcome  `json:"outcome"`
}

// Outcome classifies a day by the sign of its points.
type Outcome string

const (
	OutcomeProfit Outcome = "PROFIT"
	OutcomeLoss   Outcome = "LOSS"
	OutcomeFlat   Outcome = "FLAT"
)
