package backup

import (
	"io"

	"github.com/gocarina/gocsv"

	"mindful-trader/internal/models"
	"mindful-trader/pkg/utils"
)

// csvRow is the flat report layout of one trade.
type csvRow struct {
	ID                string `csv:"id"`
	Date              string `csv:"date"`
	Timestamp         int64  `csv:"timestamp"`
	Asset             string `csv:"asset"`
	Timeframe         string `csv:"timeframe"`
	Strategy          string `csv:"strategy"`
	Style             string `csv:"style"`
	OrderType         string `csv:"order_type"`
	Direction         string `csv:"direction"`
	Status            string `csv:"status"`
	EntryPrice        string `csv:"entry_price"`
	StopLoss          string `csv:"stop_loss"`
	TakeProfit        string `csv:"take_profit"`
	ExitPrice         string `csv:"exit_price"`
	PnLPoints         string `csv:"pnl_points"`
	EntryCandleNumber string `csv:"entry_candle"`
	ExitCandleNumber  string `csv:"exit_candle"`
	Emotional         bool   `csv:"emotional"`
	KeyLevel          bool   `csv:"key_level"`
	Confidence        int    `csv:"confidence"`
	MarketContext     string `csv:"market_context"`
	AIScore           string `csv:"ai_score"`
	AIFeedback        string `csv:"ai_feedback"`
	UserNotes         string `csv:"notes"`
}

func exportCSV(w io.Writer, trades []models.Trade) error {
	rows := make([]*csvRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, toRow(t))
	}
	return gocsv.Marshal(rows, w)
}

func toRow(t models.Trade) *csvRow {
	row := &csvRow{
		ID:                t.ID,
		Date:              t.Date,
		Timestamp:         t.Timestamp,
		Asset:             string(t.Asset),
		Timeframe:         t.Timeframe,
		Strategy:          string(t.Strategy),
		Style:             string(t.Style),
		OrderType:         string(t.OrderType),
		Direction:         string(t.Direction),
		Status:            string(t.Status),
		EntryPrice:        utils.FormatPrice(t.EntryPrice),
		StopLoss:          utils.FormatPrice(t.StopLoss),
		EntryCandleNumber: t.EntryCandleNumber,
		ExitCandleNumber:  t.ExitCandleNumber,
		Emotional:         t.IsEmotional,
		KeyLevel:          t.IsKeyLevel,
		Confidence:        t.Confidence,
		MarketContext:     t.MarketContext,
		AIFeedback:        t.AIFeedback,
		UserNotes:         t.UserNotes,
	}
	if t.TakeProfit != nil {
		row.TakeProfit = utils.FormatPrice(*t.TakeProfit)
	}
	if t.ExitPrice != nil {
		row.ExitPrice = utils.FormatPrice(*t.ExitPrice)
	}
	if t.PnLPoints != nil {
		row.PnLPoints = utils.FormatPrice(*t.PnLPoints)
	}
	if t.AIScore != nil {
		row.AIScore = utils.FormatPrice(float64(*t.AIScore))
	}
	return row
}
