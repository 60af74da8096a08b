package cli

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"mindful-trader/internal/models"
	"mindful-trader/internal/stats"
	"mindful-trader/pkg/utils"
)

// maxChartBytes bounds attached chart screenshots.
const maxChartBytes = 4 << 20

// FormatPoints formats a pnl in points with sign.
func FormatPoints(points float64) string {
	return utils.FormatPoints(points) + " pts"
}

// FormatTimestamp formats a Unix millisecond timestamp as local clock time.
func FormatTimestamp(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("15:04:05")
}

// FormatDateLabel renders a journal date with its weekday.
func FormatDateLabel(date string) string {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Mon, 02 Jan 2006")
}

// TruncateString shortens s for table cells.
func TruncateString(s string, max int) string {
	return utils.Truncate(s, max)
}

// statusCell renders a trade's status, with its result when closed.
func (o *Output) statusCell(t models.Trade) string {
	if !t.IsClosed() {
		return o.Cyan("OPEN")
	}
	return o.FormatPoints(t.PnL())
}

// directionCell renders a direction in the conventional colors.
func (o *Output) directionCell(d models.Direction) string {
	if d == models.DirectionShort {
		return o.Red(string(d))
	}
	return o.Green(string(d))
}

// scoreCell renders an AI score out of ten.
func (o *Output) scoreCell(score *int) string {
	if score == nil {
		return "-"
	}
	s := strconv.Itoa(*score) + "/10"
	switch {
	case *score >= 8:
		return o.Green(s)
	case *score <= 4:
		return o.Red(s)
	}
	return o.Yellow(s)
}

// printTrade prints the full record of t.
func (o *Output) printTrade(t models.Trade) {
	o.Bold("%s %s %s  [%s]", t.Asset, t.Direction, t.Strategy.Label(), t.ID)
	o.Printf("  Date:        %s %s\n", t.Date, FormatTimestamp(t.Timestamp))
	o.Printf("  Style:       %s, %s chart, %s order\n", t.Style, t.Timeframe, t.OrderType)
	o.Printf("  Entry:       %s (bar %s)\n", utils.FormatPrice(t.EntryPrice), orDash(t.EntryCandleNumber))
	o.Printf("  Stop:        %s\n", utils.FormatPrice(t.StopLoss))
	o.Printf("  Target:      %s\n", utils.FormatOptionalPrice(t.TakeProfit))
	o.Printf("  Risk/Reward: %s\n", stats.FormatRiskReward(t))
	if t.IsClosed() {
		o.Printf("  Exit:        %s (bar %s)\n", utils.FormatOptionalPrice(t.ExitPrice), orDash(t.ExitCandleNumber))
		o.Printf("  Result:      %s\n", o.FormatPoints(t.PnL()))
	} else {
		o.Printf("  Status:      %s\n", o.Cyan("OPEN"))
	}
	o.Println()
	mindset := o.Green("calm")
	if t.IsEmotional {
		mindset = o.Red("emotional")
	}
	o.Printf("  Mindset:     %s, confidence %d%%, key level %t\n", mindset, t.Confidence, t.IsKeyLevel)
	o.Printf("  Context:     %s\n", orDash(t.MarketContext))
	if t.UserNotes != "" {
		o.Printf("  Notes:       %s\n", t.UserNotes)
	}
	if t.ChartImage != "" {
		o.Printf("  Chart:       %s\n", o.DimText(fmt.Sprintf("attached (%d bytes)", len(t.ChartImage))))
	}
	if t.AIFeedback != "" {
		o.Println()
		o.Printf("  AI coach %s\n", o.scoreCell(t.AIScore))
		o.Printf("  %s\n", t.AIFeedback)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// imageDataURL reads an image file into a data URL.
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading chart image: %w", err)
	}
	if len(data) > maxChartBytes {
		return "", fmt.Errorf("chart image is %d bytes, limit is %d", len(data), maxChartBytes)
	}
	mime := http.DetectContentType(data)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
