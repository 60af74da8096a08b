// Package stats derives read-only performance views from the trade collection.
// Every function is pure and recomputes from its input.
package stats

import (
	"fmt"
	"math"
	"sort"

	"mindful-trader/internal/models"
)

// DefaultDailyTradeLimit is the recommended maximum number of trades per day.
const DefaultDailyTradeLimit = 4

// ForDate returns the trades logged on date, newest first.
func ForDate(trades []models.Trade, date string) []models.Trade {
	out := make([]models.Trade, 0)
	for _, t := range trades {
		if t.Date == date {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

// Daily summarises the trades logged on date. limit is the daily trade limit
// above which the day is flagged as overtrading; zero disables the flag.
func Daily(trades []models.Trade, date string, limit int) models.DailyStats {
	s := models.DailyStats{Date: date, ClosedIDs: []string{}}
	var sum float64

	for _, t := range ForDate(trades, date) {
		s.Total++
		if !t.IsClosed() {
			continue
		}
		s.ClosedCount++
		s.ClosedIDs = append(s.ClosedIDs, t.ID)
		pnl := t.PnL()
		sum += pnl
		switch {
		case pnl > 0:
			s.Wins++
		case pnl < 0:
			s.Losses++
		}
	}

	s.Points = models.Round2(sum)
	s.WinRate = WinRate(s.Wins, s.ClosedCount)
	s.Overtrading = limit > 0 && s.Total > limit
	s.Outcome = OutcomeOf(s.Points)
	return s
}

// AllTime sums realized pnl over every closed trade regardless of date.
func AllTime(trades []models.Trade) float64 {
	var sum float64
	for _, t := range trades {
		if t.IsClosed() {
			sum += t.PnL()
		}
	}
	return models.Round2(sum)
}

// WinRate returns wins as a rounded percentage of closed trades.
func WinRate(wins, closed int) int {
	if closed == 0 {
		return 0
	}
	return int(math.Round(float64(wins) / float64(closed) * 100))
}

// OutcomeOf classifies a day by the sign of its points.
func OutcomeOf(points float64) models.Outcome {
	switch {
	case points > 0:
		return models.OutcomeProfit
	case points < 0:
		return models.OutcomeLoss
	default:
		return models.OutcomeFlat
	}
}

// Dates returns the distinct trade dates, most recent first.
func Dates(trades []models.Trade) []string {
	seen := make(map[string]bool)
	var dates []string
	for _, t := range trades {
		if t.Date != "" && !seen[t.Date] {
			seen[t.Date] = true
			dates = append(dates, t.Date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// RiskReward returns reward/risk for the planned levels of t. ok is false when
// the stop or the target is missing. Zero risk yields a zero ratio.
func RiskReward(t models.Trade) (ratio float64, ok bool) {
	if t.StopLoss == 0 || t.TakeProfit == nil || *t.TakeProfit == 0 {
		return 0, false
	}
	risk := math.Abs(t.EntryPrice - t.StopLoss)
	if risk == 0 {
		return 0, true
	}
	return math.Abs(*t.TakeProfit-t.EntryPrice) / risk, true
}

// FormatRiskReward renders the ratio as "1:x.x", "0" or "N/A".
func FormatRiskReward(t models.Trade) string {
	ratio, ok := RiskReward(t)
	switch {
	case !ok:
		return "N/A"
	case ratio == 0:
		return "0"
	default:
		return fmt.Sprintf("1:%.1f", ratio)
	}
}

// Group aggregates closed trades sharing a key.
type Group struct {
	Key     string  `json:"key"`
	Total   int     `json:"total"`
	Closed  int     `json:"closed"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Points  float64 `json:"points"`
	WinRate int     `json:"winRate"`
}

// ByStrategy groups trades by setup, in the canonical strategy order.
func ByStrategy(trades []models.Trade) []Group {
	order := make([]string, len(models.Strategies))
	for i, s := range models.Strategies {
		order[i] = string(s)
	}
	return groupBy(trades, order, func(t models.Trade) string { return string(t.Strategy) })
}

// ByConfidence groups trades by pre-trade confidence band.
func ByConfidence(trades []models.Trade) []Group {
	order := []string{"90-100", "80-90", "70-80", "60-70", "50-60", "0-50"}
	return groupBy(trades, order, func(t models.Trade) string { return confidenceRange(t.Confidence) })
}

// ByMindset splits trades by whether the trader reported being emotional.
func ByMindset(trades []models.Trade) []Group {
	return groupBy(trades, []string{"calm", "emotional"}, func(t models.Trade) string {
		if t.IsEmotional {
			return "emotional"
		}
		return "calm"
	})
}

// groupBy buckets trades by key. Known keys come first in order; unknown keys
// follow alphabetically. Empty groups are omitted.
func groupBy(trades []models.Trade, order []string, key func(models.Trade) string) []Group {
	groups := make(map[string]*Group)
	sums := make(map[string]float64)
	for _, t := range trades {
		k := key(t)
		g, ok := groups[k]
		if !ok {
			g = &Group{Key: k}
			groups[k] = g
		}
		g.Total++
		if !t.IsClosed() {
			continue
		}
		g.Closed++
		sums[k] += t.PnL()
		switch {
		case t.PnL() > 0:
			g.Wins++
		case t.PnL() < 0:
			g.Losses++
		}
	}

	out := make([]Group, 0, len(groups))
	emit := func(k string) {
		g := groups[k]
		g.Points = models.Round2(sums[k])
		g.WinRate = WinRate(g.Wins, g.Closed)
		out = append(out, *g)
		delete(groups, k)
	}
	for _, k := range order {
		if _, ok := groups[k]; ok {
			emit(k)
		}
	}
	rest := make([]string, 0, len(groups))
	for k := range groups {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		emit(k)
	}
	return out
}

func confidenceRange(confidence int) string {
	switch {
	case confidence >= 90:
		return "90-100"
	case confidence >= 80:
		return "80-90"
	case confidence >= 70:
		return "70-80"
	case confidence >= 60:
		return "60-70"
	case confidence >= 50:
		return "50-60"
	default:
		return "0-50"
	}
}
