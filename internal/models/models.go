// Package models provides domain models for the trading journal.
package models

import "strings"

// Asset represents a traded instrument.
type Asset string

const (
	AssetES Asset = "ES"
	AssetNQ Asset = "NQ"
	AssetGC Asset = "GC"
)

// OrderType represents the type of the entry order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

// Direction represents the side of a position.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Strategy represents the setup a trade was taken on.
type Strategy string

const (
	StrategyTrendFollow   Strategy = "TREND_FOLLOW"
	StrategyRangeFade     Strategy = "RANGE_FADE"
	StrategyReversal      Strategy = "REVERSAL"
	StrategyWedgeReversal Strategy = "WEDGE_REVERSAL"
	StrategyBreakout      Strategy = "BREAKOUT"
	StrategyPullback      Strategy = "PULLBACK"
)

// TradeStatus represents the execution status of a trade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "OPEN"
	StatusClosed TradeStatus = "CLOSED"
)

// Style is a coarse duration/intent tag.
type Style string

const (
	StyleScalp    Style = "SCALP"
	StyleSwing    Style = "SWING"
	StyleBreakout Style = "BREAKOUT"
	StyleReversal Style = "REVERSAL"
)

// Enumeration members in display order.
var (
	Assets     = []Asset{AssetES, AssetNQ, AssetGC}
	OrderTypes = []OrderType{OrderTypeMarket, OrderTypeLimit, OrderTypeStop}
	Directions = []Direction{DirectionLong, DirectionShort}
	Strategies = []Strategy{
		StrategyTrendFollow, StrategyRangeFade, StrategyReversal,
		StrategyWedgeReversal, StrategyBreakout, StrategyPullback,
	}
	Statuses = []TradeStatus{StatusOpen, StatusClosed}
	Styles   = []Style{StyleScalp, StyleSwing, StyleBreakout, StyleReversal}
)

// Labels written by earlier versions of the journal. Backups made with them
// still decode to the canonical codes.
var (
	legacyAssets = map[string]Asset{
		"ES (标普500)": AssetES,
		"NQ (纳指100)": AssetNQ,
		"GC (黄金)":    AssetGC,
	}
	legacyOrderTypes = map[string]OrderType{
		"市价单": OrderTypeMarket,
		"限价单": OrderTypeLimit,
		"止损单": OrderTypeStop,
	}
	legacyDirections = map[string]Direction{
		"做多": DirectionLong,
		"做空": DirectionShort,
	}
	legacyStrategies = map[string]Strategy{
		"趋势跟随":     StrategyTrendFollow,
		"震荡区间高抛低吸": StrategyRangeFade,
		"主要趋势反转":   StrategyReversal,
		"楔形反转":     StrategyWedgeReversal,
		"突破跟随":     StrategyBreakout,
		"趋势回调入场":   StrategyPullback,
	}
	legacyStatuses = map[string]TradeStatus{
		"持仓中": StatusOpen,
		"已平仓": StatusClosed,
	}
	legacyStyles = map[string]Style{
		"超短线": StyleScalp,
		"波段":  StyleSwing,
		"突破":  StyleBreakout,
		"反转":  StyleReversal,
	}
)

// normalize maps raw onto a known member, accepting lower-case codes and legacy
// labels. Unknown input is returned verbatim.
func normalize[T ~string](raw string, known []T, legacy map[string]T) T {
	s := strings.TrimSpace(raw)
	upper := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	for _, k := range known {
		if string(k) == upper {
			return k
		}
	}
	if v, ok := legacy[s]; ok {
		return v
	}
	return T(raw)
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ParseAsset parses an asset code or legacy label.
func ParseAsset(s string) Asset { return normalize(s, Assets, legacyAssets) }

// ParseOrderType parses an order type code or legacy label.
func ParseOrderType(s string) OrderType { return normalize(s, OrderTypes, legacyOrderTypes) }

// ParseDirection parses a direction code or legacy label.
func ParseDirection(s string) Direction { return normalize(s, Directions, legacyDirections) }

// ParseStrategy parses a strategy code or legacy label.
func ParseStrategy(s string) Strategy { return normalize(s, Strategies, legacyStrategies) }

// ParseStatus parses a status code or legacy label.
func ParseStatus(s string) TradeStatus { return normalize(s, Statuses, legacyStatuses) }

// ParseStyle parses a style code or legacy label.
func ParseStyle(s string) Style { return normalize(s, Styles, legacyStyles) }

func (a Asset) Valid() bool { return contains(Assets, a) }
func (o OrderType) Valid() bool { return contains(OrderTypes, o) }
func (d Direction) Valid() bool { return contains(Directions, d) }
func (s Strategy) Valid() bool { return contains(Strategies, s) }
func (s TradeStatus) Valid() bool { return contains(Statuses, s) }
func (s Style) Valid() bool { return contains(Styles, s) }

func (a *Asset) UnmarshalText(b []byte) error {
	*a = ParseAsset(string(b))
	return nil
}

func (o *OrderType) UnmarshalText(b []byte) error {
	*o = ParseOrderType(string(b))
	return nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	*d = ParseDirection(string(b))
	return nil
}

func (s *Strategy) UnmarshalText(b []byte) error {
	*s = ParseStrategy(string(b))
	return nil
}

func (s *TradeStatus) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

func (s *Style) UnmarshalText(b []byte) error {
	*s = ParseStyle(string(b))
	return nil
}

// Label returns a human readable asset name.
func (a Asset) Label() string {
	switch a {
	case AssetES:
		return "ES (S&P 500)"
	case AssetNQ:
		return "NQ (Nasdaq 100)"
	case AssetGC:
		return "GC (Gold)"
	}
	return string(a)
}

// Label returns a human readable strategy name.
func (s Strategy) Label() string {
	switch s {
	case StrategyTrendFollow:
		return "Trend following"
	case StrategyRangeFade:
		return "Range fade"
	case StrategyReversal:
		return "Major trend reversal"
	case StrategyWedgeReversal:
		return "Wedge reversal"
	case StrategyBreakout:
		return "Breakout follow-through"
	case StrategyPullback:
		return "Trend pullback entry"
	}
	return string(s)
}

// Multiplier returns +1 for long and -1 for short positions.
func (d Direction) Multiplier() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}
