package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
)

func answer(v bool) *bool { return &v }

func calm() Mindset {
	return Mindset{IsEmotional: answer(false), MarketContext: "trend day, higher lows", Confidence: 70, Style: models.StyleSwing}
}

func TestDefaults(t *testing.T) {
	w := New("2024-05-01")
	assert.Equal(t, StepMindset, w.Step())
	assert.Equal(t, 50, w.Mindset().Confidence)
	assert.Equal(t, models.StyleScalp, w.Mindset().Style)
	assert.Nil(t, w.Mindset().IsEmotional)

	d := w.Details()
	assert.Equal(t, "2024-05-01", d.Date)
	assert.Equal(t, models.AssetES, d.Asset)
	assert.Equal(t, "1m", d.Timeframe)
	assert.Equal(t, models.StrategyTrendFollow, d.Strategy)
	assert.Equal(t, models.OrderTypeMarket, d.OrderType)
	assert.Equal(t, models.DirectionLong, d.Direction)

	assert.Equal(t, "5m", New("2024-05-01").WithTimeframe("5m").Details().Timeframe)
}

func TestNextRequiresAnswers(t *testing.T) {
	w := New("2024-05-01")

	err := w.Next()
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
	assert.Equal(t, StepMindset, w.Step())

	m := calm()
	m.MarketContext = "   "
	w.SetMindset(m)
	assert.ErrorIs(t, w.Next(), apperrors.ErrInputValidation)
	assert.Equal(t, StepMindset, w.Step())

	m = calm()
	m.Confidence = 120
	w.SetMindset(m)
	assert.ErrorIs(t, w.Next(), apperrors.ErrInputValidation)

	w.SetMindset(calm())
	require.NoError(t, w.Next())
	assert.Equal(t, StepDetails, w.Step())
}

func TestEmotionalGate(t *testing.T) {
	w := New("2024-05-01")
	m := calm()
	m.IsEmotional = answer(true)
	w.SetMindset(m)

	assert.True(t, w.NeedsAcknowledgement())
	assert.ErrorIs(t, w.Next(), apperrors.ErrEmotionalOverride)
	assert.Equal(t, StepMindset, w.Step())

	w.AcknowledgeEmotionalRisk()
	require.NoError(t, w.Next())
	assert.Equal(t, StepDetails, w.Step())

	// A changed answer needs a fresh acknowledgement.
	w.Back()
	w.SetMindset(calm())
	m.IsEmotional = answer(true)
	w.SetMindset(m)
	assert.ErrorIs(t, w.Next(), apperrors.ErrEmotionalOverride)
}

func TestBackKeepsInput(t *testing.T) {
	w := New("2024-05-01")
	w.SetMindset(calm())
	require.NoError(t, w.Next())
	d := w.Details()
	d.EntryPrice = "101"
	w.SetDetails(d)

	w.Back()
	assert.Equal(t, StepMindset, w.Step())
	assert.Equal(t, "trend day, higher lows", w.Mindset().MarketContext)
	require.NoError(t, w.Next())
	assert.Equal(t, "101", w.Details().EntryPrice)
}

func detailsStep(t *testing.T) *Wizard {
	t.Helper()
	w := New("2024-05-01")
	w.SetMindset(calm())
	require.NoError(t, w.Next())
	return w
}

func TestSubmitRequiresPrices(t *testing.T) {
	w := detailsStep(t)
	_, err := w.Submit()
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
	assert.Equal(t, StepDetails, w.Step())

	d := w.Details()
	d.EntryPrice = "100"
	d.StopLoss = "abc"
	w.SetDetails(d)
	_, err = w.Submit()
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "stopLoss", ve.Field)

	d.StopLoss = "95"
	d.TakeProfit = "lots"
	w.SetDetails(d)
	_, err = w.Submit()
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}

func TestSubmitRejectsMalformedDate(t *testing.T) {
	for _, date := range []string{"tomorrow", "", "2026-13-01", "18/10/2026"} {
		w := detailsStep(t)
		d := w.Details()
		d.Date = date
		d.EntryPrice = "100"
		d.StopLoss = "95"
		w.SetDetails(d)

		_, err := w.Submit()
		var ve *apperrors.ValidationError
		require.ErrorAs(t, err, &ve, date)
		assert.Equal(t, "date", ve.Field)
		assert.Equal(t, StepDetails, w.Step())
	}
}

func TestSubmitOpenTrade(t *testing.T) {
	w := detailsStep(t)
	d := w.Details()
	d.EntryPrice = "100"
	d.StopLoss = "95"
	d.TakeProfit = "110"
	d.ExitPrice = "103"
	w.SetDetails(d)

	tr, err := w.Submit()
	require.NoError(t, err)
	assert.Equal(t, StepSubmitted, w.Step())
	assert.Empty(t, tr.ID)
	assert.Zero(t, tr.Timestamp)
	assert.Equal(t, models.StatusOpen, tr.Status)
	assert.Nil(t, tr.ExitPrice)
	assert.Nil(t, tr.PnLPoints)
	assert.Equal(t, 110.0, *tr.TakeProfit)
	assert.Equal(t, models.StyleSwing, tr.Style)
	assert.False(t, tr.IsEmotional)

	_, err = w.Submit()
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}

func TestSubmitClosedTrade(t *testing.T) {
	w := detailsStep(t)
	d := w.Details()
	d.EntryPrice = "100"
	d.StopLoss = "95"
	d.Closed = true
	d.Direction = models.DirectionShort
	w.SetDetails(d)

	_, err := w.Submit()
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	d.ExitPrice = "103"
	d.ExitCandleNumber = "9"
	w.SetDetails(d)
	tr, err := w.Submit()
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, tr.Status)
	assert.Equal(t, -3.0, *tr.PnLPoints)
	assert.Equal(t, "9", tr.ExitCandleNumber)
}

func TestSubmitBeforeMindset(t *testing.T) {
	_, err := New("2024-05-01").Submit()
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}
