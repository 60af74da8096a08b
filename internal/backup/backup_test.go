package backup

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
)

func sampleTrades() []models.Trade {
	return []models.Trade{
		{
			ID:         "b",
			Date:       "2024-03-02",
			Timestamp:  1709370000000,
			Asset:      models.AssetGC,
			Strategy:   models.StrategyPullback,
			Style:      models.StyleSwing,
			OrderType:  models.OrderTypeLimit,
			Direction:  models.DirectionShort,
			EntryPrice: 2050.5,
			StopLoss:   2055,
			TakeProfit: models.Float(2040),
			Status:     models.StatusClosed,
			ExitPrice:  models.Float(2045.25),
			PnLPoints:  models.Float(5.25),
			ChartImage: "data:image/png;base64,AAAA",
			AIFeedback: "Patient entry.",
			AIScore:    models.Int(7),
		},
		{
			ID:         "a",
			Date:       "2024-03-01",
			Timestamp:  1709280000000,
			Asset:      models.AssetES,
			Strategy:   models.StrategyTrendFollow,
			Style:      models.StyleScalp,
			OrderType:  models.OrderTypeMarket,
			Direction:  models.DirectionLong,
			EntryPrice: 5100,
			StopLoss:   5095,
			Status:     models.StatusOpen,
		},
	}
}

func TestJSONRoundTripIsVerbatim(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sampleTrades(), FormatJSON))
	assert.Contains(t, buf.String(), "\n  {")
	assert.Contains(t, buf.String(), `"chartImage": "data:image/png;base64,AAAA"`)

	got, err := Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleTrades(), got)
}

func TestYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sampleTrades(), FormatYAML))

	got, err := ImportYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleTrades(), got)
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sampleTrades(), FormatCSV))
	assert.NotContains(t, buf.String(), "base64")

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	header := records[0]
	assert.Equal(t, "id", header[0])

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	assert.Equal(t, "5.25", records[1][col("pnl_points")])
	assert.Equal(t, "", records[2][col("exit_price")])
	assert.Equal(t, "SHORT", records[1][col("direction")])
}

func TestImportRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"object":         `{"id":"a","date":"2024-01-01"}`,
		"not json":       `trades!`,
		"null":           `null`,
		"missing id":     `[{"date":"2024-01-01"}]`,
		"missing date":   `[{"id":"a"}]`,
		"empty id":       `[{"id":"","date":"2024-01-01"}]`,
		"scalar element": `[1, 2]`,
		"bad types":      `[{"id":"a","date":"2024-01-01","entryPrice":"high"}]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Import(strings.NewReader(doc))
			assert.ErrorIs(t, err, apperrors.ErrMalformedImport)
			var ie *apperrors.ImportError
			assert.ErrorAs(t, err, &ie)
		})
	}
}

func TestImportChecksOnlyFirstRecord(t *testing.T) {
	got, err := Import(strings.NewReader(`[{"id":"a","date":"2024-01-01"},{"note":"second record is not checked"}]`))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = Import(strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestImportLegacyLabels(t *testing.T) {
	doc := `[{"id":"x","date":"2023-12-01","direction":"做空","status":"已平仓","asset":"NQ (纳指100)","isDeleted":false}]`
	got, err := Import(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, models.DirectionShort, got[0].Direction)
	assert.Equal(t, models.StatusClosed, got[0].Status)
	assert.Equal(t, models.AssetNQ, got[0].Asset)
}

func TestDecodeRejectsCSV(t *testing.T) {
	_, err := Decode(strings.NewReader("id,date\n"), FormatCSV)
	assert.ErrorIs(t, err, apperrors.ErrMalformedImport)
}

func TestLatestDate(t *testing.T) {
	assert.Equal(t, "2024-03-02", LatestDate(sampleTrades()))
	assert.Equal(t, "", LatestDate(nil))
}

func TestFileNameAndFormats(t *testing.T) {
	day := time.Date(2024, 7, 9, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, "mindful_trader_backup_2024-07-09.json", FileName(day, FormatJSON))
	assert.Equal(t, FormatYAML, FormatOf("/tmp/x.yml"))
	assert.Equal(t, FormatJSON, FormatOf("/tmp/x"))
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}
