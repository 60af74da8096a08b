package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindful-trader/internal/coach"
	"mindful-trader/internal/config"
	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
)

const testDate = "2026-10-18"

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.Storage.Backend = "memory"

	app, err := NewApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	app.Now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }
	require.NoError(t, app.Journal.SelectDate(testDate))
	return app
}

func run(t *testing.T, app *App, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func addTrade(t *testing.T, app *App, extra ...string) models.Trade {
	t.Helper()
	args := append([]string{"trade", "add", "--json", "--emotional=false", "--context", "trend day", "--entry", "100", "--stop", "95"}, extra...)
	out, err := run(t, app, "", args...)
	require.NoError(t, err, out)

	var trade models.Trade
	require.NoError(t, json.Unmarshal([]byte(out), &trade), out)
	return trade
}

func TestTradeAddClosedWithFlags(t *testing.T) {
	app := newTestApp(t)

	trade := addTrade(t, app, "--direction", "short", "--exit", "90", "--asset", "NQ")

	assert.Equal(t, models.StatusClosed, trade.Status)
	assert.Equal(t, models.DirectionShort, trade.Direction)
	assert.Equal(t, models.AssetNQ, trade.Asset)
	require.NotNil(t, trade.PnLPoints)
	assert.Equal(t, 10.0, *trade.PnLPoints)
	assert.Equal(t, testDate, trade.Date)
	assert.Equal(t, "1m", trade.Timeframe)
	assert.Equal(t, 1, app.Store.Len())
}

func TestTradeAddRequiresEmotionalAnswer(t *testing.T) {
	app := newTestApp(t)

	_, err := run(t, app, "", "trade", "add", "--context", "x", "--entry", "1", "--stop", "0.5")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
	assert.Equal(t, 0, app.Store.Len())
}

func TestTradeAddEmotionalGate(t *testing.T) {
	app := newTestApp(t)
	args := []string{"trade", "add", "--emotional", "--context", "revenge", "--entry", "100", "--stop", "95"}

	out, err := run(t, app, "n\n", args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Trade not recorded")
	assert.Equal(t, 0, app.Store.Len())

	_, err = run(t, app, "y\n", args...)
	require.NoError(t, err)
	assert.Equal(t, 1, app.Store.Len())

	_, err = run(t, app, "", append(args, "--yes")...)
	require.NoError(t, err)
	assert.Equal(t, 2, app.Store.Len())
	assert.True(t, app.Store.All()[0].IsEmotional)
}

func TestTradeAddInteractive(t *testing.T) {
	app := newTestApp(t)
	answers := []string{
		"n",         // emotional
		"range day", // context
		"y",         // key level
		"70",        // confidence
		"",          // style
		"",          // date
		"nq",        // asset
		"",          // timeframe
		"",          // strategy
		"",          // order type
		"SHORT",     // direction
		"",          // entry bar
		"200",       // entry
		"205",       // stop
		"",          // take profit
		"y",         // closed
		"190",       // exit
		"",          // exit bar
	}

	_, err := run(t, app, strings.Join(answers, "\n")+"\n", "trade", "add", "-i")
	require.NoError(t, err)

	trades := app.Store.All()
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, "range day", tr.MarketContext)
	assert.True(t, tr.IsKeyLevel)
	assert.Equal(t, 70, tr.Confidence)
	assert.Equal(t, models.StyleScalp, tr.Style)
	assert.Equal(t, models.AssetNQ, tr.Asset)
	assert.Equal(t, models.DirectionShort, tr.Direction)
	assert.Nil(t, tr.TakeProfit)
	assert.Equal(t, 10.0, tr.PnL())
}

func TestTradeLifecycleCommands(t *testing.T) {
	app := newTestApp(t)
	trade := addTrade(t, app, "--tp", "110")
	prefix := trade.ID[:8]

	_, err := run(t, app, "", "trade", "close", prefix)
	assert.ErrorIs(t, err, apperrors.ErrExitPriceRequired)

	_, err = run(t, app, "", "trade", "close", prefix, "--exit", "104", "--notes", "patient exit")
	require.NoError(t, err)
	got, _ := app.Store.Get(trade.ID)
	assert.Equal(t, 4.0, got.PnL())
	assert.Equal(t, "patient exit", got.UserNotes)

	_, err = run(t, app, "", "trade", "edit", prefix, "--entry", "101", "--tp", "")
	require.NoError(t, err)
	got, _ = app.Store.Get(trade.ID)
	assert.Equal(t, 3.0, got.PnL())
	assert.Nil(t, got.TakeProfit)

	_, err = run(t, app, "", "trade", "edit", prefix)
	assert.Error(t, err)

	_, err = run(t, app, "", "trade", "note", prefix, "held", "to", "target")
	require.NoError(t, err)
	got, _ = app.Store.Get(trade.ID)
	assert.Equal(t, "held to target", got.UserNotes)

	out, err := run(t, app, "", "trade", "show", prefix)
	require.NoError(t, err)
	assert.Contains(t, out, "held to target")
	assert.Contains(t, out, "N/A")

	_, err = run(t, app, "", "trade", "show", "nope")
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)
}

func TestTradeAnalyzeWithoutKeyAttachesFallback(t *testing.T) {
	app := newTestApp(t)
	trade := addTrade(t, app)

	out, err := run(t, app, "", "trade", "analyze", trade.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "0/10")

	got, _ := app.Store.Get(trade.ID)
	assert.Equal(t, coach.MissingKeyText, got.AIFeedback)
	require.NotNil(t, got.AIScore)
	assert.Equal(t, 0, *got.AIScore)
}

func TestTradeDeleteConfirmation(t *testing.T) {
	app := newTestApp(t)
	trade := addTrade(t, app)

	out, err := run(t, app, "n\n", "trade", "delete", trade.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing deleted")
	assert.Equal(t, 1, app.Store.Len())

	_, err = run(t, app, "", "trade", "delete", trade.ID, "--yes")
	require.NoError(t, err)
	assert.Equal(t, 0, app.Store.Len())
}

func TestTradeListFiltersSelectedDate(t *testing.T) {
	app := newTestApp(t)
	addTrade(t, app)
	addTrade(t, app, "--date", "2026-10-17")

	out, err := run(t, app, "", "trade", "list", "--json")
	require.NoError(t, err)
	var trades []models.Trade
	require.NoError(t, json.Unmarshal([]byte(out), &trades))
	assert.Len(t, trades, 1)

	out, err = run(t, app, "", "trade", "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-10-17")
	assert.Contains(t, out, testDate)
}

func TestStatsReportsOvertrading(t *testing.T) {
	app := newTestApp(t)
	addTrade(t, app, "--exit", "110")
	addTrade(t, app, "--exit", "90")
	addTrade(t, app, "--exit", "100")
	addTrade(t, app)
	addTrade(t, app)

	out, err := run(t, app, "", "stats", "--json", "--by-strategy")
	require.NoError(t, err)

	var report statsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 5, report.Daily.Total)
	assert.Equal(t, 3, report.Daily.ClosedCount)
	assert.Equal(t, 1, report.Daily.Wins)
	assert.Equal(t, 1, report.Daily.Losses)
	assert.Equal(t, 33, report.Daily.WinRate)
	assert.True(t, report.Daily.Overtrading)
	assert.Equal(t, 0.0, report.AllTime)
	require.Len(t, report.ByStrategy, 1)
	assert.Equal(t, 5, report.ByStrategy[0].Total)

	out, err = run(t, app, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Overtrading")
}

func TestBackupRoundTripThroughFiles(t *testing.T) {
	app := newTestApp(t)
	addTrade(t, app, "--exit", "104")
	addTrade(t, app, "--date", "2026-10-20")
	path := filepath.Join(t.TempDir(), "backup.json")

	_, err := run(t, app, "", "backup", "export", "--out", path)
	require.NoError(t, err)

	_, err = run(t, app, "", "backup", "reset", "--yes")
	require.NoError(t, err)
	assert.Equal(t, 0, app.Store.Len())

	out, err := run(t, app, "n\n", "backup", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Import cancelled")
	assert.Equal(t, 0, app.Store.Len())

	_, err = run(t, app, "", "backup", "import", path, "--yes")
	require.NoError(t, err)
	assert.Equal(t, 2, app.Store.Len())
	assert.Equal(t, "2026-10-20", app.Journal.SelectedDate())
}

func TestBackupImportRejectsMalformedDocument(t *testing.T) {
	app := newTestApp(t)
	addTrade(t, app)
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"trades": []}`), 0o644))

	_, err := run(t, app, "", "backup", "import", path, "--yes")
	assert.ErrorIs(t, err, apperrors.ErrMalformedImport)
	assert.Equal(t, 1, app.Store.Len())
}

func TestBackupExportCSVToStdout(t *testing.T) {
	app := newTestApp(t)
	addTrade(t, app, "--exit", "104")

	out, err := run(t, app, "", "backup", "export", "--format", "csv", "--out", "-")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
}

func TestChatWithoutKeyRepliesWithFallback(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "how do I stop revenge trading?\n/history\n/exit\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, coach.MissingKeyText)
	assert.Len(t, app.Journal.ChatHistory(), 2)
}

func TestConfigShowMasksKey(t *testing.T) {
	app := newTestApp(t)
	app.Config.Credentials.OpenAI.APIKey = "sk-abcdefghijklmnopqrstuvwxyz"

	out, err := run(t, app, "", "config", "show", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "abcdefghijklmnopqrstuvwxyz")
	assert.Contains(t, out, "memory")
}

func TestGlobalDateFlag(t *testing.T) {
	app := newTestApp(t)

	_, err := run(t, app, "", "--date", "2026-10-01", "trade", "list")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-01", app.Journal.SelectedDate())

	_, err = run(t, app, "", "--date", "01/10/2026", "trade", "list")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}

func TestTradeSearch(t *testing.T) {
	app := newTestApp(t)
	addTrade(t, app, "--context", "Revenge after stop out", "--asset", "NQ")
	addTrade(t, app, "--context", "clean pullback")

	out, err := run(t, app, "", "trade", "search", "revenge", "--json")
	require.NoError(t, err)
	var found []models.Trade
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 1)
	assert.Equal(t, models.AssetNQ, found[0].Asset)

	out, err = run(t, app, "", "trade", "search", "--asset", "GC")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching trades")
}

func TestHelpCommands(t *testing.T) {
	app := newTestApp(t)
	for _, name := range []string{"commands", "examples", "quickstart"} {
		out, err := run(t, app, "", name)
		require.NoError(t, err, name)
		assert.Contains(t, strings.ToLower(out), "mindful", name)
	}
}
