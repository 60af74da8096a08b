package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/intake"
	"mindful-trader/internal/journal"
	"mindful-trader/internal/models"
	"mindful-trader/pkg/utils"
)

// addTradeCommands adds trade recording and review commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "trade",
		Aliases: []string{"t"},
		Short:   "Record and review trades",
	}
	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeShowCmd(app))
	cmd.AddCommand(newTradeCloseCmd(app))
	cmd.AddCommand(newTradeEditCmd(app))
	cmd.AddCommand(newTradeNoteCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))
	cmd.AddCommand(newTradeAnalyzeCmd(app))
	cmd.AddCommand(newTradeSearchCmd(app))
	rootCmd.AddCommand(cmd)
}

func newTradeAddCmd(app *App) *cobra.Command {
	var (
		mindset     intake.Mindset
		details     intake.Details
		asset       string
		strategy    string
		orderType   string
		direction   string
		style       string
		chart       string
		interactive bool
		yes         bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new trade",
		Long: `Record a new trade after a short mindset check.

Without --interactive every answer comes from flags. Answering --emotional
requires confirming the trade, either at the prompt or with --yes.`,
		Example: `  mindful trade add -i
  mindful trade add --emotional=false --context "trend day, pullback to EMA" \
      --asset NQ --direction LONG --entry 18250.5 --stop 18240 --tp 18280`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			prompter := NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

			w := intake.New(app.Journal.SelectedDate()).WithTimeframe(app.Config.Journal.DefaultTimeframe)
			if interactive {
				if err := askMindset(prompter, w); err != nil {
					return err
				}
			} else {
				if cmd.Flags().Changed("emotional") {
					emotional, _ := cmd.Flags().GetBool("emotional")
					mindset.IsEmotional = &emotional
				}
				mindset.Style = models.ParseStyle(style)
				w.SetMindset(mindset)
			}

			if err := w.Next(); err != nil {
				if !apperrors.Is(err, apperrors.ErrEmotionalOverride) {
					return err
				}
				output.Warning(intake.EmotionalWarning)
				ok := yes
				if !ok {
					if ok, err = prompter.Confirm("Take the trade anyway?", false); err != nil {
						return err
					}
				}
				if !ok {
					output.Info("Trade not recorded. Take a break.")
					return nil
				}
				w.AcknowledgeEmotionalRisk()
				if err := w.Next(); err != nil {
					return err
				}
			}

			if interactive {
				if err := askDetails(prompter, w); err != nil {
					return err
				}
			} else {
				details.Date = w.Details().Date
				if details.Timeframe == "" {
					details.Timeframe = w.Details().Timeframe
				}
				details.Asset = models.ParseAsset(asset)
				details.Strategy = models.ParseStrategy(strategy)
				details.OrderType = models.ParseOrderType(orderType)
				details.Direction = models.ParseDirection(direction)
				details.Closed = details.ExitPrice != ""
				w.SetDetails(details)
			}
			if chart != "" {
				d := w.Details()
				url, err := imageDataURL(chart)
				if err != nil {
					return err
				}
				d.ChartImage = url
				w.SetDetails(d)
			}

			draft, err := w.Submit()
			if err != nil {
				return err
			}
			trade, err := app.Journal.Create(cmd.Context(), draft)
			if err != nil && !reportWarning(output, err) {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("Trade %s recorded", trade.ID)
			warnOvertrading(output, app)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&interactive, "interactive", "i", false, "answer questions at prompts")
	f.BoolVarP(&yes, "yes", "y", false, "confirm the trade despite an emotional state")
	f.Bool("emotional", false, "you are angry, fearful, greedy or revenge trading")
	f.StringVar(&mindset.MarketContext, "context", "", "market context in your own words")
	f.BoolVar(&mindset.IsKeyLevel, "key-level", false, "entry is at a key level")
	f.IntVar(&mindset.Confidence, "confidence", 50, "confidence 0-100")
	f.StringVar(&style, "style", string(models.StyleScalp), "SCALP, SWING, BREAKOUT or REVERSAL")
	f.StringVar(&asset, "asset", string(models.AssetES), "ES, NQ or GC")
	f.StringVar(&details.Timeframe, "timeframe", "", "chart timeframe label")
	f.StringVar(&details.EntryCandleNumber, "entry-candle", "", "entry bar number")
	f.StringVar(&strategy, "strategy", string(models.StrategyTrendFollow), "setup, e.g. TREND_FOLLOW or PULLBACK")
	f.StringVar(&orderType, "order", string(models.OrderTypeMarket), "MARKET, LIMIT or STOP")
	f.StringVar(&direction, "direction", string(models.DirectionLong), "LONG or SHORT")
	f.StringVar(&details.EntryPrice, "entry", "", "entry price")
	f.StringVar(&details.StopLoss, "stop", "", "stop loss price")
	f.StringVar(&details.TakeProfit, "tp", "", "take profit price")
	f.StringVar(&details.ExitPrice, "exit", "", "exit price; records the trade as closed")
	f.StringVar(&details.ExitCandleNumber, "exit-candle", "", "exit bar number")
	f.StringVar(&chart, "chart", "", "chart screenshot file to attach")

	return cmd
}

// askMindset fills the mindset step from prompts.
func askMindset(p *Prompter, w *intake.Wizard) error {
	m := w.Mindset()
	emotional, err := p.Confirm("Are you angry, fearful, greedy or out for revenge right now?", false)
	if err != nil {
		return err
	}
	m.IsEmotional = &emotional
	if m.MarketContext, err = p.Ask("Describe the market context", m.MarketContext); err != nil {
		return err
	}
	if m.IsKeyLevel, err = p.Confirm("Is the entry at a key level?", m.IsKeyLevel); err != nil {
		return err
	}
	if m.Confidence, err = p.AskInt("Confidence 0-100", m.Confidence, 0, 100); err != nil {
		return err
	}
	style, err := p.Choose("Style", enumStrings(models.Styles), string(m.Style))
	if err != nil {
		return err
	}
	m.Style = models.Style(style)
	w.SetMindset(m)
	return nil
}

// askDetails fills the details step from prompts.
func askDetails(p *Prompter, w *intake.Wizard) error {
	d := w.Details()
	var (
		s   string
		err error
	)
	if d.Date, err = p.Ask("Date", d.Date); err != nil {
		return err
	}
	if s, err = p.Choose("Asset", enumStrings(models.Assets), string(d.Asset)); err != nil {
		return err
	}
	d.Asset = models.Asset(s)
	if d.Timeframe, err = p.Ask("Timeframe", d.Timeframe); err != nil {
		return err
	}
	if s, err = p.Choose("Strategy", enumStrings(models.Strategies), string(d.Strategy)); err != nil {
		return err
	}
	d.Strategy = models.Strategy(s)
	if s, err = p.Choose("Order type", enumStrings(models.OrderTypes), string(d.OrderType)); err != nil {
		return err
	}
	d.OrderType = models.OrderType(s)
	if s, err = p.Choose("Direction", enumStrings(models.Directions), string(d.Direction)); err != nil {
		return err
	}
	d.Direction = models.Direction(s)
	if d.EntryCandleNumber, err = p.Ask("Entry bar number (optional)", d.EntryCandleNumber); err != nil {
		return err
	}
	if d.EntryPrice, err = p.Ask("Entry price", d.EntryPrice); err != nil {
		return err
	}
	if d.StopLoss, err = p.Ask("Stop loss", d.StopLoss); err != nil {
		return err
	}
	if d.TakeProfit, err = p.Ask("Take profit (optional)", d.TakeProfit); err != nil {
		return err
	}
	if d.Closed, err = p.Confirm("Already closed?", d.Closed); err != nil {
		return err
	}
	if d.Closed {
		if d.ExitPrice, err = p.Ask("Exit price", d.ExitPrice); err != nil {
			return err
		}
		if d.ExitCandleNumber, err = p.Ask("Exit bar number (optional)", d.ExitCandleNumber); err != nil {
			return err
		}
	}
	w.SetDetails(d)
	return nil
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func newTradeListCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List trades of the selected date",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			trades := app.Journal.Trades()
			if all {
				trades = app.Journal.All()
			}
			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Dim("No trades on %s", app.Journal.SelectedDate())
				return nil
			}

			output.Bold("Trades %s", tradeListTitle(app, all))
			table := NewTable(output, "ID", "DATE", "TIME", "ASSET", "SIDE", "STRATEGY", "ENTRY", "EXIT", "RESULT", "AI")
			for _, t := range trades {
				table.AddRow(
					shortID(t.ID),
					t.Date,
					FormatTimestamp(t.Timestamp),
					string(t.Asset),
					output.directionCell(t.Direction),
					TruncateString(t.Strategy.Label(), 18),
					utils.FormatPrice(t.EntryPrice),
					utils.FormatOptionalPrice(t.ExitPrice),
					output.statusCell(t),
					output.scoreCell(t.AIScore),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every date")
	return cmd
}

func tradeListTitle(app *App, all bool) string {
	if all {
		return "(all dates)"
	}
	return FormatDateLabel(app.Journal.SelectedDate())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveID expands a unique id prefix to a full trade id.
func resolveID(app *App, ref string) (string, error) {
	if ref == "" {
		return "", apperrors.NewValidationError("id", ref, "must not be empty")
	}
	if _, err := app.Journal.Trade(ref); err == nil {
		return ref, nil
	}
	var match string
	for _, t := range app.Journal.All() {
		if strings.HasPrefix(t.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("trade id %q is ambiguous", ref)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", apperrors.ErrTradeNotFound, ref)
	}
	return match, nil
}

func newTradeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			id, err := resolveID(app, args[0])
			if err != nil {
				return err
			}
			t, err := app.Journal.Trade(id)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}
			output.printTrade(t)
			return nil
		},
	}
}

func newTradeCloseCmd(app *App) *cobra.Command {
	var exitPrice, exitCandle, notes string

	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Record the exit of an open trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			id, err := resolveID(app, args[0])
			if err != nil {
				return err
			}
			price, err := utils.ParsePrice(exitPrice)
			if err != nil {
				return apperrors.NewValidationError("exitPrice", exitPrice, err.Error())
			}
			if !cmd.Flags().Changed("notes") {
				if current, err := app.Journal.Trade(id); err == nil {
					notes = current.UserNotes
				}
			}

			t, err := app.Journal.Close(cmd.Context(), id, price, exitCandle, notes)
			if err != nil && !reportWarning(output, err) {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("Trade %s closed: %s", shortID(t.ID), output.FormatPoints(t.PnL()))
			return nil
		},
	}
	cmd.Flags().StringVar(&exitPrice, "exit", "", "exit price")
	cmd.Flags().StringVar(&exitCandle, "exit-candle", "", "exit bar number")
	cmd.Flags().StringVar(&notes, "notes", "", "review notes")
	return cmd
}

func newTradeEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Correct fields of a trade",
		Long: `Correct fields of a trade. Only the flags given are changed.
The result of a closed trade is recalculated from the edited prices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			id, err := resolveID(app, args[0])
			if err != nil {
				return err
			}
			e, err := editFromFlags(cmd)
			if err != nil {
				return err
			}
			if e.Empty() {
				return fmt.Errorf("nothing to change; see 'mindful trade edit --help'")
			}

			t, err := app.Journal.Edit(cmd.Context(), id, e)
			if err != nil && !reportWarning(output, err) {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("Trade %s updated", shortID(t.ID))
			if t.IsClosed() {
				output.Printf("  Result: %s\n", output.FormatPoints(t.PnL()))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("move-to", "", "move the trade to another date (YYYY-MM-DD)")
	f.String("entry", "", "entry price")
	f.String("stop", "", "stop loss")
	f.String("tp", "", "take profit; empty clears it")
	f.String("exit", "", "exit price of a closed trade")
	f.String("direction", "", "LONG or SHORT")
	f.String("strategy", "", "setup")
	f.String("style", "", "SCALP, SWING, BREAKOUT or REVERSAL")
	f.String("entry-candle", "", "entry bar number")
	f.String("exit-candle", "", "exit bar number")
	f.String("context", "", "market context")
	f.Bool("emotional", false, "emotional state at entry")
	f.Int("confidence", 0, "confidence 0-100")
	f.String("chart", "", "chart screenshot file to attach")
	return cmd
}

// editFromFlags builds an Edit from the flags set on cmd.
func editFromFlags(cmd *cobra.Command) (journal.Edit, error) {
	var e journal.Edit
	f := cmd.Flags()

	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}
	price := func(name string) (*float64, error) {
		raw := str(name)
		if raw == nil {
			return nil, nil
		}
		p, err := utils.ParsePrice(*raw)
		if err != nil {
			return nil, apperrors.NewValidationError(name, *raw, err.Error())
		}
		if p == nil {
			return nil, apperrors.NewValidationError(name, *raw, "must not be empty")
		}
		return p, nil
	}

	var err error
	e.Date = str("move-to")
	if e.EntryPrice, err = price("entry"); err != nil {
		return e, err
	}
	if e.StopLoss, err = price("stop"); err != nil {
		return e, err
	}
	if e.ExitPrice, err = price("exit"); err != nil {
		return e, err
	}
	if raw := str("tp"); raw != nil {
		if strings.TrimSpace(*raw) == "" {
			e.ClearTakeProfit = true
		} else if e.TakeProfit, err = price("tp"); err != nil {
			return e, err
		}
	}
	if v := str("direction"); v != nil {
		d := models.ParseDirection(*v)
		e.Direction = &d
	}
	if v := str("strategy"); v != nil {
		s := models.ParseStrategy(*v)
		e.Strategy = &s
	}
	if v := str("style"); v != nil {
		s := models.ParseStyle(*v)
		e.Style = &s
	}
	e.EntryCandleNumber = str("entry-candle")
	e.ExitCandleNumber = str("exit-candle")
	e.MarketContext = str("context")
	if f.Changed("emotional") {
		v, _ := f.GetBool("emotional")
		e.IsEmotional = &v
	}
	if f.Changed("confidence") {
		v, _ := f.GetInt("confidence")
		e.Confidence = &v
	}
	if path := str("chart"); path != nil {
		url, err := imageDataURL(*path)
		if err != nil {
			return e, err
		}
		e.ChartImage = &url
	}
	return e, nil
}

func newTradeNoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text...>",
		Short: "Replace the review notes of a trade",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			id, err := resolveID(app, args[0])
			if err != nil {
				return err
			}
			t, err := app.Journal.SetNotes(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil && !reportWarning(output, err) {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("Notes saved for %s", shortID(t.ID))
			return nil
		},
	}
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a trade permanently",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			id, err := resolveID(app, args[0])
			if err != nil {
				return err
			}
			t, err := app.Journal.Trade(id)
			if err != nil {
				return err
			}
			if !yes {
				prompter := NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				question := fmt.Sprintf("Delete %s %s %s from %s? This cannot be undone.", t.Asset, t.Direction, shortID(t.ID), t.Date)
				ok, err := prompter.Confirm(question, false)
				if err != nil {
					return err
				}
				if !ok {
					output.Info("Nothing deleted")
					return nil
				}
			}

			if err := app.Journal.Delete(cmd.Context(), id); err != nil && !reportWarning(output, err) {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": id})
			}
			output.Success("Trade %s deleted", shortID(id))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func newTradeAnalyzeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <id>",
		Short: "Ask the AI coach to review a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			id, err := resolveID(app, args[0])
			if err != nil {
				return err
			}
			if !output.IsJSON() {
				output.Dim("Reviewing trade %s with %s...", shortID(id), app.Coach.Model())
			}

			t, err := app.Journal.Analyze(cmd.Context(), id)
			if err != nil && !reportWarning(output, err) {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}
			score := 0
			if t.AIScore != nil {
				score = *t.AIScore
			}
			output.Box("AI coach "+strconv.Itoa(score)+"/10", wrapText(t.AIFeedback, 72))
			return nil
		},
	}
}

// wrapText breaks s into lines of at most width runes on word boundaries.
func wrapText(s string, width int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			if line != "" && len([]rune(line))+1+len([]rune(word)) > width {
				lines = append(lines, line)
				line = ""
			}
			if line != "" {
				line += " "
			}
			line += word
		}
		lines = append(lines, line)
	}
	return lines
}

// warnOvertrading prints the daily-limit warning when it applies.
func warnOvertrading(output *Output, app *App) {
	daily := app.Journal.Daily()
	if daily.Overtrading {
		output.Warning("%d trades on %s exceeds your limit of %d. Overtrading is a leak.",
			daily.Total, daily.Date, app.Journal.DailyTradeLimit())
	}
}

func newTradeSearchCmd(app *App) *cobra.Command {
	var asset, strategy string

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search trades across all dates",
		Long:  "Search trades by market context, notes or AI feedback.",
		Example: `  mindful trade search revenge
  mindful trade search --strategy PULLBACK
  mindful trade search "key level" --asset NQ`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			query := ""
			if len(args) > 0 {
				query = args[0]
			}

			var found []models.Trade
			for _, t := range app.Journal.All() {
				if asset != "" && t.Asset != models.ParseAsset(asset) {
					continue
				}
				if strategy != "" && t.Strategy != models.ParseStrategy(strategy) {
					continue
				}
				if query != "" && !containsIgnoreCase(t.MarketContext+"\n"+t.UserNotes+"\n"+t.AIFeedback, query) {
					continue
				}
				found = append(found, t)
			}

			if output.IsJSON() {
				if found == nil {
					found = []models.Trade{}
				}
				return output.JSON(found)
			}
			if len(found) == 0 {
				output.Info("No matching trades found.")
				return nil
			}

			output.Printf("Found %d trades\n\n", len(found))
			table := NewTable(output, "ID", "DATE", "ASSET", "RESULT", "CONTEXT")
			for _, t := range found {
				table.AddRow(shortID(t.ID), t.Date, string(t.Asset), output.statusCell(t), TruncateString(t.MarketContext, 40))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&asset, "asset", "", "only this asset")
	cmd.Flags().StringVar(&strategy, "strategy", "", "only this strategy")
	return cmd
}

// containsIgnoreCase checks if s contains substr (case-insensitive)
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
