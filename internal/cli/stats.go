package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mindful-trader/internal/models"
	"mindful-trader/internal/stats"
)

// addStatsCommands adds performance summary commands.
func addStatsCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatsCmd(app))
}

// statsReport is the JSON form of the stats command.
type statsReport struct {
	Daily      models.DailyStats `json:"daily"`
	AllTime    float64           `json:"allTimePoints"`
	Limit      int               `json:"dailyTradeLimit"`
	ByStrategy []stats.Group     `json:"byStrategy,omitempty"`
	ByMindset  []stats.Group     `json:"byMindset,omitempty"`
	ByConf     []stats.Group     `json:"byConfidence,omitempty"`
}

func newStatsCmd(app *App) *cobra.Command {
	var breakdown bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the daily summary and all-time result",
		Long: `Show the summary of the selected date (see --date) together with the
all-time result. --by-strategy adds breakdowns of every closed trade by
strategy, mindset and confidence.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			report := statsReport{
				Daily:   app.Journal.Daily(),
				AllTime: app.Journal.AllTime(),
				Limit:   app.Journal.DailyTradeLimit(),
			}
			if breakdown {
				all := app.Journal.All()
				report.ByStrategy = stats.ByStrategy(all)
				report.ByMindset = stats.ByMindset(all)
				report.ByConf = stats.ByConfidence(all)
			}
			if output.IsJSON() {
				return output.JSON(report)
			}

			printDaily(output, report)
			if breakdown {
				printGroups(output, "By strategy", report.ByStrategy)
				printGroups(output, "By mindset", report.ByMindset)
				printGroups(output, "By confidence", report.ByConf)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&breakdown, "by-strategy", false, "add breakdowns across all dates")
	return cmd
}

func printDaily(output *Output, r statsReport) {
	d := r.Daily
	outcome := string(d.Outcome)
	switch d.Outcome {
	case models.OutcomeProfit:
		outcome = output.Green(outcome)
	case models.OutcomeLoss:
		outcome = output.Red(outcome)
	}

	output.Box(FormatDateLabel(d.Date), []string{
		fmt.Sprintf("Trades:     %d (%d closed)", d.Total, d.ClosedCount),
		fmt.Sprintf("Result:     %s  %s", output.FormatPoints(d.Points), outcome),
		fmt.Sprintf("Wins/Loss:  %d / %d", d.Wins, d.Losses),
		fmt.Sprintf("Win rate:   %d%%", d.WinRate),
		fmt.Sprintf("All time:   %s", output.FormatPoints(r.AllTime)),
	})
	if d.Overtrading {
		output.Warning("Overtrading: %d trades today, your limit is %d", d.Total, r.Limit)
	}
}

func printGroups(output *Output, title string, groups []stats.Group) {
	output.Println()
	output.Bold(title)
	if len(groups) == 0 {
		output.Dim("  no trades")
		return
	}
	table := NewTable(output, "GROUP", "TRADES", "CLOSED", "WINS", "LOSSES", "WIN RATE", "RESULT")
	for _, g := range groups {
		table.AddRow(
			groupLabel(g.Key),
			fmt.Sprint(g.Total),
			fmt.Sprint(g.Closed),
			fmt.Sprint(g.Wins),
			fmt.Sprint(g.Losses),
			fmt.Sprintf("%d%%", g.WinRate),
			output.FormatPoints(g.Points),
		)
	}
	table.Render()
}

func groupLabel(key string) string {
	if s := models.Strategy(key); s.Valid() {
		return s.Label()
	}
	return key
}
