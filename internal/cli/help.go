package cli

import (
	"github.com/spf13/cobra"
)

// addHelpCommands adds help and documentation commands.
func addHelpCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newCommandsCmd())
	rootCmd.AddCommand(newExamplesCmd())
	rootCmd.AddCommand(newQuickstartCmd(app))
}

type helpEntry struct {
	cmd  string
	desc string
}

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List all commands by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Mindful Trader Commands")
			output.Println()

			categories := []struct {
				name     string
				commands []helpEntry
			}{
				{"Recording", []helpEntry{
					{"trade add -i", "Mindset check, then trade details"},
					{"trade close <id> --exit <price>", "Record the exit"},
					{"trade edit <id> [flags]", "Correct a trade"},
					{"trade note <id> <text>", "Replace review notes"},
					{"trade delete <id>", "Delete a trade"},
				}},
				{"Review", []helpEntry{
					{"trade list [--all]", "Trades of the selected date"},
					{"trade show <id>", "Full trade record"},
					{"trade search <text>", "Find trades by notes, context or feedback"},
					{"stats [--by-strategy]", "Daily summary and all-time result"},
				}},
				{"Coaching", []helpEntry{
					{"trade analyze <id>", "AI review with a 0-10 score"},
					{"chat", "Talk to the psychology coach"},
				}},
				{"Data", []helpEntry{
					{"backup export [--format]", "Write a backup file"},
					{"backup import <file>", "Replace the journal with a backup"},
					{"backup reset", "Delete everything"},
					{"serve", "Local JSON API"},
				}},
				{"Setup", []helpEntry{
					{"config show|path|validate", "Inspect configuration"},
					{"version", "Print version"},
				}},
			}

			for _, cat := range categories {
				output.Printf("%s\n", output.Cyan(cat.name))
				for _, c := range cat.commands {
					output.Printf("  %-34s %s\n", c.cmd, output.DimText(c.desc))
				}
				output.Println()
			}
			output.Dim("Global flags: --date YYYY-MM-DD, --json, --no-color, --debug, --config DIR")
			return nil
		},
	}
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Common Workflow Examples")
			output.Println()

			examples := []struct {
				title    string
				commands []string
			}{
				{"Log a trade as it happens", []string{
					"mindful trade add -i",
					"mindful trade close 3f2a9c1d --exit 18265.25 --notes \"took profit at prior high\"",
					"mindful trade analyze 3f2a9c1d",
				}},
				{"Enter yesterday's trades", []string{
					"mindful --date 2026-10-17 trade add --emotional=false --context \"range\" \\",
					"    --asset ES --direction SHORT --entry 5840 --stop 5846 --exit 5831",
					"mindful --date 2026-10-17 stats",
				}},
				{"Weekly review", []string{
					"mindful trade list --all",
					"mindful stats --by-strategy",
					"mindful trade search revenge",
				}},
				{"Move to a new machine", []string{
					"mindful backup export --out journal.json",
					"mindful backup import journal.json",
				}},
			}

			for _, ex := range examples {
				output.Printf("%s\n", output.Cyan(ex.title))
				for _, c := range ex.commands {
					output.Printf("  %s\n", c)
				}
				output.Println()
			}
			return nil
		},
	}
}

func newQuickstartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "New user guide",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Mindful Trader - Quick Start Guide")
			output.Println()

			steps := []struct {
				title string
				desc  string
				cmd   string
			}{
				{"Add an API key", "The coach needs an OpenAI-compatible key in credentials.toml or OPENAI_API_KEY.", "mindful config path"},
				{"Check your mindset", "Every trade starts with an honest answer about your emotional state.", "mindful trade add -i"},
				{"Close the trade", "Record the exit; the result in points is calculated for you.", "mindful trade close <id> --exit <price>"},
				{"Ask the coach", "Get a short review of the execution with a score out of 10.", "mindful trade analyze <id>"},
				{"Review the day", "Stop when the overtrading warning shows up.", "mindful stats"},
			}
			for i, s := range steps {
				output.Printf("%s Step %d: %s\n", output.Cyan(">"), i+1, output.BoldText(s.title))
				output.Printf("  %s\n", s.desc)
				output.Printf("  %s\n\n", output.DimText(s.cmd))
			}

			output.Bold("Configuration Files")
			output.Printf("  %s - coaching API key\n", output.Cyan("credentials.toml"))
			output.Printf("  %s - storage, daily trade limit, coach model\n", output.Cyan("config.toml"))
			output.Printf("  %s\n", output.DimText(app.Config.Dir))
			output.Println()

			if !app.Config.HasAPIKey() {
				output.Warning("No API key configured yet; analysis and chat will reply with fallback messages.")
			}
			return nil
		},
	}
}
