package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mindful-trader/internal/backup"
)

// addBackupCommands adds export, import and reset commands.
func addBackupCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export, import or reset the journal",
	}
	cmd.AddCommand(newBackupExportCmd(app))
	cmd.AddCommand(newBackupImportCmd(app))
	cmd.AddCommand(newBackupResetCmd(app))
	rootCmd.AddCommand(cmd)
}

func newBackupExportCmd(app *App) *cobra.Command {
	var formatName, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every trade to a backup file",
		Long: `Write every trade to a backup file. JSON and YAML backups can be imported
again; CSV is a flat report without chart images. Use --out - for stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			format, err := backup.ParseFormat(formatName)
			if err != nil {
				return err
			}
			trades := app.Journal.All()

			if out == "-" {
				return backup.Export(cmd.OutOrStdout(), trades, format)
			}
			if out == "" {
				out = backup.FileName(app.Now(), format)
			}
			if err := writeFileAtomic(out, func(w io.Writer) error {
				return backup.Export(w, trades, format)
			}); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]any{"path": out, "count": len(trades), "format": format})
			}
			output.Success("Exported %d trades to %s", len(trades), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "json", "json, yaml or csv")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: mindful_trader_backup_<date>.<format>)")
	return cmd
}

// writeFileAtomic writes path through a temporary file in the same directory.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mindful-export-*")
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func newBackupImportCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the journal with a backup",
		Long: `Replace every trade in the journal with the trades of a JSON or YAML backup.
The document is checked before anything changes; a rejected document leaves
the journal untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			trades, err := backup.Decode(f, backup.FormatOf(path))
			if err != nil {
				return err
			}

			if !yes {
				prompter := NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				question := fmt.Sprintf("Replace %d trades with %d trades from %s?", len(app.Journal.All()), len(trades), filepath.Base(path))
				ok, err := prompter.Confirm(question, false)
				if err != nil {
					return err
				}
				if !ok {
					output.Info("Import cancelled")
					return nil
				}
			}

			if err := app.Journal.ApplyImport(cmd.Context(), trades); err != nil && !reportWarning(output, err) {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]any{"imported": len(trades), "selectedDate": app.Journal.SelectedDate()})
			}
			output.Success("Imported %d trades", len(trades))
			output.Dim("Selected date: %s", app.Journal.SelectedDate())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func newBackupResetCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every trade and start over",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !yes {
				output.Warning("This deletes all %d trades. Export a backup first if you want to keep them.", len(app.Journal.All()))
				prompter := NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				ok, err := prompter.Confirm("Reset the journal?", false)
				if err != nil {
					return err
				}
				if !ok {
					output.Info("Nothing changed")
					return nil
				}
			}

			if err := app.Journal.Reset(cmd.Context()); err != nil && !reportWarning(output, err) {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"reset": true})
			}
			output.Success("Journal reset")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
