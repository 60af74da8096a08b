package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
)

// addChatCommands adds the coaching conversation command.
func addChatCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newChatCmd(app))
}

func newChatCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message...]",
		Short: "Talk to the trading psychology coach",
		Long: `Talk to the trading psychology coach.

With a message the reply is printed and the command exits. Without one an
interactive conversation starts; type /exit or press Ctrl-D to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if len(args) > 0 {
				reply, err := app.Journal.Chat(cmd.Context(), strings.Join(args, " "))
				if err != nil && reply.Text == "" {
					return err
				}
				if output.IsJSON() {
					return output.JSON(app.Journal.ChatHistory())
				}
				printReply(output, reply)
				return nil
			}
			return chatLoop(cmd, output, app)
		},
	}
}

func chatLoop(cmd *cobra.Command, output *Output, app *App) error {
	if !app.Coach.Ready() {
		output.Warning("No coaching API key configured; replies will be fallback messages")
	}
	output.Info("Coach ready. What's on your mind? (/exit to leave)")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		output.Printf("%s ", output.BoldText("you>"))
		if !scanner.Scan() {
			output.Println()
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/history":
			for _, m := range app.Journal.ChatHistory() {
				printReply(output, m)
			}
			continue
		}

		reply, err := app.Journal.Chat(cmd.Context(), text)
		if err != nil {
			app.Logger.Debug().Err(err).Msg("Chat reply failed")
			if reply.Text == "" {
				if apperrors.Is(err, apperrors.ErrEmptyMessage) {
					continue
				}
				return err
			}
		}
		printReply(output, reply)
	}
}

func printReply(output *Output, m models.ChatMessage) {
	if m.Role == models.RoleUser {
		output.Printf("%s %s\n", output.BoldText("you>"), m.Text)
		return
	}
	output.Printf("%s %s\n", output.Magenta("coach>"), m.Text)
}
