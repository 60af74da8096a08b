// Package cli provides the command-line interface for the trading journal.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mindful-trader/internal/coach"
	"mindful-trader/internal/config"
	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/journal"
	"mindful-trader/internal/logging"
	"mindful-trader/internal/security"
	"mindful-trader/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Slot    store.Slot
	Store   *store.TradeStore
	Coach   *coach.Client
	Journal *journal.Journal

	// Now is the clock used for default dates and backup names.
	Now func() time.Time
}

// NewApp wires the journal from cfg and loads the persisted trades. A load
// warning is logged and the app starts with an empty journal.
func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	slot, err := store.Open(cfg.Storage.Backend, cfg.Storage.Dir, cfg.Storage.QuotaBytes)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	trades := store.NewTradeStore(slot, cfg.Storage.Key, logger)
	if err := trades.Load(ctx); err != nil && !apperrors.IsWarning(err) {
		slot.Close()
		return nil, err
	}

	client := coach.NewClient(coach.Config{
		APIKey:            cfg.Credentials.OpenAI.APIKey,
		Model:             cfg.Coach.Model,
		BaseURL:           cfg.Coach.BaseURL,
		RequestsPerMinute: cfg.Coach.RequestsPerMinute,
		MaxAttempts:       cfg.Coach.MaxAttempts,
		RequestTimeout:    cfg.Coach.RequestTimeout,
		BreakerThreshold:  cfg.Coach.BreakerThreshold,
		BreakerCooldown:   cfg.Coach.BreakerCooldown,
	}, logger)
	logger.Debug().
		Str("backend", cfg.Storage.Backend).
		Str("model", client.Model()).
		Str("api_key", security.MaskCredential(cfg.Credentials.OpenAI.APIKey)).
		Int("trades", trades.Len()).
		Msg("Journal initialized")

	app := &App{
		Config: cfg,
		Logger: logger,
		Slot:   slot,
		Store:  trades,
		Coach:  client,
		Now:    time.Now,
	}
	app.Journal = journal.New(trades, client, journal.Options{
		DailyTradeLimit: cfg.Journal.DailyTradeLimit,
		Now:             func() time.Time { return app.Now() },
		NewSession:      client.NewSession,
		Logger:          logger,
	})
	return app, nil
}

// Close releases the storage backend.
func (a *App) Close() error {
	if a.Slot == nil {
		return nil
	}
	return a.Slot.Close()
}

// NewRootCmd creates the root command. Configuration is loaded from the
// --config directory when the first command runs.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mindful",
		Short: "Mindful Trader - a trading journal with an AI coach",
		Long: `Mindful Trader is a personal trading journal.

Log discretionary trades together with your state of mind, review daily
results and ask an AI coach for feedback on individual trades.

Use 'mindful help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return err
			}
			if date, _ := cmd.Flags().GetString("date"); date != "" {
				return app.Journal.SelectDate(date)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/mindful-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("date", "", "journal date to work on (YYYY-MM-DD, default: today)")

	addCoreCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addStatsCommands(rootCmd, app)
	addChatCommands(rootCmd, app)
	addBackupCommands(rootCmd, app)
	addServeCommands(rootCmd, app)
	addHelpCommands(rootCmd, app)

	return rootCmd
}

// init loads configuration and wires the journal unless already done.
func (a *App) init(cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")
	if a.Journal != nil {
		if debug {
			a.Logger = a.Logger.Level(zerolog.DebugLevel)
		}
		return nil
	}

	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	logger := logging.NewLoggerWithConfig(cfg.LogConfig())

	built, err := NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	*a = *built
	return nil
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Mindful Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(redacted(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": app.Config.Dir})
			} else {
				output.Println(app.Config.Dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			if !app.Config.HasAPIKey() {
				output.Warning("No coaching API key configured; analysis and chat will use fallback replies")
			}
			return nil
		},
	})

	return cmd
}

// redacted returns a copy of cfg safe to print.
func redacted(cfg *config.Config) config.Config {
	c := *cfg
	c.Credentials.OpenAI.APIKey = security.MaskCredential(c.Credentials.OpenAI.APIKey)
	return c
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Storage")
	output.Printf("  Backend:         %s\n", cfg.Storage.Backend)
	output.Printf("  Directory:       %s\n", cfg.Storage.Dir)
	output.Printf("  Key:             %s\n", cfg.Storage.Key)
	output.Printf("  Quota:           %d bytes\n", cfg.Storage.QuotaBytes)
	output.Println()

	output.Bold("Journal")
	output.Printf("  Daily limit:     %d trades\n", cfg.Journal.DailyTradeLimit)
	output.Printf("  Timeframe:       %s\n", cfg.Journal.DefaultTimeframe)
	output.Println()

	output.Bold("Coach")
	output.Printf("  Model:           %s\n", cfg.Coach.Model)
	output.Printf("  Base URL:        %s\n", orDash(cfg.Coach.BaseURL))
	output.Printf("  Requests/min:    %d\n", cfg.Coach.RequestsPerMinute)
	output.Printf("  Max attempts:    %d\n", cfg.Coach.MaxAttempts)
	output.Printf("  Breaker:         %d failures, %s cooldown\n", cfg.Coach.BreakerThreshold, cfg.Coach.BreakerCooldown)
	output.Printf("  Timeout:         %s\n", cfg.Coach.RequestTimeout)
	output.Printf("  API key:         %s\n", orDash(security.MaskCredential(cfg.Credentials.OpenAI.APIKey)))
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr)
	output.Printf("  Mode:            %s\n", cfg.Server.Mode)
}

// reportWarning prints a storage warning for err and reports whether err was
// only a warning. Refusals are returned to the caller untouched.
func reportWarning(output *Output, err error) bool {
	if err == nil || !apperrors.IsWarning(err) {
		return false
	}
	output.Warning("Saved in memory only: %v", err)
	return true
}
