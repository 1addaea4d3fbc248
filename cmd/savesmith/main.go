// Command savesmith is a terminal client for the local save-game editor
// backend. Without arguments it starts the interactive editor; subcommands
// inspect and edit saves from scripts.
package main

import (
	"fmt"
	"os"
	"time"

	"savesmith/internal/config"
	"savesmith/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	backendURL string
	verbose    bool
	timeout    time.Duration

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "savesmith [save]",
	Short: "savesmith - character editor for role-playing game saves",
	Long: `savesmith edits characters stored in game save files through the local
editor backend.

Run without arguments to start the interactive editor. The editor waits for
the backend to finish loading game data, lets you pick a save and shows the
character in tabs (abilities, classes, skills, feats, spells, inventory,
combat).`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		if err := logging.Initialize(cfg.LogsDir(), cfg.Logging); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		}

		// The interactive editor owns the terminal.
		if cmd == cmd.Root() {
			logger = zap.NewNop()
			return nil
		}

		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runInteractive,
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if backendURL != "" {
		loaded.Backend.BaseURL = backendURL
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.savesmith/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend-url", "", "Backend API base URL (or set SAVESMITH_BACKEND_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout for one-shot commands")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(savesCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(featCmd)
	rootCmd.AddCommand(spellCmd)
	rootCmd.AddCommand(itemCmd)
	rootCmd.AddCommand(goldCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
