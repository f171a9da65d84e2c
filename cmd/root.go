package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/plex2letterboxd/config"
	"github.com/s0up4200/plex2letterboxd/plex"
)

var (
	cfgFile    string
	cfg        *config.Config
	logger     zerolog.Logger
	plexClient *plex.Client

	// Command flags
	dryRun bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "plex2letterboxd",
	Short: "Export Plex watch history for import into Letterboxd",
	Long: `plex2letterboxd reads the watch history of a Plex Media Server library
and writes it as a CSV file that Letterboxd's diary importer understands.

Configuration is read from config.yaml or from the environment
(PLEX_URL, PLEX_TOKEN, PLEX_LIBRARY, OUTPUT_CSV).`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "d", false, "resolve everything but do not write the CSV file")

	// Add subcommands
	rootCmd.AddCommand(testCmd)
}

// initializeApp initializes the configuration and clients
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	// Override dry-run from command line if specified
	if cmd.Flags().Changed("dry-run") {
		cfg.Export.DryRun = dryRun
	}

	plexClient, err = plex.NewClient(cfg.Plex.URL, cfg.Plex.Token, logger,
		plex.WithTimeout(cfg.Plex.Timeout),
		plex.WithAccountID(cfg.Plex.AccountID),
		plex.WithRateLimit(cfg.Plex.RateLimit, 1),
	)
	if err != nil {
		return fmt.Errorf("failed to create Plex client: %w", err)
	}

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format; colors only make sense on a terminal
	fd := os.Stderr.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !tty,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connection to Plex",
	Long:  `Test the connection to your Plex Media Server and resolve the configured library.`,
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Printf("Testing connection to Plex at %s...\n", plexClient.BaseURL())

	if err := plexClient.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	fmt.Println("✓ Connection successful!")

	sectionID, err := plexClient.ResolveSectionID(ctx, cfg.Plex.Library)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Library %q resolved (location id %s)\n", cfg.Plex.Library, sectionID)

	page, err := plexClient.FetchHistoryPage(ctx, 0, 1, sectionID)
	if err != nil {
		return fmt.Errorf("failed to read watch history: %w", err)
	}
	if page.TotalSize > 0 {
		fmt.Printf("- Watch history entries: %d\n", page.TotalSize)
	} else {
		fmt.Printf("- Watch history reachable (%d entries on first page)\n", len(page.Records))
	}

	return nil
}
