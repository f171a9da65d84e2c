package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/s0up4200/plex2letterboxd/export"
	"github.com/s0up4200/plex2letterboxd/filter"
	"github.com/s0up4200/plex2letterboxd/letterboxd"
	"github.com/s0up4200/plex2letterboxd/plex"
)

var (
	outputPath  string
	libraryName string
	filterExpr  string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export watch history to a Letterboxd CSV file",
	Long: `Read the full watch history of the configured library, most recent first,
look up the IMDb/TMDb id of every viewing and write a Letterboxd import file.

Entries without a rating key or without a usable external id are skipped.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output CSV path (default from config)")
	exportCmd.Flags().StringVarP(&libraryName, "library", "l", "", "library name (default from config)")
	exportCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "only export records matching this expression")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	library := firstNonEmpty(libraryName, cfg.Plex.Library)
	output := firstNonEmpty(outputPath, cfg.Export.Output)
	expression := firstNonEmpty(filterExpr, cfg.Export.Filter)

	var recordFilter *filter.Filter
	if expression != "" {
		var err error
		recordFilter, err = filter.Compile(expression)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
		logger.Info().Str("filter", expression).Msg("Filtering watch history")
	}

	sectionID, err := plexClient.ResolveSectionID(ctx, library)
	if err != nil {
		return err
	}

	exporter := export.New(plexClient, logger, export.Options{
		Filter:      recordFilter,
		IDSchemes:   cfg.Export.IDSchemes,
		Tags:        cfg.Export.Tags,
		Concurrency: cfg.Export.Concurrency,
	})
	var history export.Source = plexClient.WatchHistory(sectionID)
	if bar := newProgressBar(); bar != nil {
		defer bar.Finish()
		history = &progressSource{Source: history, bar: bar}
	}

	logger.Info().Str("library", library).Str("section_id", sectionID).Msg("Exporting watch history")

	if cfg.Export.DryRun {
		w, err := letterboxd.NewWriter(io.Discard)
		if err != nil {
			return err
		}
		stats, err := exporter.Run(ctx, history, w)
		if err != nil {
			return err
		}
		printSummary(stats, "")
		fmt.Printf("[DRY RUN] Would write %d rows to %s\n", stats.Written, output)
		return nil
	}

	file, err := letterboxd.Create(output)
	if err != nil {
		return err
	}
	defer file.Abort()

	resolved := &rowLog{RowWriter: file}
	stats, err := exporter.Run(ctx, history, resolved)
	if err != nil {
		logger.Error().Int("resolved_rows", stats.Written).Str("output", output).
			Msg("Export aborted, existing output left unchanged")
		if partial, saveErr := savePartial(output, resolved.rows); saveErr != nil {
			logger.Warn().Err(saveErr).Msg("Failed to save partial export")
		} else if partial != "" {
			logger.Warn().Str("path", partial).Int("rows", len(resolved.rows)).Msg("Saved partial export")
		}
		return err
	}

	if err := file.Commit(); err != nil {
		return err
	}

	printSummary(stats, output)
	return nil
}

func printSummary(stats export.Stats, output string) {
	fmt.Printf("\nProcessed %d watch history entries\n", stats.Processed)
	if output != "" {
		fmt.Printf("✓ Wrote %d rows to %s\n", stats.Written, output)
	}
	if stats.Skipped() == 0 {
		return
	}
	fmt.Printf("Skipped %d:\n", stats.Skipped())
	if stats.Filtered > 0 {
		fmt.Printf("  • %d filtered out\n", stats.Filtered)
	}
	if stats.NoRatingKey > 0 {
		fmt.Printf("  • %d without rating key\n", stats.NoRatingKey)
	}
	if stats.MissingItem > 0 {
		fmt.Printf("  • %d no longer in the library\n", stats.MissingItem)
	}
	if stats.NoExternalID > 0 {
		fmt.Printf("  • %d without an external id\n", stats.NoExternalID)
	}
}

// rowLog keeps a copy of every row written through it.
type rowLog struct {
	export.RowWriter
	rows []letterboxd.Row
}

func (l *rowLog) Write(row letterboxd.Row) error {
	if err := l.RowWriter.Write(row); err != nil {
		return err
	}
	l.rows = append(l.rows, row)
	return nil
}

// savePartial writes rows next to output with a .partial suffix and returns
// that path. Nothing is written when rows is empty.
func savePartial(output string, rows []letterboxd.Row) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	path := output + ".partial"
	file, err := letterboxd.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Abort()

	for _, row := range rows {
		if err := file.Write(row); err != nil {
			return "", err
		}
	}
	if err := file.Commit(); err != nil {
		return "", err
	}
	return path, nil
}

// progressSource ticks a spinner for every record read from history.
type progressSource struct {
	export.Source
	bar *progressbar.ProgressBar
}

func (p *progressSource) Next(ctx context.Context) (plex.HistoryRecord, error) {
	record, err := p.Source.Next(ctx)
	if err == nil {
		_ = p.bar.Add(1)
	}
	return record, err
}

// newProgressBar returns nil unless stderr is an interactive console log.
func newProgressBar() *progressbar.ProgressBar {
	fd := os.Stderr.Fd()
	if cfg.Logging.Format == "json" || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("reading history"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
