// Package export turns a Plex watch history into Letterboxd import rows.
//
// History is pulled strictly in order from a plex.WatchHistory. Records are
// grouped into batches so that the metadata lookups of one batch can run
// concurrently; rows are still written in history order.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/plex2letterboxd/filter"
	"github.com/s0up4200/plex2letterboxd/letterboxd"
	"github.com/s0up4200/plex2letterboxd/plex"
)

const (
	DefaultConcurrency = 4
	DefaultBatchSize   = 50
	DefaultCacheSize   = 1024
)

// DefaultIDSchemes is the identifier preference used when none is configured
var DefaultIDSchemes = []string{"imdb", "tmdb"}

// Source yields history records until it returns plex.ErrExhausted
type Source interface {
	Next(ctx context.Context) (plex.HistoryRecord, error)
}

// RowWriter receives rows in history order
type RowWriter interface {
	Write(row letterboxd.Row) error
}

// Options configures an Exporter
type Options struct {
	// Filter drops records before any metadata is fetched; nil keeps all
	Filter *filter.Filter
	// IDSchemes lists identifier schemes by preference. Only the first one
	// present on an item is written.
	IDSchemes   []string
	Tags        string
	Concurrency int
	BatchSize   int
	CacheSize   int
}

// Stats summarises one run
type Stats struct {
	Processed    int
	Written      int
	Filtered     int
	NoRatingKey  int
	NoExternalID int
	MissingItem  int
	Lookups      int
	CacheHits    int
}

// Skipped returns the number of records that produced no row
func (s Stats) Skipped() int {
	return s.Filtered + s.NoRatingKey + s.NoExternalID + s.MissingItem
}

// Exporter resolves history records to rows
type Exporter struct {
	metadata plex.MetadataFetcher
	logger   zerolog.Logger
	opts     Options
	cache    *lruCache[string, *plex.MediaItemMetadata]
}

// New creates an Exporter. Zero options fall back to the defaults.
func New(metadata plex.MetadataFetcher, logger zerolog.Logger, opts Options) *Exporter {
	if len(opts.IDSchemes) == 0 {
		opts.IDSchemes = DefaultIDSchemes
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}

	return &Exporter{
		metadata: metadata,
		logger:   logger.With().Str("component", "export").Logger(),
		opts:     opts,
		cache:    newLRUCache[string, *plex.MediaItemMetadata](opts.CacheSize),
	}
}

// Run drains history into out. Rows resolved before a failure are written
// before the error is returned.
func (e *Exporter) Run(ctx context.Context, history Source, out RowWriter) (Stats, error) {
	var stats Stats

	for {
		batch, srcErr := e.nextBatch(ctx, history)
		if len(batch) > 0 {
			if err := e.processBatch(ctx, batch, out, &stats); err != nil {
				return stats, err
			}
		}
		if srcErr != nil {
			if errors.Is(srcErr, plex.ErrExhausted) {
				break
			}
			return stats, fmt.Errorf("failed to read watch history: %w", srcErr)
		}
	}

	e.logger.Info().
		Int("processed", stats.Processed).
		Int("written", stats.Written).
		Int("skipped", stats.Skipped()).
		Int("lookups", stats.Lookups).
		Int("cache_hits", stats.CacheHits).
		Msg("Export finished")

	return stats, nil
}

// nextBatch reads up to BatchSize records. The error, if any, is the one
// that ended the batch early.
func (e *Exporter) nextBatch(ctx context.Context, history Source) ([]plex.HistoryRecord, error) {
	batch := make([]plex.HistoryRecord, 0, e.opts.BatchSize)
	for len(batch) < e.opts.BatchSize {
		record, err := history.Next(ctx)
		if err != nil {
			return batch, err
		}
		batch = append(batch, record)
	}
	return batch, nil
}

func (e *Exporter) processBatch(ctx context.Context, batch []plex.HistoryRecord, out RowWriter, stats *Stats) error {
	eligible := make([]plex.HistoryRecord, 0, len(batch))
	for _, record := range batch {
		stats.Processed++
		e.logger.Debug().Str("title", record.Title).Str("viewed_at", record.ViewedAt).Msg("Processing")

		if e.opts.Filter != nil {
			ok, err := e.opts.Filter.Match(record)
			if err != nil {
				return err
			}
			if !ok {
				stats.Filtered++
				continue
			}
		}

		if record.RatingKey == nil {
			stats.NoRatingKey++
			e.logger.Info().Str("title", record.Title).Msg("Skipping: missing rating key")
			continue
		}
		eligible = append(eligible, record)
	}

	items, err := e.resolve(ctx, eligible, stats)
	if err != nil {
		return err
	}

	for _, record := range eligible {
		item := items[*record.RatingKey]
		if item == nil {
			stats.MissingItem++
			e.logger.Info().Str("title", record.Title).Str("rating_key", *record.RatingKey).
				Msg("Skipping: item no longer exists on the server")
			continue
		}

		row, ok := e.row(record, item)
		if !ok {
			stats.NoExternalID++
			e.logger.Info().Str("title", record.Title).Strs("schemes", e.opts.IDSchemes).
				Msg("Skipping: missing external id")
			continue
		}

		if err := out.Write(row); err != nil {
			return err
		}
		stats.Written++
	}

	return nil
}

// resolve fetches metadata for every distinct rating key in records, using
// the cache first. Items the server reports as gone map to nil.
func (e *Exporter) resolve(ctx context.Context, records []plex.HistoryRecord, stats *Stats) (map[string]*plex.MediaItemMetadata, error) {
	items := make(map[string]*plex.MediaItemMetadata, len(records))
	var missing []string
	for _, record := range records {
		key := *record.RatingKey
		if _, seen := items[key]; seen {
			continue
		}
		if item, ok := e.cache.Get(key); ok {
			items[key] = item
			stats.CacheHits++
			continue
		}
		items[key] = nil
		missing = append(missing, key)
	}
	if len(missing) == 0 {
		return items, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	var mu sync.Mutex
	for _, key := range missing {
		g.Go(func() error {
			item, err := e.metadata.FetchMediaItemMetadata(ctx, key)
			if err != nil {
				if !plex.IsNotFound(err) {
					return fmt.Errorf("failed to get metadata for rating key %s: %w", key, err)
				}
				item = nil
			}

			e.cache.Put(key, item)
			mu.Lock()
			items[key] = item
			mu.Unlock()
			return nil
		})
	}

	stats.Lookups += len(missing)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// row builds the output row from the preferred identifier
func (e *Exporter) row(record plex.HistoryRecord, item *plex.MediaItemMetadata) (letterboxd.Row, bool) {
	scheme, id, ok := item.PreferredID(e.opts.IDSchemes...)
	if !ok {
		return letterboxd.Row{}, false
	}

	row := letterboxd.Row{
		Title:       record.Title,
		WatchedDate: record.ViewedAt,
		Tags:        e.opts.Tags,
	}
	switch strings.ToLower(scheme) {
	case "imdb":
		row.IMDbID = id
	case "tmdb":
		row.TMDbID = id
	default:
		return letterboxd.Row{}, false
	}
	return row, true
}
