package export

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/s0up4200/plex2letterboxd/filter"
	"github.com/s0up4200/plex2letterboxd/letterboxd"
	"github.com/s0up4200/plex2letterboxd/plex"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockMetadata implements plex.MetadataFetcher for testing
type mockMetadata struct {
	mu    sync.Mutex
	items map[string]*plex.MediaItemMetadata
	errs  map[string]error
	calls map[string]int
}

func (m *mockMetadata) FetchMediaItemMetadata(ctx context.Context, itemID string) (*plex.MediaItemMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[itemID]++

	if err, ok := m.errs[itemID]; ok {
		return nil, err
	}
	if item, ok := m.items[itemID]; ok {
		return item, nil
	}
	return nil, &plex.APIError{Endpoint: "/library/metadata/" + itemID, StatusCode: 404}
}

// mockPager serves records page by page, optionally failing one call
type mockPager struct {
	records []plex.HistoryRecord
	failAt  int
	err     error
	calls   int
}

func (p *mockPager) FetchHistoryPage(ctx context.Context, offset, pageSize uint32, sectionID string) (*plex.HistoryPage, error) {
	call := p.calls
	p.calls++
	if p.err != nil && call == p.failAt {
		return nil, p.err
	}
	start := min(int(offset), len(p.records))
	end := min(start+int(pageSize), len(p.records))
	return &plex.HistoryPage{Records: p.records[start:end]}, nil
}

// rowCollector implements RowWriter
type rowCollector struct {
	rows []letterboxd.Row
}

func (c *rowCollector) Write(row letterboxd.Row) error {
	c.rows = append(c.rows, row)
	return nil
}

func record(title, key, date string) plex.HistoryRecord {
	r := plex.HistoryRecord{Title: title, LibrarySectionID: "1", ViewedAt: date}
	if key != "" {
		r.RatingKey = &key
	}
	return r
}

func item(guids ...string) *plex.MediaItemMetadata {
	m := &plex.MediaItemMetadata{}
	for _, g := range guids {
		m.GUIDs = append(m.GUIDs, plex.GUID{ID: g})
	}
	return m
}

func newHistory(records []plex.HistoryRecord, pageSize uint32) *plex.WatchHistory {
	return plex.NewWatchHistory(&mockPager{records: records}, "1", pageSize, zerolog.Nop())
}

func TestExporter_Run(t *testing.T) {
	metadata := &mockMetadata{items: map[string]*plex.MediaItemMetadata{
		"1": item("tmdb://603", "imdb://tt0133093"),
		"2": item("tmdb://604"),
		"3": item(),
		"4": item("tvdb://1"),
	}}
	records := []plex.HistoryRecord{
		record("The Matrix", "1", "2024-03-01"),
		record("Reloaded", "2", "2024-02-01"),
		record("Home Video", "3", "2024-01-20"),
		record("Legacy Entry", "", "2024-01-10"),
		record("Deleted", "99", "2024-01-05"),
		record("Odd Agent", "4", "2024-01-03"),
		record("The Matrix", "1", "2023-06-01"),
	}

	exporter := New(metadata, zerolog.Nop(), Options{Tags: letterboxd.DefaultTags, BatchSize: 3, Concurrency: 2})
	out := &rowCollector{}

	stats, err := exporter.Run(context.Background(), newHistory(records, 2), out)
	require.NoError(t, err)

	assert.Equal(t, []letterboxd.Row{
		{Title: "The Matrix", IMDbID: "tt0133093", WatchedDate: "2024-03-01", Tags: "Imported from Plex"},
		{Title: "Reloaded", TMDbID: "604", WatchedDate: "2024-02-01", Tags: "Imported from Plex"},
		{Title: "The Matrix", IMDbID: "tt0133093", WatchedDate: "2023-06-01", Tags: "Imported from Plex"},
	}, out.rows)

	assert.Equal(t, Stats{
		Processed:    7,
		Written:      3,
		NoRatingKey:  1,
		NoExternalID: 2,
		MissingItem:  1,
		Lookups:      5,
		CacheHits:    1,
	}, stats)
	assert.Equal(t, 4, stats.Skipped())
	assert.Equal(t, 1, metadata.calls["1"], "repeat viewing served from cache")
}

func TestExporter_DuplicateKeysInOneBatch(t *testing.T) {
	metadata := &mockMetadata{items: map[string]*plex.MediaItemMetadata{
		"1": item("imdb://tt1"),
	}}
	records := []plex.HistoryRecord{
		record("A", "1", "2024-01-03"),
		record("A", "1", "2024-01-02"),
		record("A", "1", "2024-01-01"),
	}

	exporter := New(metadata, zerolog.Nop(), Options{})
	out := &rowCollector{}
	stats, err := exporter.Run(context.Background(), newHistory(records, 100), out)
	require.NoError(t, err)

	assert.Len(t, out.rows, 3)
	assert.Equal(t, 1, stats.Lookups)
	assert.Equal(t, 1, metadata.calls["1"])
}

func TestExporter_IDSchemePreference(t *testing.T) {
	metadata := &mockMetadata{items: map[string]*plex.MediaItemMetadata{
		"1": item("imdb://tt0133093", "tmdb://603"),
	}}

	exporter := New(metadata, zerolog.Nop(), Options{IDSchemes: []string{"tmdb", "imdb"}})
	out := &rowCollector{}
	_, err := exporter.Run(context.Background(), newHistory([]plex.HistoryRecord{record("The Matrix", "1", "2024-01-01")}, 100), out)
	require.NoError(t, err)

	require.Len(t, out.rows, 1)
	assert.Equal(t, "603", out.rows[0].TMDbID)
	assert.Empty(t, out.rows[0].IMDbID)
}

func TestExporter_Filter(t *testing.T) {
	metadata := &mockMetadata{items: map[string]*plex.MediaItemMetadata{
		"1": item("imdb://tt1"),
		"2": item("imdb://tt2"),
	}}
	f, err := filter.Compile(`Year >= 2024`)
	require.NoError(t, err)

	exporter := New(metadata, zerolog.Nop(), Options{Filter: f})
	out := &rowCollector{}
	stats, err := exporter.Run(context.Background(), newHistory([]plex.HistoryRecord{
		record("New", "1", "2024-05-01"),
		record("Old", "2", "2019-05-01"),
	}, 100), out)
	require.NoError(t, err)

	require.Len(t, out.rows, 1)
	assert.Equal(t, "New", out.rows[0].Title)
	assert.Equal(t, 1, stats.Filtered)
	assert.Zero(t, metadata.calls["2"], "filtered records are never looked up")
}

func TestExporter_HistoryErrorKeepsEarlierRows(t *testing.T) {
	metadata := &mockMetadata{items: map[string]*plex.MediaItemMetadata{
		"1": item("imdb://tt1"),
		"2": item("imdb://tt2"),
	}}
	pageErr := &plex.DecodeError{Endpoint: "/status/sessions/history/all", Err: errors.New("viewedAt out of range")}
	pager := &mockPager{
		records: []plex.HistoryRecord{
			record("A", "1", "2024-01-02"),
			record("B", "2", "2024-01-01"),
			record("C", "1", "2023-01-01"),
		},
		failAt: 1,
		err:    pageErr,
	}
	history := plex.NewWatchHistory(pager, "1", 2, zerolog.Nop())

	exporter := New(metadata, zerolog.Nop(), Options{BatchSize: 10})
	out := &rowCollector{}
	stats, err := exporter.Run(context.Background(), history, out)

	require.Error(t, err)
	var decodeErr *plex.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.Len(t, out.rows, 2)
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 2, pager.calls)
}

func TestExporter_MetadataErrorFailsRun(t *testing.T) {
	boom := &plex.APIError{Endpoint: "/library/metadata/1", StatusCode: 500}
	metadata := &mockMetadata{errs: map[string]error{"1": boom}}

	exporter := New(metadata, zerolog.Nop(), Options{})
	out := &rowCollector{}
	_, err := exporter.Run(context.Background(), newHistory([]plex.HistoryRecord{record("A", "1", "2024-01-01")}, 100), out)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rating key 1")
	assert.Empty(t, out.rows)
}

func TestExporter_EmptyHistory(t *testing.T) {
	exporter := New(&mockMetadata{}, zerolog.Nop(), Options{})
	out := &rowCollector{}
	stats, err := exporter.Run(context.Background(), newHistory(nil, 100), out)
	require.NoError(t, err)
	assert.Empty(t, out.rows)
	assert.Equal(t, Stats{}, stats)
}

func TestLRUCache(t *testing.T) {
	c := newLRUCache[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// "b" is now least recently used
	c.Put("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Put("a", 10)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v)
}
