package plex

import (
	"context"
	"errors"
	"iter"

	"github.com/rs/zerolog"
)

// State is the position of a WatchHistory in its lifecycle
type State int

const (
	StateNotStarted State = iota
	StateHasBufferedItems
	StateAwaitingPage
	StateExhausted
	StateFailed
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateHasBufferedItems:
		return "has_buffered_items"
	case StateAwaitingPage:
		return "awaiting_page"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further records can be produced
func (s State) Terminal() bool {
	return s == StateExhausted || s == StateFailed
}

// WatchHistory is a pull-based sequence of history records, fetched one page
// at a time in server order. It is single-consumer and not rewindable; build
// a new one to start over.
type WatchHistory struct {
	pager     HistoryPager
	sectionID string
	pageSize  uint32
	logger    zerolog.Logger

	state    State
	buffer   []HistoryRecord
	cursor   int
	offset   uint32
	lastPage bool
	fetches  int
}

// NewWatchHistory creates a sequence over the history of sectionID. The
// pager is borrowed, not owned.
func NewWatchHistory(pager HistoryPager, sectionID string, pageSize uint32, logger zerolog.Logger) *WatchHistory {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return &WatchHistory{
		pager:     pager,
		sectionID: sectionID,
		pageSize:  pageSize,
		logger:    logger,
		state:     StateNotStarted,
	}
}

// Next returns the next record. It returns ErrExhausted once the history is
// consumed, and any fetch error exactly once; after either, every call
// returns ErrExhausted without touching the network.
func (w *WatchHistory) Next(ctx context.Context) (HistoryRecord, error) {
	if w.state.Terminal() {
		return HistoryRecord{}, ErrExhausted
	}

	if w.cursor >= len(w.buffer) {
		if w.lastPage {
			w.finish()
			return HistoryRecord{}, ErrExhausted
		}
		if err := w.fetchPage(ctx); err != nil {
			return HistoryRecord{}, err
		}
		if w.state.Terminal() {
			return HistoryRecord{}, ErrExhausted
		}
	}

	record := w.buffer[w.cursor]
	w.cursor++
	w.state = StateHasBufferedItems
	return record, nil
}

// fetchPage refills the buffer from the current offset
func (w *WatchHistory) fetchPage(ctx context.Context) error {
	w.state = StateAwaitingPage
	w.fetches++

	page, err := w.pager.FetchHistoryPage(ctx, w.offset, w.pageSize, w.sectionID)
	if err != nil {
		w.state = StateFailed
		w.buffer, w.cursor = nil, 0
		w.logger.Debug().Err(err).Uint32("offset", w.offset).Msg("Watch history page failed")
		return err
	}
	if page == nil {
		page = &HistoryPage{}
	}

	received := uint32(len(page.Records))
	w.logger.Debug().
		Uint32("offset", w.offset).
		Uint32("page_size", w.pageSize).
		Uint32("received", received).
		Int("total", page.TotalSize).
		Msg("Fetched watch history page")

	if received == 0 {
		w.finish()
		return nil
	}

	w.buffer = page.Records
	w.cursor = 0
	w.offset += received
	if received < w.pageSize {
		w.lastPage = true
	}
	w.state = StateHasBufferedItems
	return nil
}

func (w *WatchHistory) finish() {
	w.state = StateExhausted
	w.buffer, w.cursor = nil, 0
	w.logger.Debug().Uint32("offset", w.offset).Int("fetches", w.fetches).Msg("Watch history exhausted")
}

// All returns the remaining records as a range-able sequence. Iteration
// stops after the first error is yielded.
func (w *WatchHistory) All(ctx context.Context) iter.Seq2[HistoryRecord, error] {
	return func(yield func(HistoryRecord, error) bool) {
		for {
			record, err := w.Next(ctx)
			if errors.Is(err, ErrExhausted) {
				return
			}
			if !yield(record, err) || err != nil {
				return
			}
		}
	}
}

// State returns the current state
func (w *WatchHistory) State() State {
	return w.state
}

// Offset returns the offset the next page will be requested at
func (w *WatchHistory) Offset() uint32 {
	return w.offset
}

// Fetches returns how many page requests have been issued
func (w *WatchHistory) Fetches() int {
	return w.fetches
}
