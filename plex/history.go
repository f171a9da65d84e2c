package plex

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const historyEndpoint = "/status/sessions/history/all"

// historySort keeps every page relative to one most-recent-first ordering
const historySort = "viewedAt:desc"

// FetchHistoryPage fetches pageSize history entries starting at offset.
// Paging travels in the container headers; filtering travels in the query.
func (c *Client) FetchHistoryPage(ctx context.Context, offset, pageSize uint32, sectionID string) (*HistoryPage, error) {
	query := url.Values{
		"sort":             {historySort},
		"librarySectionID": {sectionID},
		"accountID":        {c.accountID},
	}

	header := http.Header{}
	header.Set(headerContainerStart, strconv.FormatUint(uint64(offset), 10))
	header.Set(headerContainerSize, strconv.FormatUint(uint64(pageSize), 10))

	page, err := getContainer[HistoryPage](ctx, c, historyEndpoint, query, header)
	if err != nil {
		return nil, err
	}

	return &page, nil
}

// WatchHistory returns a new sequence over the history of sectionID using
// the client's page size
func (c *Client) WatchHistory(sectionID string) *WatchHistory {
	return NewWatchHistory(c, sectionID, c.pageSize, c.logger)
}
