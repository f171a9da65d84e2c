package plex

import (
	"context"
)

// HistoryPager fetches single pages of watch history
type HistoryPager interface {
	FetchHistoryPage(ctx context.Context, offset, pageSize uint32, sectionID string) (*HistoryPage, error)
}

// MetadataFetcher fetches the metadata of one library item
type MetadataFetcher interface {
	FetchMediaItemMetadata(ctx context.Context, itemID string) (*MediaItemMetadata, error)
}

// LibraryFetcher lists library sections
type LibraryFetcher interface {
	FetchLibrarySections(ctx context.Context) ([]LibrarySection, error)
}

// API is everything the export needs from a Plex server
type API interface {
	HistoryPager
	MetadataFetcher
	LibraryFetcher
}

var _ API = (*Client)(nil)
