package plex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the format of HistoryRecord.ViewedAt
const DateLayout = "2006-01-02"

// maxViewedAt is the last second that still formats as a four digit year
var maxViewedAt = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()

// HistoryPage is the payload of one /status/sessions/history/all response.
// Size and TotalSize are advisory and may be missing.
type HistoryPage struct {
	Records   []HistoryRecord `json:"Metadata"`
	Size      int             `json:"size"`
	TotalSize int             `json:"totalSize"`
}

// HistoryRecord is a single viewing in the watch history
type HistoryRecord struct {
	Title string
	// RatingKey is nil for entries the server no longer links to an item
	RatingKey        *string
	LibrarySectionID string
	// ViewedAt is the viewing date in UTC, formatted with DateLayout
	ViewedAt string
}

// UnmarshalJSON decodes a history entry and normalises viewedAt. An entry
// whose viewedAt cannot be represented as a date fails the whole decode.
func (r *HistoryRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title            *string     `json:"title"`
		RatingKey        *flexString `json:"ratingKey"`
		LibrarySectionID *flexString `json:"librarySectionID"`
		ViewedAt         json.Number `json:"viewedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Title == nil {
		return fmt.Errorf("history entry has no title")
	}
	if raw.LibrarySectionID == nil {
		return fmt.Errorf("history entry %q has no librarySectionID", *raw.Title)
	}

	viewedAt, err := formatViewedAt(raw.ViewedAt)
	if err != nil {
		return fmt.Errorf("history entry %q: %w", *raw.Title, err)
	}

	*r = HistoryRecord{
		Title:            *raw.Title,
		LibrarySectionID: string(*raw.LibrarySectionID),
		ViewedAt:         viewedAt,
	}
	if raw.RatingKey != nil && *raw.RatingKey != "" {
		key := string(*raw.RatingKey)
		r.RatingKey = &key
	}
	return nil
}

// Viewed returns ViewedAt as midnight UTC of the viewing day
func (r HistoryRecord) Viewed() time.Time {
	t, _ := time.Parse(DateLayout, r.ViewedAt)
	return t
}

// formatViewedAt converts unix seconds to a calendar date
func formatViewedAt(n json.Number) (string, error) {
	if n == "" {
		return "", fmt.Errorf("missing viewedAt")
	}
	secs, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid viewedAt %q: %w", n, err)
	}
	if secs < 0 || secs > maxViewedAt {
		return "", fmt.Errorf("viewedAt %d out of range", secs)
	}
	return time.Unix(secs, 0).UTC().Format(DateLayout), nil
}

// MediaItemMetadata holds the external identifiers of one library item
type MediaItemMetadata struct {
	RatingKey string
	Title     string
	GUIDs     []GUID
}

// GUID is an external identifier such as "imdb://tt0133093"
type GUID struct {
	ID string `json:"id"`
}

// Scheme returns the identifier namespace, e.g. "imdb"
func (g GUID) Scheme() string {
	scheme, _, ok := strings.Cut(g.ID, "://")
	if !ok {
		return ""
	}
	return strings.ToLower(scheme)
}

// Value returns the identifier without its scheme prefix
func (g GUID) Value() string {
	_, value, ok := strings.Cut(g.ID, "://")
	if !ok {
		return g.ID
	}
	return value
}

// ExternalID returns the first identifier in the given scheme
func (m *MediaItemMetadata) ExternalID(scheme string) (string, bool) {
	scheme = strings.ToLower(scheme)
	for _, g := range m.GUIDs {
		if g.Scheme() == scheme && g.Value() != "" {
			return g.Value(), true
		}
	}
	return "", false
}

// PreferredID walks schemes in order and returns the first identifier found.
// The order of the server's GUID list is never consulted.
func (m *MediaItemMetadata) PreferredID(schemes ...string) (scheme, id string, ok bool) {
	for _, s := range schemes {
		if id, ok := m.ExternalID(s); ok {
			return strings.ToLower(s), id, true
		}
	}
	return "", "", false
}

// LibrarySection is a directory returned by /library/sections
type LibrarySection struct {
	Key       string     `json:"key"`
	Title     string     `json:"title"`
	Type      string     `json:"type"`
	Locations []Location `json:"Location"`
}

// Location is one on-disk root of a library section
type Location struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
}

// LocationID returns the id of the first location, which scopes history queries
func (s LibrarySection) LocationID() (string, bool) {
	if len(s.Locations) == 0 {
		return "", false
	}
	return strconv.FormatInt(s.Locations[0].ID, 10), true
}

// flexString accepts both JSON strings and numbers; Plex versions disagree on
// how ids are encoded.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = flexString(n.String())
	return nil
}
