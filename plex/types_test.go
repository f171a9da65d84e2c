package plex

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	type payload struct {
		Size int    `json:"size"`
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		want    payload
		wantErr error
	}{
		{name: "payload", body: `{"MediaContainer":{"size":3,"name":"x"}}`, want: payload{Size: 3, Name: "x"}},
		{name: "extra outer keys ignored", body: `{"other":1,"MediaContainer":{"size":1}}`, want: payload{Size: 1}},
		{name: "missing outer key", body: `{"Container":{"size":1}}`, wantErr: ErrMissingContainer},
		{name: "null container", body: `{"MediaContainer":null}`, wantErr: ErrMissingContainer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEnvelope[payload]("/test", []byte(tt.body))
			if tt.wantErr != nil {
				var decodeErr *DecodeError
				require.ErrorAs(t, err, &decodeErr)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, "/test", decodeErr.Endpoint)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := DecodeEnvelope[payload]("/test", []byte(`{"MediaContainer":{"size":"three"}}`))
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeEnvelope[payload]("/test", []byte(`not json`))
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})
}

func TestHistoryRecordUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantDate string
		wantKey  *string
		wantErr  string
	}{
		{name: "epoch", body: `{"title":"A","librarySectionID":"1","viewedAt":0}`, wantDate: "1970-01-01"},
		{name: "utc date", body: `{"title":"A","librarySectionID":"1","viewedAt":1705363199}`, wantDate: "2024-01-15"},
		{name: "string timestamp", body: `{"title":"A","librarySectionID":"1","viewedAt":"1705363200"}`, wantDate: "2024-01-16"},
		{name: "last representable second", body: `{"title":"A","librarySectionID":"1","viewedAt":253402300799}`, wantDate: "9999-12-31"},
		{name: "rating key kept", body: `{"title":"A","ratingKey":"55","librarySectionID":"1","viewedAt":0}`, wantDate: "1970-01-01", wantKey: strPtr("55")},
		{name: "numeric rating key", body: `{"title":"A","ratingKey":55,"librarySectionID":"1","viewedAt":0}`, wantDate: "1970-01-01", wantKey: strPtr("55")},
		{name: "empty rating key is absent", body: `{"title":"A","ratingKey":"","librarySectionID":"1","viewedAt":0}`, wantDate: "1970-01-01"},
		{name: "beyond year 9999", body: `{"title":"A","librarySectionID":"1","viewedAt":253402300800}`, wantErr: "out of range"},
		{name: "negative", body: `{"title":"A","librarySectionID":"1","viewedAt":-1}`, wantErr: "out of range"},
		{name: "fractional", body: `{"title":"A","librarySectionID":"1","viewedAt":1.5}`, wantErr: "invalid viewedAt"},
		{name: "missing viewedAt", body: `{"title":"A","librarySectionID":"1"}`, wantErr: "missing viewedAt"},
		{name: "missing title", body: `{"librarySectionID":"1","viewedAt":0}`, wantErr: "no title"},
		{name: "missing section", body: `{"title":"A","viewedAt":0}`, wantErr: "no librarySectionID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var record HistoryRecord
			err := json.Unmarshal([]byte(tt.body), &record)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDate, record.ViewedAt)
			assert.Equal(t, tt.wantKey, record.RatingKey)
		})
	}
}

func TestHistoryRecordViewed(t *testing.T) {
	record := HistoryRecord{ViewedAt: "2024-01-15"}
	viewed := record.Viewed()
	assert.Equal(t, 2024, viewed.Year())
	assert.Equal(t, 15, viewed.Day())
}

func TestGUID(t *testing.T) {
	tests := []struct {
		id     string
		scheme string
		value  string
	}{
		{id: "imdb://tt0133093", scheme: "imdb", value: "tt0133093"},
		{id: "TMDB://603", scheme: "tmdb", value: "603"},
		{id: "plex://movie/5d776825880197001ec967c6", scheme: "plex", value: "movie/5d776825880197001ec967c6"},
		{id: "local-id", scheme: "", value: "local-id"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			g := GUID{ID: tt.id}
			assert.Equal(t, tt.scheme, g.Scheme())
			assert.Equal(t, tt.value, g.Value())
		})
	}
}

func TestPreferredIDIgnoresListOrder(t *testing.T) {
	item := &MediaItemMetadata{GUIDs: []GUID{{ID: "tmdb://603"}, {ID: "imdb://tt0133093"}}}

	scheme, id, ok := item.PreferredID("imdb", "tmdb")
	require.True(t, ok)
	assert.Equal(t, "imdb", scheme)
	assert.Equal(t, "tt0133093", id)

	scheme, id, ok = item.PreferredID("tvdb", "tmdb")
	require.True(t, ok)
	assert.Equal(t, "tmdb", scheme)
	assert.Equal(t, "603", id)
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateNotStarted, "not_started"},
		{StateHasBufferedItems, "has_buffered_items"},
		{StateAwaitingPage, "awaiting_page"},
		{StateExhausted, "exhausted"},
		{StateFailed, "failed"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{Endpoint: "/library/sections", StatusCode: 404}
	assert.Equal(t, "plex API error: /library/sections: status 404 Not Found", err.Error())
	assert.True(t, err.IsNotFound())
	assert.False(t, err.IsUnauthorized())

	err.StatusCode = 403
	assert.True(t, err.IsUnauthorized())
}

func strPtr(s string) *string {
	return &s
}
