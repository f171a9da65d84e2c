package plex

import (
	"context"
	"net/url"
)

type mediaItems struct {
	Metadata []struct {
		RatingKey flexString `json:"ratingKey"`
		Title     string     `json:"title"`
		GUIDs     []GUID     `json:"Guid"`
	} `json:"Metadata"`
}

// FetchMediaItemMetadata returns the metadata of one item. The server wraps
// it in a one element list; an empty list is a DecodeError.
func (c *Client) FetchMediaItemMetadata(ctx context.Context, itemID string) (*MediaItemMetadata, error) {
	endpoint := "/library/metadata/" + url.PathEscape(itemID)

	payload, err := getContainer[mediaItems](ctx, c, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(payload.Metadata) == 0 {
		return nil, &DecodeError{Endpoint: endpoint, Err: ErrNoMetadata}
	}

	item := payload.Metadata[0]
	metadata := &MediaItemMetadata{
		RatingKey: string(item.RatingKey),
		Title:     item.Title,
		GUIDs:     item.GUIDs,
	}
	if metadata.RatingKey == "" {
		metadata.RatingKey = itemID
	}

	return metadata, nil
}
