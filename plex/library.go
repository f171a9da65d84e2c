package plex

import (
	"context"
	"strings"
)

const librarySectionsEndpoint = "/library/sections"

type librarySections struct {
	Directories []LibrarySection `json:"Directory"`
}

// FetchLibrarySections returns every library section known to the server
func (c *Client) FetchLibrarySections(ctx context.Context) ([]LibrarySection, error) {
	payload, err := getContainer[librarySections](ctx, c, librarySectionsEndpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Int("count", len(payload.Directories)).Msg("Retrieved library sections")
	return payload.Directories, nil
}

// FindSection returns the section titled name. An exact match wins over a
// case-insensitive one.
func FindSection(sections []LibrarySection, name string) (*LibrarySection, error) {
	for i := range sections {
		if sections[i].Title == name {
			return &sections[i], nil
		}
	}
	for i := range sections {
		if strings.EqualFold(sections[i].Title, name) {
			return &sections[i], nil
		}
	}
	return nil, &NotFoundError{Library: name, Reason: "no library section with that title"}
}

// ResolveSectionID maps a library name to the location id used to scope
// history queries
func (c *Client) ResolveSectionID(ctx context.Context, library string) (string, error) {
	sections, err := c.FetchLibrarySections(ctx)
	if err != nil {
		return "", err
	}

	section, err := FindSection(sections, library)
	if err != nil {
		return "", err
	}

	id, ok := section.LocationID()
	if !ok {
		return "", &NotFoundError{Library: library, Reason: "library has no location id"}
	}

	c.logger.Debug().Str("library", section.Title).Str("section_id", id).Msg("Resolved library section")
	return id, nil
}
