package domain

import (
	"encoding/json"
	"strings"
)

// Domain contains core models and interfaces.

// Photo is the best image extracted from one feed item.
type Photo struct {
	ImageURL    string  `json:"image_url"`
	StoryURL    string  `json:"story_url"`
	Description *string `json:"description"`
	Credit      *string `json:"credit"`
}

// Valid reports whether both the image and the story URL are set.
func (p Photo) Valid() bool {
	return p.ImageURL != "" && p.StoryURL != ""
}

// LinkText is the label a presentation layer shows for the story link.
func (p Photo) LinkText() string {
	switch {
	case p.Description != nil && p.Credit != nil:
		return *p.Description + " (" + *p.Credit + ")"
	case p.Credit != nil:
		return *p.Credit
	case p.Description != nil:
		return *p.Description
	default:
		return p.StoryURL
	}
}

// JSON renders the photo as a single JSON object.
func (p Photo) JSON() string {
	b, err := json.Marshal(p)
	if err != nil {
		// only strings inside; Marshal cannot fail
		return "{}"
	}
	return string(b)
}

// PageJSON renders photos as a JSON array, "[]" when empty.
func PageJSON(photos []Photo) string {
	parts := make([]string, 0, len(photos))
	for _, p := range photos {
		parts = append(parts, p.JSON())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Text returns a pointer to s, or nil when s is empty.
func Text(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Status is the cache summary served by the health endpoint.
type Status struct {
	Feeds  int `json:"feeds"`
	Photos int `json:"photos"`
}
