package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-photojournalism/internal/domain"
)

// Event announces that a feed's photos were refreshed.
type Event struct {
	FeedID      string         `json:"feed_id"`
	FeedName    string         `json:"feed_name"`
	PhotoCount  int            `json:"photo_count"`
	Photos      []domain.Photo `json:"photos"`
	RefreshedAt time.Time      `json:"refreshed_at"`
}

// NewEvent constructs an Event for the given feed and its fresh photos.
func NewEvent(feedID, feedName string, photos []domain.Photo) Event {
	if photos == nil {
		photos = []domain.Photo{}
	}
	return Event{
		FeedID:      feedID,
		FeedName:    feedName,
		PhotoCount:  len(photos),
		Photos:      photos,
		RefreshedAt: time.Now().UTC(),
	}
}
