package feeds

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
	"github.com/samber/lo"
	"github.com/samvad-hq/samvad-photojournalism/internal/extractor"
)

// ErrUnsupportedFormat is returned for documents that are neither RSS nor Atom.
var ErrUnsupportedFormat = errors.New("unsupported feed format")

// Decode parses an RSS 2.0 or Atom document into extractor items, in document order.
func Decode(body []byte) ([]extractor.Item, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(body)) {
	case gofeed.FeedTypeRSS:
		fp := &rss.Parser{}
		feed, err := fp.Parse(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse rss: %w", err)
		}
		return lo.Map(feed.Items, func(it *rss.Item, _ int) extractor.Item {
			return extractor.FromRSS(it)
		}), nil
	case gofeed.FeedTypeAtom:
		fp := &atom.Parser{}
		feed, err := fp.Parse(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse atom: %w", err)
		}
		return lo.Map(feed.Entries, func(e *atom.Entry, _ int) extractor.Item {
			return extractor.FromAtom(e)
		}), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
