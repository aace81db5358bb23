package extractor

import (
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
)

type rssItem struct {
	item *rss.Item
	ext  Extensions
}

// FromRSS adapts an RSS 2.0 item.
func FromRSS(item *rss.Item) Item {
	return &rssItem{item: item, ext: convertExtensions(item.Extensions)}
}

func (r *rssItem) Link() string        { return r.item.Link }
func (r *rssItem) Title() string       { return r.item.Title }
func (r *rssItem) Content() string     { return r.item.Content }
func (r *rssItem) Description() string { return r.item.Description }
func (r *rssItem) Extensions() Extensions {
	return r.ext
}

func (r *rssItem) Enclosure() *Enclosure {
	enc := r.item.Enclosure
	if len(r.item.Enclosures) > 0 {
		enc = r.item.Enclosures[0]
	}
	if enc == nil || enc.URL == "" {
		return nil
	}
	return &Enclosure{MimeType: enc.Type, URL: enc.URL}
}

func (r *rssItem) SourceTitle() string {
	if r.item.Source == nil {
		return ""
	}
	return r.item.Source.Title
}

func (r *rssItem) DublinCoreCreators() []string {
	if r.item.DublinCoreExt == nil {
		return nil
	}
	return r.item.DublinCoreExt.Creator
}

// convertExtensions copies a gofeed extension map, qualifying element names
// with their namespace prefix.
func convertExtensions(in ext.Extensions) Extensions {
	if len(in) == 0 {
		return nil
	}
	out := make(Extensions, len(in))
	for prefix, byName := range in {
		elems := make(map[string][]Extension, len(byName))
		for local, list := range byName {
			for _, e := range list {
				elems[local] = append(elems[local], Extension{
					Name:  qualify(prefix, e.Name),
					Attrs: e.Attrs,
					Value: e.Value,
				})
			}
		}
		out[prefix] = elems
	}
	return out
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}
