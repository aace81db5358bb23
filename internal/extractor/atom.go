package extractor

import (
	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
)

type atomEntry struct {
	entry *atom.Entry
	ext   Extensions
}

// FromAtom adapts an Atom entry. The story link is the first alternate (or
// rel-less) link, content and summary stand in for content and description,
// and a rel="enclosure" link provides the enclosure.
func FromAtom(entry *atom.Entry) Item {
	return &atomEntry{entry: entry, ext: convertExtensions(entry.Extensions)}
}

func (a *atomEntry) Link() string {
	for _, l := range a.entry.Links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	return ""
}

func (a *atomEntry) Title() string { return a.entry.Title }

func (a *atomEntry) Content() string {
	if a.entry.Content == nil {
		return ""
	}
	return a.entry.Content.Value
}

func (a *atomEntry) Description() string { return a.entry.Summary }

func (a *atomEntry) Enclosure() *Enclosure {
	for _, l := range a.entry.Links {
		if l.Rel == "enclosure" && l.Href != "" {
			return &Enclosure{MimeType: l.Type, URL: l.Href}
		}
	}
	return nil
}

func (a *atomEntry) SourceTitle() string {
	if a.entry.Source == nil {
		return ""
	}
	return a.entry.Source.Title
}

func (a *atomEntry) DublinCoreCreators() []string {
	dc, ok := a.entry.Extensions["dc"]
	if !ok {
		return nil
	}
	return ext.NewDublinCoreExtension(dc).Creator
}

func (a *atomEntry) Extensions() Extensions { return a.ext }
