package extractor

// Enclosure is a media attachment advertised by a feed item.
type Enclosure struct {
	MimeType string
	URL      string
}

// Extension is one namespaced element found on an item. Name is qualified
// with its namespace prefix, e.g. "media:thumbnail".
type Extension struct {
	Name  string
	Attrs map[string]string
	Value string
}

// Extensions maps namespace prefix -> local element name -> elements in document order.
type Extensions map[string]map[string][]Extension

// Elements returns the elements registered under ns/local whose qualified name matches.
func (e Extensions) Elements(ns, local string) []Extension {
	if e == nil {
		return nil
	}
	byName, ok := e[ns]
	if !ok {
		return nil
	}
	want := ns + ":" + local
	var out []Extension
	for _, el := range byName[local] {
		if el.Name == want {
			out = append(out, el)
		}
	}
	return out
}

// Item is the capability set the extractor needs from one decoded feed entry.
// Empty strings and nil values mean the field is absent.
type Item interface {
	Link() string
	Title() string
	Content() string
	Description() string
	Enclosure() *Enclosure
	SourceTitle() string
	DublinCoreCreators() []string
	Extensions() Extensions
}
