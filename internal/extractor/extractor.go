// Package extractor picks the best photo out of a decoded feed item.
//
// Fields are resolved by an ordered pipeline of named steps over a mutable
// builder. Later steps overwrite earlier ones, so the most specific signals
// (Media RSS, Dublin Core, atom:link) are applied last and win.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/samvad-hq/samvad-photojournalism/internal/domain"
)

// builder accumulates candidate values while the pipeline runs.
type builder struct {
	imageURL    string
	storyURL    string
	description string
	credit      string
}

func (b *builder) photo() domain.Photo {
	return domain.Photo{
		ImageURL:    b.imageURL,
		StoryURL:    b.storyURL,
		Description: domain.Text(b.description),
		Credit:      domain.Text(b.credit),
	}
}

func (b *builder) setImage(url string) {
	if url == "" || Ignored(url) {
		return
	}
	b.imageURL = url
}

// Step is one named candidate assignment.
type Step struct {
	Name  string
	apply func(*builder, Item)
}

// Pipeline lists the steps in the order they run.
var Pipeline = []Step{
	{Name: "link", apply: stepLink},                               // story_url
	{Name: "title", apply: stepTitle},                             // description
	{Name: "content_html", apply: stepContentHTML},                // image_url, description
	{Name: "description_html", apply: stepDescriptionHTML},        // image_url, description
	{Name: "image_enclosure", apply: stepImageEnclosure},          // image_url
	{Name: "source_title", apply: stepSourceTitle},                // credit
	{Name: "dublin_core_creators", apply: stepDublinCoreCreators}, // credit
	{Name: "atom_link", apply: stepAtomLink},                      // story_url, final
	{Name: "media_thumbnail", apply: stepMediaThumbnail},          // image_url
	{Name: "media_content", apply: stepMediaContent},              // image_url, final
	{Name: "media_credit", apply: stepMediaCredit},                // credit, final
	{Name: "media_description", apply: stepMediaDescription},      // description, final
}

// Candidate runs the pipeline and returns the photo even when it is not valid.
func Candidate(item Item) domain.Photo {
	b := &builder{}
	for _, s := range Pipeline {
		s.apply(b, item)
	}
	return b.photo()
}

// Extract returns the photo for item and whether it is valid.
func Extract(item Item) (domain.Photo, bool) {
	p := Candidate(item)
	if !p.Valid() {
		return domain.Photo{}, false
	}
	return p, true
}

// ExtractAll extracts every valid photo from items, preserving item order.
func ExtractAll(items []Item) []domain.Photo {
	return lo.FilterMap(items, func(item Item, _ int) (domain.Photo, bool) {
		return Extract(item)
	})
}

// Candidates runs the pipeline over items without dropping invalid results.
func Candidates(items []Item) []domain.Photo {
	return lo.Map(items, func(item Item, _ int) domain.Photo {
		return Candidate(item)
	})
}

func stepLink(b *builder, item Item) {
	if link := item.Link(); link != "" {
		b.storyURL = link
	}
}

func stepTitle(b *builder, item Item) {
	if title := item.Title(); title != "" {
		b.description = title
	}
}

func stepContentHTML(b *builder, item Item) {
	if content := item.Content(); content != "" {
		scanHTML(b, content)
	}
}

func stepDescriptionHTML(b *builder, item Item) {
	if desc := item.Description(); desc != "" {
		scanHTML(b, desc)
	}
}

// scanHTML applies the first <img> of fragment to the builder. A fragment
// that cannot be parsed becomes the description verbatim.
func scanHTML(b *builder, fragment string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		b.description = fragment
		return
	}
	img := doc.Find("img").First()
	if img.Length() == 0 {
		return
	}
	if src, ok := img.Attr("src"); ok {
		b.setImage(src)
	}
	if alt, ok := img.Attr("alt"); ok && alt != "" {
		b.description = alt
	}
}

func stepImageEnclosure(b *builder, item Item) {
	enc := item.Enclosure()
	if enc == nil || !strings.HasPrefix(enc.MimeType, "image/") {
		return
	}
	b.setImage(enc.URL)
}

func stepSourceTitle(b *builder, item Item) {
	if title := item.SourceTitle(); title != "" {
		b.credit = title
	}
}

func stepDublinCoreCreators(b *builder, item Item) {
	creators := lo.Compact(item.DublinCoreCreators())
	if len(creators) == 0 {
		return
	}
	b.credit = strings.Join(creators, ", ")
}

func stepAtomLink(b *builder, item Item) {
	for _, el := range item.Extensions().Elements("atom", "link") {
		if href := el.Attrs["href"]; href != "" {
			b.storyURL = href
		}
	}
}

func stepMediaThumbnail(b *builder, item Item) {
	for _, el := range item.Extensions().Elements("media", "thumbnail") {
		b.setImage(el.Attrs["url"])
	}
}

func stepMediaContent(b *builder, item Item) {
	for _, el := range item.Extensions().Elements("media", "content") {
		b.setImage(el.Attrs["url"])
	}
}

func stepMediaCredit(b *builder, item Item) {
	for _, el := range item.Extensions().Elements("media", "credit") {
		if el.Value != "" {
			b.credit = el.Value
		}
	}
}

func stepMediaDescription(b *builder, item Item) {
	for _, el := range item.Extensions().Elements("media", "description") {
		if el.Value != "" {
			b.description = el.Value
		}
	}
}
