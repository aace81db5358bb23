package extractor

import "strings"

// ignoredFragments rejects video enclosures and known tracking pixels.
var ignoredFragments = []string{".mp4", ".mov", "npr-rss-pixel.png"}

// Ignored reports whether url must never be used as a photo.
func Ignored(url string) bool {
	for _, frag := range ignoredFragments {
		if strings.Contains(url, frag) {
			return true
		}
	}
	return false
}
