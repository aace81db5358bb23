package feeds

import "strings"

// ConfigString returns the trimmed string value for key from feed.Config or a fallback.
func ConfigString(cfg Feed, key, fallback string) string {
	if cfg.Config != nil {
		if raw, ok := cfg.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

const (
	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptKey         = "accept"
	ConfigAcceptLanguageKey = "accept_language"
	ConfigCacheControlKey   = "cache_control"
)

// DefaultAccept is sent when a feed does not configure its own Accept header.
const DefaultAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"

// Headers builds the request headers for a feed (skips empty values). The
// client-level user agent applies unless the feed overrides it.
func Headers(cfg Feed) map[string]string {
	headers := make(map[string]string, 6)

	if v := ConfigString(cfg, ConfigUserAgentKey, ""); v != "" {
		headers["User-Agent"] = v
	}
	headers["Accept"] = ConfigString(cfg, ConfigAcceptKey, DefaultAccept)
	if v := ConfigString(cfg, ConfigAcceptLanguageKey, ""); v != "" {
		headers["Accept-Language"] = v
	}
	if v := ConfigString(cfg, ConfigCacheControlKey, ""); v != "" {
		headers["Cache-Control"] = v
	}

	return headers
}
