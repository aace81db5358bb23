package feeds

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Package feeds loads the configured feed list and turns feed URLs into
// decoded items.

// Feed is one syndication source. ID is the cache key and defaults to URL.
type Feed struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	URL            string         `json:"url" yaml:"url"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	Config         map[string]any `json:"config" yaml:"config"`
}

type registry struct {
	Feeds []Feed `json:"feeds" yaml:"feeds"`
}

const defaultRequestDelayMs = 250

// List is an immutable, validated set of feeds in file order.
type List struct {
	feeds []Feed
	idx   map[string]Feed
}

// NewList sanitizes and validates feeds. Duplicate ids are rejected.
func NewList(feeds []Feed) (*List, error) {
	if len(feeds) == 0 {
		return nil, errors.New("feed list contains no feeds")
	}

	out := make([]Feed, 0, len(feeds))
	idx := make(map[string]Feed, len(feeds))
	for i := range feeds {
		f := sanitizeFeed(feeds[i])
		if err := validateFeed(f); err != nil {
			return nil, fmt.Errorf("feed[%d]: %w", i, err)
		}
		if _, exists := idx[f.ID]; exists {
			return nil, fmt.Errorf("duplicate feed id %q", f.ID)
		}
		idx[f.ID] = f
		out = append(out, f)
	}
	return &List{feeds: out, idx: idx}, nil
}

// All returns a copy of the feeds in file order.
func (l *List) All() []Feed {
	if l == nil {
		return nil
	}
	out := make([]Feed, len(l.feeds))
	copy(out, l.feeds)
	return out
}

// Len reports the number of feeds.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.feeds)
}

// ByID returns the feed with the given id, if loaded.
func (l *List) ByID(id string) (Feed, bool) {
	id = strings.TrimSpace(id)
	if l == nil || id == "" {
		return Feed{}, false
	}
	f, ok := l.idx[id]
	return f, ok
}

// LoadList reads a feed list file. ".yaml", ".yml" and ".json" files hold a
// {feeds: [...]} registry; anything else is plain text with one URL per
// line, where blank lines and lines starting with '#' are skipped.
func LoadList(path string) (*List, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("feed list path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed list: %w", err)
	}

	var feeds []Feed
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		reg, err := parseRegistry(raw, ext)
		if err != nil {
			return nil, err
		}
		feeds = reg.Feeds
	default:
		feeds = parsePlainList(raw)
	}

	return NewList(feeds)
}

func parsePlainList(data []byte) []Feed {
	var feeds []Feed
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		feeds = append(feeds, Feed{URL: line})
	}
	return feeds
}

func parseRegistry(data []byte, ext string) (registry, error) {
	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != d.ext {
			continue
		}
		return unmarshalRegistry(d.name, data, d.fn)
	}

	return registry{}, errors.New("feed list format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registry, error) {
	var reg registry
	if err := fn(data, &reg); err != nil {
		return registry{}, fmt.Errorf("decode %s feed list: %w", name, err)
	}
	return reg, nil
}

func sanitizeFeed(f Feed) Feed {
	f.ID = strings.TrimSpace(f.ID)
	f.Name = strings.TrimSpace(f.Name)
	f.URL = strings.TrimSpace(f.URL)

	if f.ID == "" {
		f.ID = f.URL
	}
	if f.Name == "" {
		f.Name = f.ID
	}
	if f.Config == nil {
		f.Config = map[string]any{}
	}
	if f.RequestDelayMs <= 0 {
		f.RequestDelayMs = defaultRequestDelayMs
	}
	return f
}

func validateFeed(f Feed) error {
	if f.URL == "" {
		return fmt.Errorf("url is required for feed %q", f.ID)
	}
	u, err := url.Parse(f.URL)
	if err != nil {
		return fmt.Errorf("invalid url for feed %q: %w", f.ID, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("feed %q url must be http or https", f.ID)
	}
	if u.Host == "" {
		return fmt.Errorf("feed %q url has no host", f.ID)
	}
	return nil
}

// RequestDelay returns the pause between follow-up page requests for this feed.
func (f Feed) RequestDelay() time.Duration {
	if f.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(f.RequestDelayMs) * time.Millisecond
}
