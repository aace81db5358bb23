package publishers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRegistry(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadRegistryFiltersDisabled(t *testing.T) {
	path := writeRegistry(t, "publishers.yaml", `
publishers:
  - id: archive-hook
    type: http
    enabled: false
    http:
      url: https://example.com/archive
  - id: wall-hook
    type: HTTP
    http:
      url: " https://example.com/wall "
      method: put
      headers:
        X-Token: abc
        "": dropped
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "wall-hook" {
		t.Fatalf("expected only wall-hook enabled, got %#v", enabled)
	}

	cfg, ok := reg.ByID("wall-hook")
	if !ok {
		t.Fatalf("ByID did not find wall-hook")
	}
	if cfg.Type != TypeHTTP || cfg.HTTP.URL != "https://example.com/wall" || cfg.HTTP.Method != "PUT" {
		t.Fatalf("config not normalized: %#v", cfg.HTTP)
	}
	if cfg.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds || len(cfg.HTTP.Headers) != 1 {
		t.Fatalf("defaults not applied: %#v", cfg.HTTP)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("All should keep disabled entries")
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeRegistry(t, "publishers.json", `{"publishers":[
		{"id":"topic","type":"sns","sns":{"topic_arn":"arn:aws:sns:us-east-1:1:photos","region":"us-east-1"}},
		{"id":"pubsub","type":"gcp_pubsub","gcp_pubsub":{"project_id":"p","topic":"photos"}}
	]}`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if got := len(reg.Enabled()); got != 2 {
		t.Fatalf("expected 2 enabled publishers, got %d", got)
	}
}

func TestLoadRegistryRejectsDuplicateID(t *testing.T) {
	path := writeRegistry(t, "publishers.yml", `
publishers:
  - id: hook
    type: http
    http: {url: https://example.com/a}
  - id: hook
    type: http
    http: {url: https://example.com/b}
`)
	if _, err := LoadRegistry(path); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestLoadRegistryEmpty(t *testing.T) {
	path := writeRegistry(t, "publishers.yaml", "publishers: []\n")
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected error for empty registry")
	}
}

func TestValidateNamesMissingFields(t *testing.T) {
	cases := map[string]PublisherConfig{
		"http config required":  {ID: "h", Type: TypeHTTP},
		"sqs.region":            {ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "https://sqs"}},
		"sns.topic_arn":         {ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "us-east-1"}},
		"gcp_pubsub.project_id": {ID: "g", Type: TypeGCPPubSub, GCPPubSub: &GCPPubSubPublisherConfig{Topic: "t"}},
		"id is required":        {Type: TypeHTTP},
	}
	for want, cfg := range cases {
		err := cfg.normalized().validate()
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("validate(%+v) = %v, want error mentioning %q", cfg, err, want)
		}
	}
}
