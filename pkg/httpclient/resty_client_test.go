package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRestyClientSendsUserAgentAndHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("ETag", `"v1"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer srv.Close()

	client := NewRestyClient(5*time.Second, "photojournalism/test")
	resp, err := client.Get(context.Background(), srv.URL, map[string]string{"Accept": "application/rss+xml"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusOK || string(resp.Body()) != "<rss/>" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode(), resp.Body())
	}
	if resp.Header().Get("ETag") != `"v1"` {
		t.Fatalf("ETag header = %q", resp.Header().Get("ETag"))
	}
	if gotUA != "photojournalism/test" || gotAccept != "application/rss+xml" {
		t.Fatalf("request headers UA=%q Accept=%q", gotUA, gotAccept)
	}
}

func TestRestyClientPerRequestUserAgentWins(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client := NewRestyClient(5*time.Second, "default-agent")
	if _, err := client.Get(context.Background(), srv.URL, map[string]string{"User-Agent": "feed-agent"}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotUA != "feed-agent" {
		t.Fatalf("User-Agent = %q", gotUA)
	}
}
