package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cghimire/eod-reporter/internal/report"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("xoxb-test", "U123")
	c.baseURL = srv.URL
	return c
}

func TestPostReportUsesIdentity(t *testing.T) {
	var posted map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"user":{"profile":{"display_name":"chandra","image_192":"https://img/192.png"}}}`)
	})
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&posted); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		fmt.Fprint(w, `{"ok":true}`)
	})

	c := newTestClient(t, mux)

	var doc report.Document
	if err := c.PostReport(context.Background(), "C42", doc, "Updates:"); err != nil {
		t.Fatalf("PostReport: %v", err)
	}

	if posted["channel"] != "C42" || posted["text"] != "Updates:" {
		t.Errorf("payload = %v", posted)
	}
	if posted["username"] != "chandra" {
		t.Errorf("username = %v, want chandra", posted["username"])
	}
	if posted["icon_url"] != "https://img/192.png" {
		t.Errorf("icon_url = %v", posted["icon_url"])
	}
	if posted["unfurl_links"] != false || posted["unfurl_media"] != false {
		t.Error("unfurling must be disabled")
	}
}

func TestPostReportIdentityFailureFallsBack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error":"user_not_found"}`)
	})
	var posted map[string]any
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&posted)
		fmt.Fprint(w, `{"ok":true}`)
	})

	c := newTestClient(t, mux)
	if err := c.PostReport(context.Background(), "C42", report.Document{}, "x"); err != nil {
		t.Fatalf("PostReport: %v", err)
	}
	if _, ok := posted["username"]; ok {
		t.Error("username must be absent when identity lookup fails")
	}
}

func TestPostReportAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error":"user_not_found"}`)
	})
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error":"channel_not_found"}`)
	})

	c := newTestClient(t, mux)
	err := c.PostReport(context.Background(), "C42", report.Document{}, "x")
	if err == nil {
		t.Fatal("expected error for ok:false response")
	}
}

func TestIdentityCachedAndInvalidated(t *testing.T) {
	lookups := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		lookups++
		fmt.Fprint(w, `{"ok":true,"user":{"profile":{"real_name":"Chandra G"}}}`)
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	c.resolveIdentity(ctx)
	c.resolveIdentity(ctx)
	if lookups != 1 {
		t.Errorf("lookups = %d, want 1 (cached)", lookups)
	}

	c.InvalidateIdentity()
	id := c.resolveIdentity(ctx)
	if lookups != 2 {
		t.Errorf("lookups = %d, want 2 after invalidation", lookups)
	}
	if id == nil || id.Username != "Chandra G" {
		t.Errorf("identity = %+v, want real_name fallback", id)
	}
}

func TestIsUserAway(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		emoji string
		want  bool
	}{
		{"plain status", "heads down", ":computer:", false},
		{"ooo keyword", "OOO until Monday", "", true},
		{"vacation keyword", "on vacation", "", true},
		{"palm tree emoji", "", ":palm_tree:", true},
		{"empty status", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/users.profile.get", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"ok":true,"profile":{"status_text":%q,"status_emoji":%q}}`, tt.text, tt.emoji)
			})
			c := newTestClient(t, mux)
			if got := c.IsUserAway(context.Background()); got != tt.want {
				t.Errorf("IsUserAway(%q, %q) = %v, want %v", tt.text, tt.emoji, got, tt.want)
			}
		})
	}
}

func TestIsUserAwayFailureMeansPresent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users.profile.get", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	c := newTestClient(t, mux)
	if c.IsUserAway(context.Background()) {
		t.Error("lookup failure must report present")
	}
}

func TestFetchChannelActivity(t *testing.T) {
	day := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	ts := fmt.Sprintf("%d.000100", day.Unix())

	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.history", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("channel") != "C1" {
			fmt.Fprint(w, `{"ok":false,"error":"not_in_channel"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"messages":[
			{"type":"message","user":"U123","text":"shipped the fix","ts":%q},
			{"type":"message","user":"U999","text":"not ours","ts":%q},
			{"type":"message","subtype":"channel_join","user":"U123","text":"joined","ts":%q},
			{"type":"message","user":"U123","text":"  ","ts":%q}
		]}`, ts, ts, ts, ts)
	})
	mux.HandleFunc("/conversations.info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"channel":{"name":"eng-updates"}}`)
	})
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"user":{"profile":{"display_name":"chandra"}}}`)
	})

	c := newTestClient(t, mux)
	got := c.FetchChannelActivity(context.Background(), []string{"C1", "C2"}, day)

	// C2 fails with not_in_channel and degrades to nothing.
	if len(got.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(got.Messages))
	}
	m := got.Messages[0]
	if m.Text != "shipped the fix" || m.ChannelName != "eng-updates" || m.UserName != "chandra" {
		t.Errorf("message = %+v", m)
	}
}
