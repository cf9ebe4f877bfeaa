package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/robotstxt"

	"github.com/ternarybob/outreach/internal/classifier"
	"github.com/ternarybob/outreach/internal/common"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger := common.GetLogger()
	config := common.CrawlerConfig{
		UserAgent:      "outreach-test",
		MaxPages:       10,
		MinDelay:       common.Duration(time.Millisecond),
		MaxDelay:       common.Duration(2 * time.Millisecond),
		RequestsPerSec: 1000,
		RobotsTimeout:  common.Duration(2 * time.Second),
		SitemapTimeout: common.Duration(2 * time.Second),
		PageTimeout:    common.Duration(2 * time.Second),
		MaxBodySize:    1024 * 1024,
	}
	return NewEngine(config, classifier.New(logger), logger)
}

func page(title string, links ...string) string {
	body := "<html><head><title>" + title + "</title></head><body>"
	for _, l := range links {
		body += fmt.Sprintf(`<a href="%s">%s</a>`, l, l)
	}
	return body + "</body></html>"
}

func TestCrawlPages_MaxPagesBound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Every page links to three more, unbounded
		n := len(r.URL.Path)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("p", fmt.Sprintf("/a%d", n), fmt.Sprintf("/b%d", n), fmt.Sprintf("/c%d", n)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	results, err := newTestEngine(t).CrawlPages(context.Background(), server.URL, CrawlOptions{MaxPages: 5})
	require.NoError(t, err)

	assert.Len(t, results, 5)
}

func TestCrawlPages_NeverVisitsSameURLTwice(t *testing.T) {
	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			hits++
		}
		w.Header().Set("Content-Type", "text/html")
		// All pages link back to the root in several spellings
		fmt.Fprint(w, page("p", "/", "/#top", "/about", "/about/"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	results, err := newTestEngine(t).CrawlPages(context.Background(), server.URL, CrawlOptions{MaxPages: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, hits, "root fetched exactly once despite repeated links")
	assert.Len(t, results, 2) // root and /about, with /about/ deduplicated
}

func TestCrawlPages_StaysOnOrigin(t *testing.T) {
	external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("crawler crossed the origin boundary")
	}))
	defer external.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("home", external.URL+"/lured", "/local"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	results, err := newTestEngine(t).CrawlPages(context.Background(), server.URL, CrawlOptions{MaxPages: 10})
	require.NoError(t, err)

	assert.Len(t, results, 2) // home and /local only
}

func TestCrawlPages_RespectsRobots(t *testing.T) {
	var contactHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		contactHits++
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("home"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	engine := newTestEngine(t)
	robots, err := robotstxt.FromString("User-agent: *\nDisallow: /contact\n")
	require.NoError(t, err)

	results, err := engine.CrawlPages(context.Background(), server.URL, CrawlOptions{
		MaxPages:    10,
		Robots:      robots,
		InitialURLs: []string{server.URL + "/contact"},
	})
	require.NoError(t, err)

	assert.Len(t, results, 1)
	assert.Equal(t, 0, contactHits, "disallowed path must not be fetched")
}

func TestCrawlPages_FetchFailureSkipsPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("home", "/broken", "/pdf", "/ok"))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("ok"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	results, err := newTestEngine(t).CrawlPages(context.Background(), server.URL, CrawlOptions{MaxPages: 10})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "home", results[0].Title)
	assert.Equal(t, "ok", results[1].Title)
}

func TestCrawlPages_ClassifiesAndExtractsPerPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Contact Us</title></head><body>
			<p>Write to sales@acme.io or call (555) 123-4567</p>
			<form id="contact" action="/send" method="post">
				<input type="text" name="name"><input type="email" name="email">
				<textarea name="message"></textarea>
			</form>
		</body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	results, err := newTestEngine(t).CrawlPages(context.Background(), server.URL, CrawlOptions{MaxPages: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, "Contact Us", result.Title)
	assert.True(t, result.HasForms())
	assert.False(t, result.HasComments())
	assert.Equal(t, "sales@acme.io", result.Contacts.Email)
	assert.NotEmpty(t, result.Contacts.Phone)
	assert.Contains(t, result.TextContent, "sales@acme.io")
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.COM/About/", "https://example.com/About"},
		{"https://example.com/page#section", "https://example.com/page"},
		{"https://example.com/", "https://example.com/"},
		{"https://example.com", "https://example.com/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeURL(tt.in))
	}
}

func TestSameOrigin(t *testing.T) {
	origin, err := url.Parse("https://example.com/start")
	require.NoError(t, err)

	assert.True(t, sameOrigin(origin, "https://example.com/other"))
	assert.True(t, sameOrigin(origin, "HTTPS://EXAMPLE.COM/x"))
	assert.False(t, sameOrigin(origin, "http://example.com/other"))
	assert.False(t, sameOrigin(origin, "https://sub.example.com/"))
	assert.False(t, sameOrigin(origin, "https://evil.com/"))
}
