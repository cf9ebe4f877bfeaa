// Package crawler implements the crawl engine: robots and sitemap discovery,
// breadth-first page traversal with rate limiting, and per-page invocation of
// the content classifier and contact extractor.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/outreach/internal/classifier"
	"github.com/ternarybob/outreach/internal/common"
	"github.com/ternarybob/outreach/internal/extractor"
)

// Engine fetches and analyzes the pages of one domain at a time. A single
// engine is shared by all concurrently processed domains; the rate limiter
// and HTTP client are its only shared state.
type Engine struct {
	config     common.CrawlerConfig
	client     *http.Client
	limiter    *RateLimiter
	classifier *classifier.Classifier
	converter  *md.Converter
	logger     arbor.ILogger
}

// NewEngine creates a crawl engine
func NewEngine(config common.CrawlerConfig, cls *classifier.Classifier, logger arbor.ILogger) *Engine {
	converter := md.NewConverter("", true, nil)

	return &Engine{
		config: config,
		client: &http.Client{
			Timeout: config.PageTimeout.Std(),
		},
		limiter:    NewRateLimiter(config.RequestsPerSec, config.MinDelay.Std(), config.MaxDelay.Std()),
		classifier: cls,
		converter:  converter,
		logger:     logger,
	}
}

// AnalyzeDomain performs the pre-crawl analysis for a domain: robots.txt
// fetch and parse, sitemap discovery from directives and conventional paths,
// and one-level sitemap-index expansion into a capped URL seed list.
func (e *Engine) AnalyzeDomain(ctx context.Context, rawURL string) (*AnalyzeResult, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("invalid domain url %q: %w", rawURL, err)
	}

	robots, robotsRaw, found := e.fetchRobots(ctx, rawURL)

	sitemaps := e.discoverSitemaps(ctx, rawURL, robotsRaw)
	urls := e.extractSitemapURLs(ctx, sitemaps)

	seeds := urls
	if len(seeds) > maxSeedURLs {
		seeds = seeds[:maxSeedURLs]
	}

	e.logger.Debug().
		Str("url", rawURL).
		Bool("robots", found).
		Int("sitemaps", len(sitemaps)).
		Int("seed_urls", len(seeds)).
		Msg("Domain analysis completed")

	return &AnalyzeResult{
		RobotsTxt:    robotsRaw,
		Robots:       robots,
		HasRobotsTxt: found,
		Sitemaps:     sitemaps,
		URLs:         seeds,
	}, nil
}

// CrawlPages performs a bounded breadth-first traversal seeded with startURL
// plus the sitemap-derived seeds. It never visits the same normalized URL
// twice, never crosses the origin boundary, consults the robots ruleset
// before each fetch, and stops once maxPages distinct pages have been
// visited or the queue empties. Fetch failures skip the page silently.
func (e *Engine) CrawlPages(ctx context.Context, startURL string, opts CrawlOptions) ([]*PageResult, error) {
	origin, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start url %q: %w", startURL, err)
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = e.config.MaxPages
	}

	queue := make([]string, 0, len(opts.InitialURLs)+1)
	queue = append(queue, startURL)
	queue = append(queue, opts.InitialURLs...)

	visited := make(map[string]bool)
	queued := make(map[string]bool)
	for _, u := range queue {
		queued[normalizeURL(u)] = true
	}

	var results []*PageResult

	for len(queue) > 0 && len(results) < maxPages {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		candidate := queue[0]
		queue = queue[1:]

		normalized := normalizeURL(candidate)
		if visited[normalized] {
			continue
		}

		if !sameOrigin(origin, candidate) {
			continue
		}

		if !e.allowed(opts.Robots, candidate) {
			e.logger.Debug().Str("url", candidate).Msg("Skipping robots-disallowed path")
			continue
		}

		visited[normalized] = true

		if err := e.limiter.WaitBounds(ctx, origin.Host, opts.MinDelay, opts.MaxDelay); err != nil {
			return results, err
		}

		page, links, err := e.fetchPage(ctx, candidate)
		if err != nil {
			e.logger.Debug().Err(err).Str("url", candidate).Msg("Page fetch skipped")
			continue
		}

		results = append(results, page)

		for _, link := range links {
			key := normalizeURL(link)
			if visited[key] || queued[key] {
				continue
			}
			if !sameOrigin(origin, link) {
				continue
			}
			queued[key] = true
			queue = append(queue, link)
		}
	}

	e.logger.Debug().
		Str("start_url", startURL).
		Int("pages", len(results)).
		Msg("Crawl completed")

	return results, nil
}

// fetchPage retrieves one page, runs the classifier and contact extractor,
// and collects same-origin outbound links.
func (e *Engine) fetchPage(ctx context.Context, pageURL string) (*PageResult, []string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.PageTimeout.Std())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", e.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return nil, nil, fmt.Errorf("non-HTML content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.config.MaxBodySize))
	if err != nil {
		return nil, nil, err
	}
	html := string(body)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	forms, err := e.classifier.DetectForms(html, pageURL)
	if err != nil {
		return nil, nil, err
	}
	comments, err := e.classifier.DetectCommentSections(html, pageURL)
	if err != nil {
		return nil, nil, err
	}

	contacts := extractor.Extract(html)

	textContent := ""
	if markdown, convErr := e.converter.ConvertString(html); convErr == nil {
		textContent = markdown
	}

	page := &PageResult{
		URL:         pageURL,
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Forms:       forms,
		Comments:    comments,
		Contacts:    ContactInfo{Email: contacts.Email, Phone: contacts.Phone},
		TextContent: textContent,
		CrawledAt:   time.Now(),
	}

	return page, extractLinks(doc, pageURL), nil
}

// extractLinks collects href targets from anchors, resolved against the page
// URL with fragment identifiers stripped. Script/mail/tel schemes are
// skipped; origin filtering happens at enqueue time.
func extractLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		lower := strings.ToLower(href)
		for _, scheme := range []string{"javascript:", "mailto:", "tel:", "sms:", "data:", "ftp:"} {
			if strings.HasPrefix(lower, scheme) {
				return
			}
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		resolved.Fragment = ""

		link := resolved.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	return links
}

// normalizeURL canonicalizes a URL for visited-set membership: lowercased
// scheme/host, fragment stripped, trailing slash dropped from the path.
func normalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Fragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Path == "" {
		parsed.Path = "/"
	} else if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	return parsed.String()
}

// sameOrigin reports whether candidate shares scheme and host with origin
func sameOrigin(origin *url.URL, candidate string) bool {
	parsed, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Scheme, origin.Scheme) &&
		strings.EqualFold(parsed.Host, origin.Host)
}
