package crawler

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Conventional sitemap locations probed when robots.txt declares none.
var conventionalSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/wp-sitemap.xml",
	"/sitemap1.xml",
	"/sitemapindex.xml",
}

// maxSitemapURLs caps URL accumulation across all sitemaps of a domain to
// bound memory on very large sites.
const maxSitemapURLs = 500

// maxSeedURLs caps the seed list handed to the crawl queue
const maxSeedURLs = 100

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapLoc `xml:"url"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// discoverSitemaps collects sitemap URLs from robots.txt directives plus the
// conventional locations, keeping only those that answer a lightweight probe.
func (e *Engine) discoverSitemaps(ctx context.Context, baseURL string, robotsRaw string) []string {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return nil
	}
	root := parsed.Scheme + "://" + parsed.Host

	var candidates []string
	seen := make(map[string]bool)

	// Sitemap directives from robots.txt
	for _, line := range strings.Split(robotsRaw, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 8 || !strings.EqualFold(line[:8], "sitemap:") {
			continue
		}
		loc := strings.TrimSpace(line[8:])
		if loc != "" && !seen[loc] {
			seen[loc] = true
			candidates = append(candidates, loc)
		}
	}

	// Conventional paths
	for _, path := range conventionalSitemapPaths {
		loc := root + path
		if !seen[loc] {
			seen[loc] = true
			candidates = append(candidates, loc)
		}
	}

	var sitemaps []string
	for _, candidate := range candidates {
		if e.probeSitemap(ctx, candidate) {
			sitemaps = append(sitemaps, candidate)
		}
	}

	return sitemaps
}

// probeSitemap checks existence with a HEAD request, falling back to GET for
// servers that reject HEAD.
func (e *Engine) probeSitemap(ctx context.Context, sitemapURL string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.SitemapTimeout.Std())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, sitemapURL, http.NoBody)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", e.config.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		getReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, sitemapURL, http.NoBody)
		if err != nil {
			return false
		}
		getReq.Header.Set("User-Agent", e.config.UserAgent)
		getResp, err := e.client.Do(getReq)
		if err != nil {
			return false
		}
		io.Copy(io.Discard, getResp.Body)
		getResp.Body.Close()
		return getResp.StatusCode >= 200 && getResp.StatusCode < 300
	}

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// extractSitemapURLs fetches each sitemap and accumulates page URLs.
// Sitemap-index documents are expanded exactly one level; accumulation stops
// at maxSitemapURLs across all sitemaps of the domain.
func (e *Engine) extractSitemapURLs(ctx context.Context, sitemaps []string) []string {
	var urls []string
	seen := make(map[string]bool)

	add := func(loc string) bool {
		loc = strings.TrimSpace(loc)
		if loc == "" || seen[loc] {
			return len(urls) < maxSitemapURLs
		}
		seen[loc] = true
		urls = append(urls, loc)
		return len(urls) < maxSitemapURLs
	}

	for _, sitemapURL := range sitemaps {
		if len(urls) >= maxSitemapURLs {
			break
		}

		body, err := e.fetchSitemap(ctx, sitemapURL)
		if err != nil {
			e.logger.Debug().Err(err).Str("sitemap", sitemapURL).Msg("Sitemap fetch failed")
			continue
		}

		pageURLs, children := parseSitemap(body)

		for _, loc := range pageURLs {
			if !add(loc) {
				break
			}
		}

		// Expand index documents one level only
		for _, child := range children {
			if len(urls) >= maxSitemapURLs {
				break
			}
			childBody, err := e.fetchSitemap(ctx, child)
			if err != nil {
				continue
			}
			childURLs, _ := parseSitemap(childBody)
			for _, loc := range childURLs {
				if !add(loc) {
					break
				}
			}
		}
	}

	return urls
}

// parseSitemap decodes a sitemap document, returning page URLs and, for
// index documents, the child sitemap URLs.
func parseSitemap(body []byte) (pageURLs []string, childSitemaps []string) {
	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil && len(index.Sitemaps) > 0 {
		for _, s := range index.Sitemaps {
			childSitemaps = append(childSitemaps, strings.TrimSpace(s.Loc))
		}
		return nil, childSitemaps
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err == nil {
		for _, u := range set.URLs {
			pageURLs = append(pageURLs, strings.TrimSpace(u.Loc))
		}
	}

	return pageURLs, nil
}

func (e *Engine) fetchSitemap(ctx context.Context, sitemapURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.SitemapTimeout.Std())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, sitemapURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.config.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(io.LimitReader(resp.Body, e.config.MaxBodySize))
}
