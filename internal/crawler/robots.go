package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// robotsTxtPath is the well-known path for robots.txt files
const robotsTxtPath = "/robots.txt"

// maxRobotsBodyBytes limits the size of robots.txt responses we will read
const maxRobotsBodyBytes = 512 * 1024

// fetchRobots retrieves and parses robots.txt for the domain of rawURL.
// Absence or failure is not an error: crawling proceeds with no rules
// (allow all), which is standard practice.
func (e *Engine) fetchRobots(ctx context.Context, rawURL string) (data *robotstxt.RobotsData, raw string, found bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, "", false
	}

	robotsURL := parsed.Scheme + "://" + parsed.Host + robotsTxtPath

	reqCtx, cancel := context.WithTimeout(ctx, e.config.RobotsTimeout.Std())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return nil, "", false
	}
	req.Header.Set("User-Agent", e.config.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Debug().Err(err).Str("url", robotsURL).Msg("robots.txt fetch failed")
		return nil, "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return nil, "", false
	}

	parsedRobots, err := robotstxt.FromBytes(body)
	if err != nil {
		e.logger.Debug().Err(err).Str("url", robotsURL).Msg("robots.txt parse failed")
		return nil, string(body), true
	}

	return parsedRobots, string(body), true
}

// allowed consults the ruleset for the candidate URL path. A nil ruleset
// allows everything.
func (e *Engine) allowed(robots *robotstxt.RobotsData, rawURL string) bool {
	if robots == nil {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path = fmt.Sprintf("%s?%s", path, parsed.RawQuery)
	}
	return robots.TestAgent(path, e.config.UserAgent)
}
