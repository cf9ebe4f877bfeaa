package crawler

import (
	"time"

	"github.com/temoto/robotstxt"

	"github.com/ternarybob/outreach/internal/models"
)

// AnalyzeResult is the outcome of pre-crawl domain analysis: robots rules
// plus sitemap-derived URL seeds.
type AnalyzeResult struct {
	// RobotsTxt is the raw robots.txt body, empty when none was found
	RobotsTxt string
	// Robots is the parsed ruleset; nil means no rules (allow everything)
	Robots *robotstxt.RobotsData
	// HasRobotsTxt reports whether a robots.txt was successfully fetched
	HasRobotsTxt bool
	// Sitemaps are the sitemap URLs that responded to a probe
	Sitemaps []string
	// URLs is the capped seed list extracted from the sitemaps
	URLs []string
}

// CrawlOptions bounds a single domain crawl
type CrawlOptions struct {
	// MaxPages is the maximum number of distinct pages to visit
	MaxPages int
	// Robots is consulted before fetching each candidate; nil allows all
	Robots *robotstxt.RobotsData
	// InitialURLs seed the BFS queue alongside the start URL
	InitialURLs []string
	// MinDelay/MaxDelay bound the randomized wait between requests;
	// zero values fall back to the engine defaults
	MinDelay time.Duration
	MaxDelay time.Duration
}

// PageResult is the outcome of crawling a single page
type PageResult struct {
	URL      string
	Title    string
	Forms    []models.FormDescriptor
	Comments []models.CommentDescriptor
	Contacts ContactInfo
	// TextContent is a markdown rendition of the page body
	TextContent string
	CrawledAt   time.Time
}

// ContactInfo mirrors the extractor output on a page result
type ContactInfo struct {
	Email string
	Phone string
}

// HasForms reports whether any submittable form was found on the page
func (p *PageResult) HasForms() bool {
	return len(p.Forms) > 0
}

// HasComments reports whether any comment section was found on the page
func (p *PageResult) HasComments() bool {
	return len(p.Comments) > 0
}
