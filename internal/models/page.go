package models

import (
	"time"
)

// FormField describes a single fillable field extracted from a detected form
// or comment section.
type FormField struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	ID          string `json:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Label       string `json:"label,omitempty"`
	Required    bool   `json:"required"`
	TagName     string `json:"tag_name"`
}

// FormDescriptor describes one detected submittable form on a page.
// Selector is a generated key unique within the page, used both for
// deduplication across detection strategies and for locating the element
// again during submission.
type FormDescriptor struct {
	Selector string `json:"selector"`
	// PluginType is a best-effort label of the form plugin or builder that
	// produced the markup (e.g. "contact-form-7", "gravity-forms", "native")
	PluginType string `json:"plugin_type"`
	// DetectionMethod tags the strategy that matched: "plugin-signature",
	// "iframe-service", "native-form" or "generic-container". Useful for
	// debugging false positives, not required for correctness.
	DetectionMethod string      `json:"detection_method"`
	Action          string      `json:"action,omitempty"`
	Method          string      `json:"method,omitempty"`
	Fields          []FormField `json:"fields"`
}

// CommentDescriptor describes one detected comment section on a page.
type CommentDescriptor struct {
	Selector        string `json:"selector"`
	PluginType      string `json:"plugin_type"`
	DetectionMethod string `json:"detection_method"`
	// Embedded marks opaque third-party widgets with no fillable fields
	Embedded bool        `json:"embedded"`
	Fields   []FormField `json:"fields"`
}

// PageDiscovery is one row per crawled URL, upserted (never duplicated) per
// (campaign, domain, url).
type PageDiscovery struct {
	ID          string              `json:"id" badgerhold:"key"`
	CampaignID  string              `json:"campaign_id" badgerhold:"index"`
	DomainID    string              `json:"domain_id" badgerhold:"index"`
	URL         string              `json:"url"`
	Title       string              `json:"title,omitempty"`
	HasForms    bool                `json:"has_forms"`
	HasComments bool                `json:"has_comments"`
	Forms       []FormDescriptor    `json:"forms,omitempty"`
	Comments    []CommentDescriptor `json:"comments,omitempty"`
	// TextContent is a markdown rendition of the page body, kept for audit
	// and contact re-extraction without refetching
	TextContent string    `json:"text_content,omitempty"`
	CrawledAt   time.Time `json:"crawled_at"`
}

// ExtractedContact holds the best-known email/phone found for a domain.
// At most one row per (campaign, domain); later pages overwrite earlier
// non-null values.
type ExtractedContact struct {
	ID         string    `json:"id" badgerhold:"key"`
	CampaignID string    `json:"campaign_id" badgerhold:"index"`
	DomainID   string    `json:"domain_id" badgerhold:"index"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
