package models

import (
	"time"
)

// DomainStatus represents the processing state of a domain
type DomainStatus string

const (
	DomainStatusPending    DomainStatus = "pending"
	DomainStatusProcessing DomainStatus = "processing"
	DomainStatusCompleted  DomainStatus = "completed"
	DomainStatusFailed     DomainStatus = "failed"
)

// Domain represents one target website being processed through the
// analyze/crawl/submit pipeline. Owned by a Campaign and mutated only by the
// work coordinator.
//
// Status transitions are monotonic along pending -> processing -> {completed,
// failed}. A domain in processing may be forcibly reset to pending by the
// stuck-recovery sweep after a timeout; no other path re-enters pending.
type Domain struct {
	ID         string       `json:"id" badgerhold:"key"`
	CampaignID string       `json:"campaign_id" badgerhold:"index"`
	URL        string       `json:"url"`
	Status     DomainStatus `json:"status" badgerhold:"index"`
	// PagesDiscovered is the count of distinct pages visited during the crawl
	PagesDiscovered int  `json:"pages_discovered"`
	SitemapsFound   int  `json:"sitemaps_found"`
	HasRobotsTxt    bool `json:"has_robots_txt"`
	// ErrorMessage contains a concise description of why processing failed.
	// Only populated when status is 'failed', or when the stuck-recovery sweep
	// resets the domain (reason for the reset).
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsTerminal returns true when the domain has reached a final status
func (d *Domain) IsTerminal() bool {
	return d.Status == DomainStatusCompleted || d.Status == DomainStatusFailed
}
