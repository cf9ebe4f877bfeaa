package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/outreach/internal/models"
)

// CampaignStorage - interface for campaign persistence
type CampaignStorage interface {
	SaveCampaign(ctx context.Context, campaign *models.Campaign) error
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	ListCampaigns(ctx context.Context) ([]*models.Campaign, error)
	GetCampaignsByStatus(ctx context.Context, status models.CampaignStatus) ([]*models.Campaign, error)
	// MarkCompletedIfDone sets the campaign to completed when no domain of the
	// campaign remains pending or processing. Idempotent and safe to call
	// redundantly from multiple workers. Returns true when the campaign is
	// (now or already) completed.
	MarkCompletedIfDone(ctx context.Context, campaignID string) (bool, error)
}

// DomainStorage - interface for domain persistence and exclusive claiming
type DomainStorage interface {
	SaveDomain(ctx context.Context, domain *models.Domain) error
	GetDomain(ctx context.Context, id string) (*models.Domain, error)
	GetDomainsByCampaign(ctx context.Context, campaignID string) ([]*models.Domain, error)
	CountDomainsByStatus(ctx context.Context, campaignID string, statuses ...models.DomainStatus) (int, error)

	// OldestPendingDomain returns the oldest pending domain belonging to any
	// of the given campaigns, excluding the given domain IDs (claim races
	// already lost this cycle). Returns nil when the candidate set is empty.
	OldestPendingDomain(ctx context.Context, campaignIDs []string, exclude []string) (*models.Domain, error)

	// ClaimDomain attempts the conditional transition pending -> processing.
	// The update only applies while the row still has status pending; the
	// returned bool is the affected-row signal (false = another worker won).
	ClaimDomain(ctx context.Context, domainID string) (bool, error)

	// ResetStuck returns domains in processing longer than threshold back to
	// pending, annotated with reason. Returns the number of domains reset.
	ResetStuck(ctx context.Context, threshold time.Duration, reason string) (int, error)
}

// PageStorage - interface for crawled-page and extracted-contact persistence
type PageStorage interface {
	// UpsertPage stores a page discovery keyed by (campaign, domain, url);
	// re-crawling the same URL overwrites rather than duplicates.
	UpsertPage(ctx context.Context, page *models.PageDiscovery) error
	GetPagesByDomain(ctx context.Context, campaignID, domainID string) ([]*models.PageDiscovery, error)
	CountPagesByDomain(ctx context.Context, campaignID, domainID string) (int, error)

	// UpsertContact keeps at most one contact row per (campaign, domain),
	// merging non-empty email/phone over the existing values.
	UpsertContact(ctx context.Context, contact *models.ExtractedContact) error
	GetContact(ctx context.Context, campaignID, domainID string) (*models.ExtractedContact, error)
}

// SubmissionStorage - interface for the append-only submission log
type SubmissionStorage interface {
	AppendSubmission(ctx context.Context, log *models.SubmissionLog) error
	GetSubmissionsByDomain(ctx context.Context, campaignID, domainID string) ([]*models.SubmissionLog, error)
}

// ActivityStorage - interface for persisted progress entries
type ActivityStorage interface {
	AppendActivity(ctx context.Context, entry *models.ActivityEntry) error
	GetActivityByCampaign(ctx context.Context, campaignID string, limit int) ([]*models.ActivityEntry, error)
}

// StorageManager aggregates the per-entity storages behind one handle
type StorageManager interface {
	Campaigns() CampaignStorage
	Domains() DomainStorage
	Pages() PageStorage
	Submissions() SubmissionStorage
	Activity() ActivityStorage
	Close() error
}
