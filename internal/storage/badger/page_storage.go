package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/outreach/internal/common"
	"github.com/ternarybob/outreach/internal/interfaces"
	"github.com/ternarybob/outreach/internal/models"
)

// PageStorage implements the PageStorage interface for Badger
type PageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPageStorage creates a new PageStorage instance
func NewPageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PageStorage {
	return &PageStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertPage stores a page discovery keyed by (campaign, domain, url).
// Re-crawling the same URL overwrites the previous row instead of
// duplicating it.
func (p *PageStorage) UpsertPage(ctx context.Context, page *models.PageDiscovery) error {
	if page.CampaignID == "" || page.DomainID == "" || page.URL == "" {
		return fmt.Errorf("page requires campaign ID, domain ID and URL")
	}

	var existing []models.PageDiscovery
	err := p.db.Store().Find(&existing,
		badgerhold.Where("CampaignID").Eq(page.CampaignID).
			And("DomainID").Eq(page.DomainID).
			And("URL").Eq(page.URL).Limit(1))
	if err != nil {
		return fmt.Errorf("failed to look up existing page: %w", err)
	}

	if len(existing) > 0 {
		page.ID = existing[0].ID
	} else if page.ID == "" {
		page.ID = common.NewPageID()
	}
	if page.CrawledAt.IsZero() {
		page.CrawledAt = time.Now()
	}

	if err := p.db.Store().Upsert(page.ID, page); err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	return nil
}

func (p *PageStorage) GetPagesByDomain(ctx context.Context, campaignID, domainID string) ([]*models.PageDiscovery, error) {
	var pages []models.PageDiscovery
	err := p.db.Store().Find(&pages,
		badgerhold.Where("CampaignID").Eq(campaignID).
			And("DomainID").Eq(domainID).SortBy("CrawledAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}

	result := make([]*models.PageDiscovery, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}

func (p *PageStorage) CountPagesByDomain(ctx context.Context, campaignID, domainID string) (int, error) {
	count, err := p.db.Store().Count(&models.PageDiscovery{},
		badgerhold.Where("CampaignID").Eq(campaignID).And("DomainID").Eq(domainID))
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return int(count), nil
}

// UpsertContact keeps at most one contact row per (campaign, domain),
// merging: an incoming empty email or phone never clears a stored value,
// an incoming non-empty value overwrites it.
func (p *PageStorage) UpsertContact(ctx context.Context, contact *models.ExtractedContact) error {
	if contact.CampaignID == "" || contact.DomainID == "" {
		return fmt.Errorf("contact requires campaign ID and domain ID")
	}

	var existing []models.ExtractedContact
	err := p.db.Store().Find(&existing,
		badgerhold.Where("CampaignID").Eq(contact.CampaignID).
			And("DomainID").Eq(contact.DomainID).Limit(1))
	if err != nil {
		return fmt.Errorf("failed to look up existing contact: %w", err)
	}

	if len(existing) > 0 {
		prev := existing[0]
		contact.ID = prev.ID
		if contact.Email == "" {
			contact.Email = prev.Email
		}
		if contact.Phone == "" {
			contact.Phone = prev.Phone
		}
		if contact.SourceURL == "" {
			contact.SourceURL = prev.SourceURL
		}
	} else if contact.ID == "" {
		contact.ID = common.NewContactID()
	}
	contact.UpdatedAt = time.Now()

	if err := p.db.Store().Upsert(contact.ID, contact); err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

func (p *PageStorage) GetContact(ctx context.Context, campaignID, domainID string) (*models.ExtractedContact, error) {
	var contacts []models.ExtractedContact
	err := p.db.Store().Find(&contacts,
		badgerhold.Where("CampaignID").Eq(campaignID).
			And("DomainID").Eq(domainID).Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if len(contacts) == 0 {
		return nil, nil
	}
	return &contacts[0], nil
}
