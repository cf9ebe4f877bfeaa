package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/outreach/internal/interfaces"
	"github.com/ternarybob/outreach/internal/models"
)

// CampaignStorage implements the CampaignStorage interface for Badger
type CampaignStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	// Serializes the count-then-complete in MarkCompletedIfDone. The count
	// and the campaign update run in separate transactions, so two workers
	// finalizing a campaign's last domains could each see the other's
	// domain as still in flight and neither would flip the campaign.
	completionMu sync.Mutex
}

// NewCampaignStorage creates a new CampaignStorage instance
func NewCampaignStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CampaignStorage {
	return &CampaignStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CampaignStorage) SaveCampaign(ctx context.Context, campaign *models.Campaign) error {
	if campaign.ID == "" {
		return fmt.Errorf("campaign ID is required")
	}

	now := time.Now()
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}
	campaign.UpdatedAt = now

	if err := s.db.Store().Upsert(campaign.ID, campaign); err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}
	return nil
}

func (s *CampaignStorage) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := s.db.Store().Get(id, &campaign); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("campaign not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &campaign, nil
}

func (s *CampaignStorage) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	var campaigns []models.Campaign
	err := s.db.Store().Find(&campaigns, badgerhold.Where("ID").Ne("").SortBy("CreatedAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	result := make([]*models.Campaign, len(campaigns))
	for i := range campaigns {
		result[i] = &campaigns[i]
	}
	return result, nil
}

func (s *CampaignStorage) GetCampaignsByStatus(ctx context.Context, status models.CampaignStatus) ([]*models.Campaign, error) {
	var campaigns []models.Campaign
	err := s.db.Store().Find(&campaigns, badgerhold.Where("Status").Eq(status).SortBy("CreatedAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to get campaigns by status: %w", err)
	}

	result := make([]*models.Campaign, len(campaigns))
	for i := range campaigns {
		result[i] = &campaigns[i]
	}
	return result, nil
}

// MarkCompletedIfDone flips a running campaign to completed once none of its
// domains remain pending or processing. Safe to call redundantly from
// multiple workers: the conditional update matches at most once per
// campaign lifecycle.
func (s *CampaignStorage) MarkCompletedIfDone(ctx context.Context, campaignID string) (bool, error) {
	s.completionMu.Lock()
	defer s.completionMu.Unlock()

	remaining, err := s.db.Store().Count(&models.Domain{},
		badgerhold.Where("CampaignID").Eq(campaignID).
			And("Status").In(models.DomainStatusPending, models.DomainStatusProcessing))
	if err != nil {
		return false, fmt.Errorf("failed to count remaining domains: %w", err)
	}
	if remaining > 0 {
		return false, nil
	}

	completed := false
	err = s.db.Store().UpdateMatching(&models.Campaign{},
		badgerhold.Where(badgerhold.Key).Eq(campaignID).And("Status").Eq(models.CampaignStatusRunning),
		func(record interface{}) error {
			campaign, ok := record.(*models.Campaign)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			now := time.Now()
			campaign.Status = models.CampaignStatusCompleted
			campaign.CompletedAt = &now
			campaign.UpdatedAt = now
			completed = true
			return nil
		})
	if err != nil {
		// Another worker recomputing completion concurrently is fine
		if errors.Is(err, badgerdb.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to complete campaign: %w", err)
	}

	if completed {
		s.logger.Info().Str("campaign_id", campaignID).Msg("Campaign completed")
		return true, nil
	}

	// Already completed by another worker, or paused
	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return false, err
	}
	return campaign.Status == models.CampaignStatusCompleted, nil
}
