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

// ActivityStorage implements the persisted progress log for Badger
type ActivityStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewActivityStorage creates a new ActivityStorage instance
func NewActivityStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ActivityStorage {
	return &ActivityStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ActivityStorage) AppendActivity(ctx context.Context, entry *models.ActivityEntry) error {
	if entry.CampaignID == "" {
		return fmt.Errorf("activity entry requires a campaign ID")
	}

	if entry.ID == "" {
		entry.ID = common.NewActivityID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := s.db.Store().Insert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to append activity entry: %w", err)
	}
	return nil
}

func (s *ActivityStorage) GetActivityByCampaign(ctx context.Context, campaignID string, limit int) ([]*models.ActivityEntry, error) {
	query := badgerhold.Where("CampaignID").Eq(campaignID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.ActivityEntry
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to get activity entries: %w", err)
	}

	result := make([]*models.ActivityEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}
