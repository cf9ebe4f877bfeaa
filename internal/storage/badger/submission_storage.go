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

// SubmissionStorage implements the append-only submission log for Badger
type SubmissionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSubmissionStorage creates a new SubmissionStorage instance
func NewSubmissionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SubmissionStorage {
	return &SubmissionStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SubmissionStorage) AppendSubmission(ctx context.Context, log *models.SubmissionLog) error {
	if log.CampaignID == "" || log.DomainID == "" {
		return fmt.Errorf("submission log requires campaign ID and domain ID")
	}

	if log.ID == "" {
		log.ID = common.NewSubmissionID()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	if err := s.db.Store().Insert(log.ID, log); err != nil {
		return fmt.Errorf("failed to append submission log: %w", err)
	}
	return nil
}

func (s *SubmissionStorage) GetSubmissionsByDomain(ctx context.Context, campaignID, domainID string) ([]*models.SubmissionLog, error) {
	var logs []models.SubmissionLog
	err := s.db.Store().Find(&logs,
		badgerhold.Where("CampaignID").Eq(campaignID).
			And("DomainID").Eq(domainID).SortBy("CreatedAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to get submission logs: %w", err)
	}

	result := make([]*models.SubmissionLog, len(logs))
	for i := range logs {
		result[i] = &logs[i]
	}
	return result, nil
}
