package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/outreach/internal/interfaces"
	"github.com/ternarybob/outreach/internal/models"
)

// DomainStorage implements the DomainStorage interface for Badger
type DomainStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDomainStorage creates a new DomainStorage instance
func NewDomainStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DomainStorage {
	return &DomainStorage{
		db:     db,
		logger: logger,
	}
}

func (s *DomainStorage) SaveDomain(ctx context.Context, domain *models.Domain) error {
	if domain.ID == "" {
		return fmt.Errorf("domain ID is required")
	}

	now := time.Now()
	if domain.CreatedAt.IsZero() {
		domain.CreatedAt = now
	}
	domain.UpdatedAt = now

	if err := s.db.Store().Upsert(domain.ID, domain); err != nil {
		return fmt.Errorf("failed to save domain: %w", err)
	}
	return nil
}

func (s *DomainStorage) GetDomain(ctx context.Context, id string) (*models.Domain, error) {
	var domain models.Domain
	if err := s.db.Store().Get(id, &domain); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("domain not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}
	return &domain, nil
}

func (s *DomainStorage) GetDomainsByCampaign(ctx context.Context, campaignID string) ([]*models.Domain, error) {
	var domains []models.Domain
	err := s.db.Store().Find(&domains, badgerhold.Where("CampaignID").Eq(campaignID).SortBy("CreatedAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	result := make([]*models.Domain, len(domains))
	for i := range domains {
		result[i] = &domains[i]
	}
	return result, nil
}

func (s *DomainStorage) CountDomainsByStatus(ctx context.Context, campaignID string, statuses ...models.DomainStatus) (int, error) {
	values := make([]interface{}, len(statuses))
	for i, status := range statuses {
		values[i] = status
	}

	count, err := s.db.Store().Count(&models.Domain{},
		badgerhold.Where("CampaignID").Eq(campaignID).And("Status").In(values...))
	if err != nil {
		return 0, fmt.Errorf("failed to count domains: %w", err)
	}
	return int(count), nil
}

// OldestPendingDomain returns the oldest pending domain of any given
// campaign, skipping excluded IDs. Nil result with nil error means nothing
// is waiting.
func (s *DomainStorage) OldestPendingDomain(ctx context.Context, campaignIDs []string, exclude []string) (*models.Domain, error) {
	if len(campaignIDs) == 0 {
		return nil, nil
	}

	campaigns := make([]interface{}, len(campaignIDs))
	for i, id := range campaignIDs {
		campaigns[i] = id
	}

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var domains []models.Domain
	err := s.db.Store().Find(&domains,
		badgerhold.Where("Status").Eq(models.DomainStatusPending).
			And("CampaignID").In(campaigns...).
			SortBy("CreatedAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending domains: %w", err)
	}

	for i := range domains {
		if !excluded[domains[i].ID] {
			return &domains[i], nil
		}
	}
	return nil, nil
}

// ClaimDomain attempts the conditional transition pending -> processing
// inside one transaction. The read of the row is done with the transaction's
// own Get so it registers with Badger's conflict detection: when two claims
// overlap, the later commit fails with ErrConflict and exactly one wins.
// False means another worker claimed it first.
func (s *DomainStorage) ClaimDomain(ctx context.Context, domainID string) (bool, error) {
	claimed := false
	err := s.db.Store().Badger().Update(func(tx *badgerdb.Txn) error {
		var domain models.Domain
		if err := s.db.Store().TxGet(tx, domainID, &domain); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return nil
			}
			return err
		}
		if domain.Status != models.DomainStatusPending {
			return nil
		}

		domain.Status = models.DomainStatusProcessing
		domain.ErrorMessage = ""
		domain.UpdatedAt = time.Now()
		if err := s.db.Store().TxUpdate(tx, domainID, domain); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		// A write conflict means another worker touched the row first,
		// which is a lost race, not an error
		if errors.Is(err, badgerdb.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim domain: %w", err)
	}

	if claimed {
		s.logger.Debug().Str("domain_id", domainID).Msg("Domain claimed")
	}
	return claimed, nil
}

// ResetStuck returns domains stuck in processing back to pending. A domain
// is stuck when its last update is older than threshold; a claim always
// touches UpdatedAt, so this expires claims held by dead workers.
func (s *DomainStorage) ResetStuck(ctx context.Context, threshold time.Duration, reason string) (int, error) {
	cutoff := time.Now().Add(-threshold)

	var stale []models.Domain
	err := s.db.Store().Find(&stale,
		badgerhold.Where("Status").Eq(models.DomainStatusProcessing).And("UpdatedAt").Lt(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to query stuck domains: %w", err)
	}

	// Each candidate is re-checked and flipped in its own tracked transaction
	// so a domain that a live worker finalizes mid-sweep is left alone.
	reset := 0
	for i := range stale {
		id := stale[i].ID
		flipped := false
		err := s.db.Store().Badger().Update(func(tx *badgerdb.Txn) error {
			var domain models.Domain
			if err := s.db.Store().TxGet(tx, id, &domain); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return nil
				}
				return err
			}
			if domain.Status != models.DomainStatusProcessing || !domain.UpdatedAt.Before(cutoff) {
				return nil
			}

			domain.Status = models.DomainStatusPending
			domain.ErrorMessage = reason
			domain.UpdatedAt = time.Now()
			if err := s.db.Store().TxUpdate(tx, id, domain); err != nil {
				return err
			}
			flipped = true
			return nil
		})
		if err != nil {
			// The domain moved on while the sweep held it; not stuck anymore
			if errors.Is(err, badgerdb.ErrConflict) {
				continue
			}
			return reset, fmt.Errorf("failed to reset stuck domains: %w", err)
		}
		if flipped {
			reset++
		}
	}

	if reset > 0 {
		s.logger.Warn().Int("count", reset).Dur("threshold", threshold).Msg("Stuck domains returned to pending")
	}
	return reset, nil
}
