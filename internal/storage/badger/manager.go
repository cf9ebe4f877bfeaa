package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/outreach/internal/common"
	"github.com/ternarybob/outreach/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db          *BadgerDB
	campaigns   interfaces.CampaignStorage
	domains     interfaces.DomainStorage
	pages       interfaces.PageStorage
	submissions interfaces.SubmissionStorage
	activity    interfaces.ActivityStorage
	logger      arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:          db,
		campaigns:   NewCampaignStorage(db, logger),
		domains:     NewDomainStorage(db, logger),
		pages:       NewPageStorage(db, logger),
		submissions: NewSubmissionStorage(db, logger),
		activity:    NewActivityStorage(db, logger),
		logger:      logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// Campaigns returns the campaign storage interface
func (m *Manager) Campaigns() interfaces.CampaignStorage {
	return m.campaigns
}

// Domains returns the domain storage interface
func (m *Manager) Domains() interfaces.DomainStorage {
	return m.domains
}

// Pages returns the page/contact storage interface
func (m *Manager) Pages() interfaces.PageStorage {
	return m.pages
}

// Submissions returns the submission log storage interface
func (m *Manager) Submissions() interfaces.SubmissionStorage {
	return m.submissions
}

// Activity returns the activity log storage interface
func (m *Manager) Activity() interfaces.ActivityStorage {
	return m.activity
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
