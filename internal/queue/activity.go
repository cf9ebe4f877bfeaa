package queue

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/outreach/internal/interfaces"
	"github.com/ternarybob/outreach/internal/models"
)

// StorageActivityLogger persists leveled progress entries tagged by
// campaign/domain and mirrors them to the process log. Implements
// interfaces.ActivityLogger for the pipeline.
type StorageActivityLogger struct {
	store  interfaces.ActivityStorage
	logger arbor.ILogger
}

// NewActivityLogger creates an activity logger backed by the given store
func NewActivityLogger(store interfaces.ActivityStorage, logger arbor.ILogger) *StorageActivityLogger {
	return &StorageActivityLogger{
		store:  store,
		logger: logger,
	}
}

func (l *StorageActivityLogger) Info(campaignID, domainID, format string, args ...interface{}) {
	l.log(models.ActivityLevelInfo, campaignID, domainID, format, args...)
}

func (l *StorageActivityLogger) Success(campaignID, domainID, format string, args ...interface{}) {
	l.log(models.ActivityLevelSuccess, campaignID, domainID, format, args...)
}

func (l *StorageActivityLogger) Warning(campaignID, domainID, format string, args ...interface{}) {
	l.log(models.ActivityLevelWarning, campaignID, domainID, format, args...)
}

func (l *StorageActivityLogger) Error(campaignID, domainID, format string, args ...interface{}) {
	l.log(models.ActivityLevelError, campaignID, domainID, format, args...)
}

func (l *StorageActivityLogger) Step(campaignID, domainID, format string, args ...interface{}) {
	l.log(models.ActivityLevelStep, campaignID, domainID, format, args...)
}

// log writes the entry to the store and mirrors it to arbor. A store failure
// must never interrupt the pipeline; it is logged and dropped.
func (l *StorageActivityLogger) log(level models.ActivityLevel, campaignID, domainID, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	event := l.logger.Info()
	switch level {
	case models.ActivityLevelWarning:
		event = l.logger.Warn()
	case models.ActivityLevelError:
		event = l.logger.Error()
	case models.ActivityLevelStep, models.ActivityLevelSuccess:
		event = l.logger.Info()
	}
	event.Str("campaign_id", campaignID).Str("domain_id", domainID).Msg(message)

	entry := &models.ActivityEntry{
		CampaignID: campaignID,
		DomainID:   domainID,
		Level:      level,
		Message:    message,
	}
	if err := l.store.AppendActivity(context.Background(), entry); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to persist activity entry")
	}
}
