package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/outreach/internal/common"
	"github.com/ternarybob/outreach/internal/interfaces"
	"github.com/ternarybob/outreach/internal/models"
	"gopkg.in/yaml.v3"
)

// CampaignFile is the on-disk YAML shape of a campaign seed. Campaigns are
// matched to existing records by name so re-running the loader updates the
// sender and config rather than duplicating the campaign.
type CampaignFile struct {
	Name           string                `yaml:"name" validate:"required"`
	Paused         bool                  `yaml:"paused"`
	SubmitForms    bool                  `yaml:"submit_forms"`
	SubmitComments bool                  `yaml:"submit_comments"`
	Sender         models.SenderData     `yaml:"sender" validate:"required"`
	Config         models.CampaignConfig `yaml:"config"`
	Domains        []string              `yaml:"domains" validate:"required,min=1,dive,url"`
}

// LoadCampaignsFromFiles loads campaign seeds from YAML files in the specified
// directory. Invalid or unreadable files are logged and skipped so one bad
// seed never blocks the rest.
func LoadCampaignsFromFiles(ctx context.Context, storage interfaces.StorageManager, campaignsDir string, logger arbor.ILogger) error {
	if _, err := os.Stat(campaignsDir); os.IsNotExist(err) {
		logger.Debug().Str("dir", campaignsDir).Msg("Campaigns directory does not exist, skipping")
		return nil
	}

	logger.Info().Str("dir", campaignsDir).Msg("Loading campaigns from files")

	entries, err := os.ReadDir(campaignsDir)
	if err != nil {
		return fmt.Errorf("failed to read campaigns directory: %w", err)
	}

	validate := validator.New()
	loadedCount := 0
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		filePath := filepath.Join(campaignsDir, entry.Name())

		yamlBytes, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read campaign file")
			continue
		}

		var campaignFile CampaignFile
		if err := yaml.Unmarshal(yamlBytes, &campaignFile); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse campaign YAML")
			continue
		}

		if err := validate.Struct(&campaignFile); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Campaign file failed validation, skipping")
			continue
		}

		if err := upsertCampaign(ctx, storage, &campaignFile, logger); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Str("name", campaignFile.Name).Msg("Failed to store campaign")
			continue
		}

		logger.Info().Str("file", entry.Name()).Str("name", campaignFile.Name).Int("domains", len(campaignFile.Domains)).Msg("Campaign loaded from file")
		loadedCount++
	}

	if loadedCount > 0 {
		logger.Info().Int("count", loadedCount).Msg("Campaigns loaded from files")
	} else {
		logger.Debug().Msg("No campaigns loaded from files")
	}

	return nil
}

// upsertCampaign creates or updates the campaign record and inserts any domain
// URLs not already tracked for it. Existing domains keep their status so a
// reload never restarts finished work, and a completed campaign with new
// domains is reopened.
func upsertCampaign(ctx context.Context, storage interfaces.StorageManager, file *CampaignFile, logger arbor.ILogger) error {
	campaign, err := findCampaignByName(ctx, storage.Campaigns(), file.Name)
	if err != nil {
		return err
	}

	status := models.CampaignStatusRunning
	if file.Paused {
		status = models.CampaignStatusPaused
	}

	if campaign == nil {
		campaign = &models.Campaign{
			ID:   common.NewCampaignID(),
			Name: file.Name,
		}
	}
	campaign.Status = status
	campaign.SubmitForms = file.SubmitForms
	campaign.SubmitComments = file.SubmitComments
	campaign.Sender = file.Sender
	campaign.Config = file.Config
	campaign.CompletedAt = nil

	if err := storage.Campaigns().SaveCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}

	existing, err := storage.Domains().GetDomainsByCampaign(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to list campaign domains: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, domain := range existing {
		known[domain.URL] = true
	}

	added := 0
	for _, url := range file.Domains {
		if known[url] {
			continue
		}
		domain := &models.Domain{
			ID:         common.NewDomainID(),
			CampaignID: campaign.ID,
			URL:        url,
			Status:     models.DomainStatusPending,
		}
		if err := storage.Domains().SaveDomain(ctx, domain); err != nil {
			logger.Warn().Err(err).Str("url", url).Str("campaign", campaign.Name).Msg("Failed to save domain")
			continue
		}
		known[url] = true
		added++
	}

	if added > 0 {
		logger.Info().Str("campaign", campaign.Name).Int("added", added).Msg("New domains queued for campaign")
	}

	return nil
}

func findCampaignByName(ctx context.Context, campaigns interfaces.CampaignStorage, name string) (*models.Campaign, error) {
	all, err := campaigns.ListCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	for _, campaign := range all {
		if campaign.Name == name {
			return campaign, nil
		}
	}
	return nil, nil
}
