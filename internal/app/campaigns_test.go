package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/outreach/internal/common"
	"github.com/ternarybob/outreach/internal/interfaces"
	"github.com/ternarybob/outreach/internal/models"
	storagebadger "github.com/ternarybob/outreach/internal/storage/badger"
)

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()

	manager, err := storagebadger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	return manager
}

func writeCampaignFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

const acmeCampaignYAML = `name: Acme outreach
submit_forms: true
sender:
  name: Jordan Reyes
  email: jordan@acme.io
  message: Hello from Acme.
domains:
  - https://one.example
  - https://two.example
`

func TestLoadCampaignsFromFiles_SeedsCampaignAndDomains(t *testing.T) {
	storage := newTestStorage(t)
	dir := t.TempDir()
	writeCampaignFile(t, dir, "acme.yaml", acmeCampaignYAML)

	require.NoError(t, LoadCampaignsFromFiles(context.Background(), storage, dir, arbor.NewLogger()))

	campaigns, err := storage.Campaigns().ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "Acme outreach", campaigns[0].Name)
	assert.Equal(t, models.CampaignStatusRunning, campaigns[0].Status)
	assert.True(t, campaigns[0].SubmitForms)
	assert.False(t, campaigns[0].SubmitComments)
	assert.Equal(t, "jordan@acme.io", campaigns[0].Sender.Email)

	domains, err := storage.Domains().GetDomainsByCampaign(context.Background(), campaigns[0].ID)
	require.NoError(t, err)
	require.Len(t, domains, 2)
	for _, domain := range domains {
		assert.Equal(t, models.DomainStatusPending, domain.Status)
	}
}

func TestLoadCampaignsFromFiles_ReloadAddsOnlyNewDomains(t *testing.T) {
	storage := newTestStorage(t)
	dir := t.TempDir()
	writeCampaignFile(t, dir, "acme.yaml", acmeCampaignYAML)

	require.NoError(t, LoadCampaignsFromFiles(context.Background(), storage, dir, arbor.NewLogger()))

	campaigns, err := storage.Campaigns().ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	campaignID := campaigns[0].ID

	// Mark one domain completed; a reload must not reset it.
	domains, err := storage.Domains().GetDomainsByCampaign(context.Background(), campaignID)
	require.NoError(t, err)
	domains[0].Status = models.DomainStatusCompleted
	require.NoError(t, storage.Domains().SaveDomain(context.Background(), domains[0]))

	writeCampaignFile(t, dir, "acme.yaml", acmeCampaignYAML+"  - https://three.example\n")
	require.NoError(t, LoadCampaignsFromFiles(context.Background(), storage, dir, arbor.NewLogger()))

	campaigns, err = storage.Campaigns().ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 1, "reload must not duplicate the campaign")
	assert.Equal(t, campaignID, campaigns[0].ID)

	reloaded, err := storage.Domains().GetDomainsByCampaign(context.Background(), campaignID)
	require.NoError(t, err)
	require.Len(t, reloaded, 3)

	statusByURL := make(map[string]models.DomainStatus, len(reloaded))
	for _, domain := range reloaded {
		statusByURL[domain.URL] = domain.Status
	}
	assert.Equal(t, models.DomainStatusCompleted, statusByURL[domains[0].URL])
	assert.Equal(t, models.DomainStatusPending, statusByURL["https://three.example"])
}

func TestLoadCampaignsFromFiles_InvalidFilesSkipped(t *testing.T) {
	storage := newTestStorage(t)
	dir := t.TempDir()
	writeCampaignFile(t, dir, "broken.yaml", "name: [unterminated")
	writeCampaignFile(t, dir, "nameless.yaml", "domains:\n  - https://one.example\n")
	writeCampaignFile(t, dir, "nodomains.yaml", "name: Empty\nsender:\n  email: a@b.co\n  message: hi\n")
	writeCampaignFile(t, dir, "notes.txt", "not a campaign")
	writeCampaignFile(t, dir, "acme.yaml", acmeCampaignYAML)

	require.NoError(t, LoadCampaignsFromFiles(context.Background(), storage, dir, arbor.NewLogger()))

	campaigns, err := storage.Campaigns().ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "Acme outreach", campaigns[0].Name)
}

func TestLoadCampaignsFromFiles_PausedCampaign(t *testing.T) {
	storage := newTestStorage(t)
	dir := t.TempDir()
	writeCampaignFile(t, dir, "paused.yaml", `name: Paused run
paused: true
sender:
  email: jordan@acme.io
  message: Hello.
domains:
  - https://one.example
`)

	require.NoError(t, LoadCampaignsFromFiles(context.Background(), storage, dir, arbor.NewLogger()))

	campaigns, err := storage.Campaigns().GetCampaignsByStatus(context.Background(), models.CampaignStatusPaused)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "Paused run", campaigns[0].Name)
}

func TestLoadCampaignsFromFiles_MissingDirIsNoop(t *testing.T) {
	storage := newTestStorage(t)

	err := LoadCampaignsFromFiles(context.Background(), storage, filepath.Join(t.TempDir(), "absent"), arbor.NewLogger())
	require.NoError(t, err)

	campaigns, err := storage.Campaigns().ListCampaigns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, campaigns)
}
