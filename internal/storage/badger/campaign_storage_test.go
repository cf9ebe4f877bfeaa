package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/outreach/internal/models"
)

func TestMarkCompletedIfDone(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	campaigns := NewCampaignStorage(db, logger)
	domains := NewDomainStorage(db, logger).(*DomainStorage)
	ctx := context.Background()

	require.NoError(t, campaigns.SaveCampaign(ctx, &models.Campaign{
		ID:     "cmp_1",
		Name:   "Agency outreach",
		Status: models.CampaignStatusRunning,
	}))

	now := time.Now()
	seedDomain(t, domains, "dom_a", "cmp_1", models.DomainStatusCompleted, now)
	seedDomain(t, domains, "dom_b", "cmp_1", models.DomainStatusPending, now)
	seedDomain(t, domains, "dom_c", "cmp_1", models.DomainStatusFailed, now)

	// One domain still pending: not done
	done, err := campaigns.MarkCompletedIfDone(ctx, "cmp_1")
	require.NoError(t, err)
	assert.False(t, done)

	campaign, err := campaigns.GetCampaign(ctx, "cmp_1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusRunning, campaign.Status)

	// Finish the last domain: a mix of completed and failed still completes
	// the campaign
	seedDomain(t, domains, "dom_b", "cmp_1", models.DomainStatusCompleted, now)

	done, err = campaigns.MarkCompletedIfDone(ctx, "cmp_1")
	require.NoError(t, err)
	assert.True(t, done)

	campaign, err = campaigns.GetCampaign(ctx, "cmp_1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, campaign.Status)
	require.NotNil(t, campaign.CompletedAt)

	// Idempotent on redundant recomputes
	done, err = campaigns.MarkCompletedIfDone(ctx, "cmp_1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMarkCompletedIfDone_ConcurrentLastTwoFinalizers(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	campaigns := NewCampaignStorage(db, logger)
	domains := NewDomainStorage(db, logger).(*DomainStorage)
	ctx := context.Background()

	// Two workers finish a campaign's last two domains at the same time.
	// Whichever recomputes completion last must see both domains terminal
	// and flip the campaign. Repeated to give the interleaving a chance
	// to land both recomputes between the two saves.
	for i := 0; i < 20; i++ {
		campaignID := fmt.Sprintf("cmp_%d", i)
		require.NoError(t, campaigns.SaveCampaign(ctx, &models.Campaign{
			ID:     campaignID,
			Name:   fmt.Sprintf("Campaign %d", i),
			Status: models.CampaignStatusRunning,
		}))

		now := time.Now()
		domainA := fmt.Sprintf("dom_%d_a", i)
		domainB := fmt.Sprintf("dom_%d_b", i)
		seedDomain(t, domains, domainA, campaignID, models.DomainStatusProcessing, now)
		seedDomain(t, domains, domainB, campaignID, models.DomainStatusProcessing, now)

		start := make(chan struct{})
		var wg sync.WaitGroup
		for _, domainID := range []string{domainA, domainB} {
			wg.Add(1)
			go func(domainID string) {
				defer wg.Done()
				<-start
				assert.NoError(t, domains.db.Store().Upsert(domainID, &models.Domain{
					ID:         domainID,
					CampaignID: campaignID,
					URL:        "https://" + domainID + ".example",
					Status:     models.DomainStatusCompleted,
					CreatedAt:  now,
					UpdatedAt:  time.Now(),
				}))
				_, err := campaigns.MarkCompletedIfDone(ctx, campaignID)
				assert.NoError(t, err)
			}(domainID)
		}
		close(start)
		wg.Wait()

		campaign, err := campaigns.GetCampaign(ctx, campaignID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusCompleted, campaign.Status,
			"campaign %s left %s after both domains finished", campaignID, campaign.Status)
	}
}

func TestGetCampaignsByStatus(t *testing.T) {
	db := newTestDB(t)
	campaigns := NewCampaignStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, campaigns.SaveCampaign(ctx, &models.Campaign{ID: "cmp_run", Status: models.CampaignStatusRunning}))
	require.NoError(t, campaigns.SaveCampaign(ctx, &models.Campaign{ID: "cmp_paused", Status: models.CampaignStatusPaused}))
	require.NoError(t, campaigns.SaveCampaign(ctx, &models.Campaign{ID: "cmp_done", Status: models.CampaignStatusCompleted}))

	running, err := campaigns.GetCampaignsByStatus(ctx, models.CampaignStatusRunning)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "cmp_run", running[0].ID)
}

func TestUpsertPage_SameURLOverwrites(t *testing.T) {
	db := newTestDB(t)
	pages := NewPageStorage(db, arbor.NewLogger())
	ctx := context.Background()

	first := &models.PageDiscovery{
		CampaignID: "cmp_1", DomainID: "dom_1",
		URL: "https://site.example/contact", Title: "Contact", HasForms: true,
	}
	require.NoError(t, pages.UpsertPage(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &models.PageDiscovery{
		CampaignID: "cmp_1", DomainID: "dom_1",
		URL: "https://site.example/contact", Title: "Contact Us", HasForms: true,
	}
	require.NoError(t, pages.UpsertPage(ctx, second))
	assert.Equal(t, first.ID, second.ID, "re-crawling the same URL reuses the row")

	stored, err := pages.GetPagesByDomain(ctx, "cmp_1", "dom_1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Contact Us", stored[0].Title)

	// A different URL is a new row
	require.NoError(t, pages.UpsertPage(ctx, &models.PageDiscovery{
		CampaignID: "cmp_1", DomainID: "dom_1", URL: "https://site.example/about",
	}))

	count, err := pages.CountPagesByDomain(ctx, "cmp_1", "dom_1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsertContact_MergesNonEmptyValues(t *testing.T) {
	db := newTestDB(t)
	pages := NewPageStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, pages.UpsertContact(ctx, &models.ExtractedContact{
		CampaignID: "cmp_1", DomainID: "dom_1",
		Email: "hello@site.example", SourceURL: "https://site.example/",
	}))

	// A later page with only a phone must not clear the stored email
	require.NoError(t, pages.UpsertContact(ctx, &models.ExtractedContact{
		CampaignID: "cmp_1", DomainID: "dom_1",
		Phone: "+15551234567",
	}))

	contact, err := pages.GetContact(ctx, "cmp_1", "dom_1")
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "hello@site.example", contact.Email)
	assert.Equal(t, "+15551234567", contact.Phone)

	// A newer non-empty email overwrites
	require.NoError(t, pages.UpsertContact(ctx, &models.ExtractedContact{
		CampaignID: "cmp_1", DomainID: "dom_1",
		Email: "sales@site.example",
	}))

	contact, err = pages.GetContact(ctx, "cmp_1", "dom_1")
	require.NoError(t, err)
	assert.Equal(t, "sales@site.example", contact.Email)

	missing, err := pages.GetContact(ctx, "cmp_1", "dom_other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSubmissionLogAppendOnly(t *testing.T) {
	db := newTestDB(t)
	submissions := NewSubmissionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for _, status := range []models.SubmissionStatus{
		models.SubmissionStatusSuccess,
		models.SubmissionStatusFailed,
	} {
		require.NoError(t, submissions.AppendSubmission(ctx, &models.SubmissionLog{
			CampaignID: "cmp_1", DomainID: "dom_1",
			URL:    "https://site.example/contact",
			Type:   models.SubmissionTypeForm,
			Status: status,
		}))
	}

	logs, err := submissions.GetSubmissionsByDomain(ctx, "cmp_1", "dom_1")
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestActivityLogLimit(t *testing.T) {
	db := newTestDB(t)
	activity := NewActivityStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, activity.AppendActivity(ctx, &models.ActivityEntry{
			CampaignID: "cmp_1",
			Level:      models.ActivityLevelInfo,
			Message:    "progress",
			CreatedAt:  time.Now().Add(time.Duration(i) * time.Millisecond),
		}))
	}

	entries, err := activity.GetActivityByCampaign(ctx, "cmp_1", 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
