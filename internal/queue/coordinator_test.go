package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/outreach/internal/common"
	"github.com/ternarybob/outreach/internal/crawler"
	"github.com/ternarybob/outreach/internal/interfaces"
	"github.com/ternarybob/outreach/internal/models"
	storagebadger "github.com/ternarybob/outreach/internal/storage/badger"
)

// mockEngine stubs the crawl engine with function fields
type mockEngine struct {
	analyzeFunc func(ctx context.Context, url string) (*crawler.AnalyzeResult, error)
	crawlFunc   func(ctx context.Context, url string, opts crawler.CrawlOptions) ([]*crawler.PageResult, error)
}

func (m *mockEngine) AnalyzeDomain(ctx context.Context, url string) (*crawler.AnalyzeResult, error) {
	if m.analyzeFunc != nil {
		return m.analyzeFunc(ctx, url)
	}
	return &crawler.AnalyzeResult{}, nil
}

func (m *mockEngine) CrawlPages(ctx context.Context, url string, opts crawler.CrawlOptions) ([]*crawler.PageResult, error) {
	if m.crawlFunc != nil {
		return m.crawlFunc(ctx, url, opts)
	}
	return nil, nil
}

// mockActor stubs the submission actors
type mockActor struct {
	formResult    models.SubmissionResult
	commentResult models.SubmissionResult
	formCalls     int
	commentCalls  int
}

func (m *mockActor) SubmitForm(ctx context.Context, url string, form models.FormDescriptor, sender models.SenderData) models.SubmissionResult {
	m.formCalls++
	return m.formResult
}

func (m *mockActor) SubmitComment(ctx context.Context, url string, comment models.CommentDescriptor, sender models.SenderData) models.SubmissionResult {
	m.commentCalls++
	return m.commentResult
}

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := storagebadger.NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func newTestCoordinator(t *testing.T, storage interfaces.StorageManager, engine CrawlEngine, actor SubmissionActor) *Coordinator {
	t.Helper()
	config := common.DefaultConfig()
	config.Submit.RetryDelay = common.Duration(time.Millisecond)
	return NewCoordinator(storage, engine, actor, interfaces.NoopActivityLogger{}, config, arbor.NewLogger())
}

func seedCampaignWithDomains(t *testing.T, storage interfaces.StorageManager, campaign *models.Campaign, urls ...string) []string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, storage.Campaigns().SaveCampaign(ctx, campaign))

	ids := make([]string, len(urls))
	for i, url := range urls {
		domain := &models.Domain{
			ID:         common.NewDomainID(),
			CampaignID: campaign.ID,
			URL:        url,
			Status:     models.DomainStatusPending,
			CreatedAt:  time.Now().Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, storage.Domains().SaveDomain(ctx, domain))
		ids[i] = domain.ID
	}
	return ids
}

func contactPage(url string) []*crawler.PageResult {
	return []*crawler.PageResult{{
		URL:   url + "/contact",
		Title: "Contact",
		Forms: []models.FormDescriptor{{
			Selector:   "form#contact",
			PluginType: "native",
			Fields:     []models.FormField{{Type: "email", Name: "email", TagName: "input"}},
		}},
		Contacts:  crawler.ContactInfo{Email: "owner@site.example"},
		CrawledAt: time.Now(),
	}}
}

func TestProcessNextDomain_CompletesDomainAndPersists(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	campaign := &models.Campaign{
		ID:          "cmp_1",
		Status:      models.CampaignStatusRunning,
		SubmitForms: true,
		Sender:      models.SenderData{Name: "Jordan", Email: "jordan@agency.example", Message: "Hi"},
	}
	ids := seedCampaignWithDomains(t, storage, campaign, "https://site.example")

	engine := &mockEngine{
		analyzeFunc: func(context.Context, string) (*crawler.AnalyzeResult, error) {
			return &crawler.AnalyzeResult{HasRobotsTxt: true, Sitemaps: []string{"https://site.example/sitemap.xml"}}, nil
		},
		crawlFunc: func(_ context.Context, url string, _ crawler.CrawlOptions) ([]*crawler.PageResult, error) {
			return contactPage(url), nil
		},
	}
	actor := &mockActor{formResult: models.SubmissionResult{Success: true, Status: models.SubmissionStatusSuccess}}

	coordinator := newTestCoordinator(t, storage, engine, actor)
	assert.True(t, coordinator.ProcessNextDomain(ctx))

	domain, err := storage.Domains().GetDomain(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.DomainStatusCompleted, domain.Status)
	assert.True(t, domain.HasRobotsTxt)
	assert.Equal(t, 1, domain.SitemapsFound)
	assert.Equal(t, 1, domain.PagesDiscovered)
	assert.Empty(t, domain.ErrorMessage)

	pages, err := storage.Pages().GetPagesByDomain(ctx, "cmp_1", ids[0])
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.True(t, pages[0].HasForms)

	contact, err := storage.Pages().GetContact(ctx, "cmp_1", ids[0])
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "owner@site.example", contact.Email)

	logs, err := storage.Submissions().GetSubmissionsByDomain(ctx, "cmp_1", ids[0])
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.SubmissionStatusSuccess, logs[0].Status)
	assert.Equal(t, 1, actor.formCalls)

	// Single domain done: campaign completes
	refreshed, err := storage.Campaigns().GetCampaign(ctx, "cmp_1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, refreshed.Status)

	// Nothing left to do
	assert.False(t, coordinator.ProcessNextDomain(ctx))
}

func TestProcessNextDomain_AllFormSubmissionsFailedMarksDomainFailed(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	campaign := &models.Campaign{
		ID:             "cmp_1",
		Status:         models.CampaignStatusRunning,
		SubmitForms:    true,
		SubmitComments: true,
		Sender:         models.SenderData{Email: "a@b.example", Message: "Hi"},
	}
	ids := seedCampaignWithDomains(t, storage, campaign, "https://site.example")

	pages := contactPage("https://site.example")
	pages[0].Comments = []models.CommentDescriptor{{
		Selector: "form#commentform",
		Fields: []models.FormField{
			{TagName: "textarea", Name: "comment"},
			{Type: "email", Name: "email", TagName: "input"},
		},
	}}

	engine := &mockEngine{
		crawlFunc: func(context.Context, string, crawler.CrawlOptions) ([]*crawler.PageResult, error) {
			return pages, nil
		},
	}
	actor := &mockActor{
		formResult:    models.SubmissionResult{Status: models.SubmissionStatusFailed, Message: "submit button not found"},
		commentResult: models.SubmissionResult{Status: models.SubmissionStatusFailed, Message: "comments are closed"},
	}

	coordinator := newTestCoordinator(t, storage, engine, actor)
	assert.True(t, coordinator.ProcessNextDomain(ctx))

	domain, err := storage.Domains().GetDomain(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.DomainStatusFailed, domain.Status)
	assert.Contains(t, domain.ErrorMessage, "form submissions failed")

	// Structural failure: no retry
	assert.Equal(t, 1, actor.formCalls)
}

func TestProcessNextDomain_FailedCommentsDoNotFailDomain(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	campaign := &models.Campaign{
		ID:             "cmp_1",
		Status:         models.CampaignStatusRunning,
		SubmitComments: true,
		Sender:         models.SenderData{Email: "a@b.example", Message: "Hi"},
	}
	ids := seedCampaignWithDomains(t, storage, campaign, "https://site.example")

	pages := []*crawler.PageResult{{
		URL: "https://site.example/blog/post",
		Comments: []models.CommentDescriptor{{
			Selector: "form#commentform",
			Fields: []models.FormField{
				{TagName: "textarea", Name: "comment"},
				{Type: "email", Name: "email", TagName: "input"},
			},
		}},
		CrawledAt: time.Now(),
	}}

	engine := &mockEngine{
		crawlFunc: func(context.Context, string, crawler.CrawlOptions) ([]*crawler.PageResult, error) {
			return pages, nil
		},
	}
	actor := &mockActor{
		commentResult: models.SubmissionResult{Status: models.SubmissionStatusFailed, Message: "comments are closed"},
	}

	coordinator := newTestCoordinator(t, storage, engine, actor)
	assert.True(t, coordinator.ProcessNextDomain(ctx))

	domain, err := storage.Domains().GetDomain(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.DomainStatusCompleted, domain.Status)
	assert.Equal(t, 1, actor.commentCalls)
}

func TestProcessNextDomain_AnalyzeErrorMarksDomainFailed(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	campaign := &models.Campaign{ID: "cmp_1", Status: models.CampaignStatusRunning}
	ids := seedCampaignWithDomains(t, storage, campaign, "https://site.example")

	engine := &mockEngine{
		analyzeFunc: func(context.Context, string) (*crawler.AnalyzeResult, error) {
			return nil, errors.New("dns lookup failed")
		},
	}

	coordinator := newTestCoordinator(t, storage, engine, &mockActor{})
	assert.True(t, coordinator.ProcessNextDomain(ctx))

	domain, err := storage.Domains().GetDomain(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.DomainStatusFailed, domain.Status)
	assert.Contains(t, domain.ErrorMessage, "dns lookup failed")
}

func TestProcessNextDomain_ShutdownLeavesDomainForSweep(t *testing.T) {
	storage := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	campaign := &models.Campaign{ID: "cmp_1", Status: models.CampaignStatusRunning}
	ids := seedCampaignWithDomains(t, storage, campaign, "https://site.example")

	// Crawl interrupted by worker shutdown, not by a domain-side failure
	engine := &mockEngine{
		crawlFunc: func(ctx context.Context, url string, opts crawler.CrawlOptions) ([]*crawler.PageResult, error) {
			cancel()
			return nil, ctx.Err()
		},
	}

	coordinator := newTestCoordinator(t, storage, engine, &mockActor{})
	assert.True(t, coordinator.ProcessNextDomain(ctx))

	domain, err := storage.Domains().GetDomain(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.DomainStatusProcessing, domain.Status,
		"a cancelled crawl must leave the claim for the stuck sweep, not fail the domain")
	assert.Empty(t, domain.ErrorMessage)

	running, err := storage.Campaigns().GetCampaignsByStatus(context.Background(), models.CampaignStatusRunning)
	require.NoError(t, err)
	assert.Len(t, running, 1)
}

func TestProcessNextDomain_PanicIsolatedToDomain(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	campaign := &models.Campaign{ID: "cmp_1", Status: models.CampaignStatusRunning}
	ids := seedCampaignWithDomains(t, storage, campaign, "https://site.example")

	engine := &mockEngine{
		crawlFunc: func(context.Context, string, crawler.CrawlOptions) ([]*crawler.PageResult, error) {
			panic("boom")
		},
	}

	coordinator := newTestCoordinator(t, storage, engine, &mockActor{})
	assert.NotPanics(t, func() {
		assert.True(t, coordinator.ProcessNextDomain(ctx))
	})

	domain, err := storage.Domains().GetDomain(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.DomainStatusFailed, domain.Status)
	assert.Contains(t, domain.ErrorMessage, "internal error")
}

func TestProcessNextDomain_IgnoresPausedCampaigns(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	campaign := &models.Campaign{ID: "cmp_paused", Status: models.CampaignStatusPaused}
	seedCampaignWithDomains(t, storage, campaign, "https://site.example")

	coordinator := newTestCoordinator(t, storage, &mockEngine{}, &mockActor{})
	assert.False(t, coordinator.ProcessNextDomain(ctx))
}

func TestProcessNextDomain_TransientSubmissionFailureRetried(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	campaign := &models.Campaign{
		ID:          "cmp_1",
		Status:      models.CampaignStatusRunning,
		SubmitForms: true,
		Sender:      models.SenderData{Email: "a@b.example", Message: "Hi"},
	}
	seedCampaignWithDomains(t, storage, campaign, "https://site.example")

	engine := &mockEngine{
		crawlFunc: func(_ context.Context, url string, _ crawler.CrawlOptions) ([]*crawler.PageResult, error) {
			return contactPage(url), nil
		},
	}
	actor := &mockActor{
		formResult: models.SubmissionResult{Status: models.SubmissionStatusFailed, Message: "navigation failed: connection reset by peer"},
	}

	coordinator := newTestCoordinator(t, storage, engine, actor)
	assert.True(t, coordinator.ProcessNextDomain(ctx))

	// DefaultConfig allows 2 total attempts; the transient failure is
	// attempted twice before giving up
	assert.Equal(t, 2, actor.formCalls)
}

func TestThreeDomainCampaignCompletion(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	campaign := &models.Campaign{ID: "cmp_1", Status: models.CampaignStatusRunning}
	ids := seedCampaignWithDomains(t, storage, campaign,
		"https://one.example", "https://two.example", "https://three.example")

	engine := &mockEngine{
		analyzeFunc: func(_ context.Context, url string) (*crawler.AnalyzeResult, error) {
			if url == "https://two.example" {
				return nil, errors.New("host unreachable")
			}
			return &crawler.AnalyzeResult{}, nil
		},
	}

	coordinator := newTestCoordinator(t, storage, engine, &mockActor{})

	for i := 0; i < 3; i++ {
		assert.True(t, coordinator.ProcessNextDomain(ctx))
	}
	assert.False(t, coordinator.ProcessNextDomain(ctx))

	statuses := make(map[string]models.DomainStatus)
	for _, id := range ids {
		domain, err := storage.Domains().GetDomain(ctx, id)
		require.NoError(t, err)
		statuses[domain.URL] = domain.Status
	}
	assert.Equal(t, models.DomainStatusCompleted, statuses["https://one.example"])
	assert.Equal(t, models.DomainStatusFailed, statuses["https://two.example"])
	assert.Equal(t, models.DomainStatusCompleted, statuses["https://three.example"])

	// All domains terminal, failures included: the campaign is complete
	refreshed, err := storage.Campaigns().GetCampaign(ctx, "cmp_1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, refreshed.Status)
}

func TestResetStuckDomains(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	campaign := &models.Campaign{ID: "cmp_1", Status: models.CampaignStatusRunning}
	ids := seedCampaignWithDomains(t, storage, campaign, "https://site.example")

	// Simulate a worker that died mid-processing long ago
	domain, err := storage.Domains().GetDomain(ctx, ids[0])
	require.NoError(t, err)
	domain.Status = models.DomainStatusProcessing
	require.NoError(t, storage.Domains().SaveDomain(ctx, domain))

	config := common.DefaultConfig()
	config.Worker.StuckThreshold = common.Duration(time.Nanosecond)
	coordinator := NewCoordinator(storage, &mockEngine{}, &mockActor{}, interfaces.NoopActivityLogger{}, config, arbor.NewLogger())

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, coordinator.ResetStuckDomains(ctx))

	refreshed, err := storage.Domains().GetDomain(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.DomainStatusPending, refreshed.Status)
	assert.Contains(t, refreshed.ErrorMessage, "stuck-recovery sweep")
}
