// Package queue implements the work coordinator: exclusive domain claiming
// over the store's conditional update, the sequential per-domain pipeline
// (analyze, crawl, persist, submit, finalize), stuck-claim recovery, and the
// polling worker loop that drives it all.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/outreach/internal/common"
	"github.com/ternarybob/outreach/internal/crawler"
	"github.com/ternarybob/outreach/internal/interfaces"
	"github.com/ternarybob/outreach/internal/models"
	"github.com/ternarybob/outreach/internal/submitter"
)

// Per-domain submission budgets used when the campaign config leaves them
// zero.
const (
	defaultTargetForms    = 3
	defaultTargetComments = 1
)

// CrawlEngine is the slice of the crawl engine the pipeline consumes
type CrawlEngine interface {
	AnalyzeDomain(ctx context.Context, url string) (*crawler.AnalyzeResult, error)
	CrawlPages(ctx context.Context, url string, opts crawler.CrawlOptions) ([]*crawler.PageResult, error)
}

// SubmissionActor is the slice of the submitter the pipeline consumes
type SubmissionActor interface {
	SubmitForm(ctx context.Context, url string, form models.FormDescriptor, sender models.SenderData) models.SubmissionResult
	SubmitComment(ctx context.Context, url string, comment models.CommentDescriptor, sender models.SenderData) models.SubmissionResult
}

// Coordinator claims pending domains and runs them through the pipeline.
// Multiple coordinators (in one process or many) may run concurrently;
// exclusivity relies entirely on the store's conditional claim.
type Coordinator struct {
	storage   interfaces.StorageManager
	engine    CrawlEngine
	submitter SubmissionActor
	activity  interfaces.ActivityLogger
	config    *common.Config
	logger    arbor.ILogger
}

// NewCoordinator creates a work coordinator
func NewCoordinator(storage interfaces.StorageManager, engine CrawlEngine, sub SubmissionActor, activity interfaces.ActivityLogger, config *common.Config, logger arbor.ILogger) *Coordinator {
	if activity == nil {
		activity = interfaces.NoopActivityLogger{}
	}
	return &Coordinator{
		storage:   storage,
		engine:    engine,
		submitter: sub,
		activity:  activity,
		config:    config,
		logger:    logger,
	}
}

// ProcessNextDomain claims the oldest pending domain of a running campaign
// and processes it to a terminal status. Returns true when work happened.
// A lost claim race moves on to the next candidate; the loop gives up after
// a bounded number of lost races rather than spinning.
func (c *Coordinator) ProcessNextDomain(ctx context.Context) bool {
	running, err := c.storage.Campaigns().GetCampaignsByStatus(ctx, models.CampaignStatusRunning)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list running campaigns")
		return false
	}
	if len(running) == 0 {
		return false
	}

	campaignIDs := make([]string, len(running))
	campaigns := make(map[string]*models.Campaign, len(running))
	for i, campaign := range running {
		campaignIDs[i] = campaign.ID
		campaigns[campaign.ID] = campaign
	}

	claimRetries := c.config.Worker.ClaimRetries
	if claimRetries <= 0 {
		claimRetries = 5
	}

	var exclude []string
	for attempt := 0; attempt < claimRetries; attempt++ {
		candidate, err := c.storage.Domains().OldestPendingDomain(ctx, campaignIDs, exclude)
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to select pending domain")
			return false
		}
		if candidate == nil {
			return false
		}

		claimed, err := c.storage.Domains().ClaimDomain(ctx, candidate.ID)
		if err != nil {
			c.logger.Error().Err(err).Str("domain_id", candidate.ID).Msg("Claim failed")
			return false
		}
		if !claimed {
			// Another worker won; try a different candidate
			exclude = append(exclude, candidate.ID)
			continue
		}

		c.processDomain(ctx, campaigns[candidate.CampaignID], candidate)
		return true
	}

	c.logger.Debug().Int("lost_races", claimRetries).Msg("Gave up claiming this cycle")
	return false
}

// ResetStuckDomains expires claims held longer than the configured threshold,
// returning those domains to pending. This is the recovery path for workers
// that died mid-processing.
func (c *Coordinator) ResetStuckDomains(ctx context.Context) int {
	threshold := c.config.Worker.StuckThreshold.Std()
	if threshold <= 0 {
		threshold = 10 * time.Minute
	}

	count, err := c.storage.Domains().ResetStuck(ctx, threshold,
		fmt.Sprintf("reset by stuck-recovery sweep after %s in processing", threshold))
	if err != nil {
		c.logger.Error().Err(err).Msg("Stuck-recovery sweep failed")
		return 0
	}
	return count
}

// processDomain runs the claimed domain through the sequential pipeline.
// No error or panic escapes: every failure path lands the domain in a
// terminal status and the campaign completion is recomputed regardless.
func (c *Coordinator) processDomain(ctx context.Context, campaign *models.Campaign, domain *models.Domain) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Str("domain_id", domain.ID).Msgf("Domain pipeline panicked: %v", r)
			c.finalizeDomain(ctx, campaign, domain, models.DomainStatusFailed, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if campaign == nil {
		c.finalizeDomain(ctx, nil, domain, models.DomainStatusFailed, "campaign not found for claimed domain")
		return
	}

	start := time.Now()
	c.activity.Step(campaign.ID, domain.ID, "Processing %s", domain.URL)

	// Stage 1: analyze
	analysis, err := c.engine.AnalyzeDomain(ctx, domain.URL)
	if err != nil {
		if ctx.Err() != nil {
			c.abandonDomain(domain, "analysis")
			return
		}
		c.activity.Error(campaign.ID, domain.ID, "Analysis failed: %v", err)
		c.finalizeDomain(ctx, campaign, domain, models.DomainStatusFailed, fmt.Sprintf("analysis failed: %v", err))
		return
	}
	domain.HasRobotsTxt = analysis.HasRobotsTxt
	domain.SitemapsFound = len(analysis.Sitemaps)
	c.activity.Info(campaign.ID, domain.ID, "Analysis found %d sitemaps, %d seed URLs", len(analysis.Sitemaps), len(analysis.URLs))

	// Stage 2: crawl
	pages, err := c.crawlDomain(ctx, campaign, domain, analysis)
	if err != nil {
		if ctx.Err() != nil {
			c.abandonDomain(domain, "crawl")
			return
		}
		c.activity.Error(campaign.ID, domain.ID, "Crawl failed: %v", err)
		c.finalizeDomain(ctx, campaign, domain, models.DomainStatusFailed, fmt.Sprintf("crawl failed: %v", err))
		return
	}
	domain.PagesDiscovered = len(pages)
	c.activity.Info(campaign.ID, domain.ID, "Crawled %d pages", len(pages))

	// Stage 3: persist discoveries and contacts
	c.persistPages(ctx, campaign, domain, pages)

	// Stages 4-5: submissions
	formAttempts, formSuccesses := 0, 0
	if campaign.SubmitForms {
		formAttempts, formSuccesses = c.submitForms(ctx, campaign, domain, pages)
	}
	if campaign.SubmitComments {
		c.submitComments(ctx, campaign, domain, pages)
	}

	// Stage 6: finalize. Attempted form submissions that all failed mark the
	// domain failed; comment outcomes never do.
	if formAttempts > 0 && formSuccesses == 0 {
		c.finalizeDomain(ctx, campaign, domain, models.DomainStatusFailed,
			fmt.Sprintf("all %d form submissions failed", formAttempts))
		return
	}

	c.activity.Success(campaign.ID, domain.ID, "Domain completed in %s", time.Since(start).Round(time.Second))
	c.finalizeDomain(ctx, campaign, domain, models.DomainStatusCompleted, "")
}

// abandonDomain leaves a claimed domain in processing on worker shutdown.
// The claim is deliberately not released here: the stuck-recovery sweep
// returns it to pending once the threshold passes, which also covers workers
// that die without running this path.
func (c *Coordinator) abandonDomain(domain *models.Domain, stage string) {
	c.logger.Info().
		Str("domain_id", domain.ID).
		Str("stage", stage).
		Msg("Shutdown during domain processing, leaving claim for the stuck sweep")
}

// crawlDomain runs the bounded crawl with the campaign's per-domain limits
func (c *Coordinator) crawlDomain(ctx context.Context, campaign *models.Campaign, domain *models.Domain, analysis *crawler.AnalyzeResult) ([]*crawler.PageResult, error) {
	maxPages := campaign.Config.MaxPagesPerDomain
	if maxPages <= 0 {
		maxPages = c.config.Crawler.MaxPages
	}

	opts := crawler.CrawlOptions{
		MaxPages:    maxPages,
		Robots:      analysis.Robots,
		InitialURLs: analysis.URLs,
		MinDelay:    time.Duration(campaign.Config.MinDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(campaign.Config.MaxDelayMs) * time.Millisecond,
	}

	return c.engine.CrawlPages(ctx, domain.URL, opts)
}

// persistPages upserts one PageDiscovery per crawled page and merges any
// found contact into the per-domain contact row. Persistence failures are
// logged and skipped; losing one page is not worth failing the domain.
func (c *Coordinator) persistPages(ctx context.Context, campaign *models.Campaign, domain *models.Domain, pages []*crawler.PageResult) {
	for _, page := range pages {
		discovery := &models.PageDiscovery{
			CampaignID:  campaign.ID,
			DomainID:    domain.ID,
			URL:         page.URL,
			Title:       page.Title,
			HasForms:    page.HasForms(),
			HasComments: page.HasComments(),
			Forms:       page.Forms,
			Comments:    page.Comments,
			TextContent: page.TextContent,
			CrawledAt:   page.CrawledAt,
		}
		if err := c.storage.Pages().UpsertPage(ctx, discovery); err != nil {
			c.logger.Warn().Err(err).Str("url", page.URL).Msg("Failed to persist page discovery")
		}

		if page.Contacts.Email != "" || page.Contacts.Phone != "" {
			contact := &models.ExtractedContact{
				CampaignID: campaign.ID,
				DomainID:   domain.ID,
				Email:      page.Contacts.Email,
				Phone:      page.Contacts.Phone,
				SourceURL:  page.URL,
			}
			if err := c.storage.Pages().UpsertContact(ctx, contact); err != nil {
				c.logger.Warn().Err(err).Str("url", page.URL).Msg("Failed to persist contact")
			}
		}
	}
}

// submitForms walks the crawled pages and submits up to the campaign's form
// budget, retrying transient failures per the submit config. Returns
// attempted and succeeded counts.
func (c *Coordinator) submitForms(ctx context.Context, campaign *models.Campaign, domain *models.Domain, pages []*crawler.PageResult) (attempts, successes int) {
	target := campaign.Config.TargetForms
	if target <= 0 {
		target = defaultTargetForms
	}

	for _, page := range pages {
		for _, form := range page.Forms {
			if attempts >= target {
				return attempts, successes
			}
			attempts++

			c.activity.Step(campaign.ID, domain.ID, "Submitting form (%s) on %s", form.PluginType, page.URL)
			result := submitter.RetrySubmission(ctx, c.config.Submit.MaxAttempts, c.config.Submit.RetryDelay.Std(),
				func(ctx context.Context) models.SubmissionResult {
					return c.submitter.SubmitForm(ctx, page.URL, form, campaign.Sender)
				})

			c.recordSubmission(ctx, campaign, domain, page.URL, models.SubmissionTypeForm, result)
			if result.Success {
				successes++
			}
		}
	}
	return attempts, successes
}

// submitComments is the comment-side counterpart. Outcomes are recorded but
// never affect the domain's terminal status.
func (c *Coordinator) submitComments(ctx context.Context, campaign *models.Campaign, domain *models.Domain, pages []*crawler.PageResult) {
	target := campaign.Config.TargetComments
	if target <= 0 {
		target = defaultTargetComments
	}

	attempts := 0
	for _, page := range pages {
		for _, comment := range page.Comments {
			if attempts >= target {
				return
			}
			if comment.Embedded {
				continue
			}
			attempts++

			c.activity.Step(campaign.ID, domain.ID, "Submitting comment on %s", page.URL)
			result := submitter.RetrySubmission(ctx, c.config.Submit.MaxAttempts, c.config.Submit.RetryDelay.Std(),
				func(ctx context.Context) models.SubmissionResult {
					return c.submitter.SubmitComment(ctx, page.URL, comment, campaign.Sender)
				})

			c.recordSubmission(ctx, campaign, domain, page.URL, models.SubmissionTypeComment, result)
		}
	}
}

func (c *Coordinator) recordSubmission(ctx context.Context, campaign *models.Campaign, domain *models.Domain, url string, submissionType models.SubmissionType, result models.SubmissionResult) {
	log := &models.SubmissionLog{
		CampaignID: campaign.ID,
		DomainID:   domain.ID,
		URL:        url,
		Type:       submissionType,
		Status:     result.Status,
		Response:   result.Message,
	}
	if err := c.storage.Submissions().AppendSubmission(ctx, log); err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("Failed to append submission log")
	}

	switch result.Status {
	case models.SubmissionStatusSuccess:
		c.activity.Success(campaign.ID, domain.ID, "%s submission succeeded on %s", submissionType, url)
	case models.SubmissionStatusSubmitted:
		c.activity.Info(campaign.ID, domain.ID, "%s submitted on %s (unconfirmed)", submissionType, url)
	default:
		c.activity.Warning(campaign.ID, domain.ID, "%s submission failed on %s: %s", submissionType, url, result.Message)
	}
}

// finalizeDomain lands the domain in a terminal status and recomputes the
// campaign's completion. Recompute tolerance: safe to run redundantly from
// any worker.
func (c *Coordinator) finalizeDomain(ctx context.Context, campaign *models.Campaign, domain *models.Domain, status models.DomainStatus, errorMessage string) {
	domain.Status = status
	domain.ErrorMessage = errorMessage
	if err := c.storage.Domains().SaveDomain(ctx, domain); err != nil {
		c.logger.Error().Err(err).Str("domain_id", domain.ID).Msg("Failed to save terminal domain status")
	}

	if status == models.DomainStatusFailed && campaign != nil {
		c.activity.Error(campaign.ID, domain.ID, "Domain failed: %s", errorMessage)
	}

	if campaign != nil {
		if _, err := c.storage.Campaigns().MarkCompletedIfDone(ctx, campaign.ID); err != nil {
			c.logger.Warn().Err(err).Str("campaign_id", campaign.ID).Msg("Campaign completion recompute failed")
		}
	}
}
