// Package submitter implements the submission actors: black-box operations
// that open a page in a pooled browser context, fill a detected form or
// comment section with sender data, submit it, and classify the outcome from
// the resulting page. Actors never panic or error past their boundary; every
// internal failure becomes a failed result.
package submitter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/outreach/internal/browser"
	"github.com/ternarybob/outreach/internal/common"
	"github.com/ternarybob/outreach/internal/models"
)

// Submit controls tried in order when locating the submit element
var submitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`button[name="submit"]`,
	`#submit`,
	`.wpcf7-submit`,
	`.gform_button`,
	`button.submit`,
	`button:not([type])`,
	`[role="button"][class*="submit"]`,
}

var successKeywords = []string{
	"thank you",
	"thanks for",
	"success",
	"successfully",
	"received",
	"message has been sent",
	"message was sent",
	"we'll be in touch",
	"we will be in touch",
	"submission received",
}

var errorKeywords = []string{
	"error occurred",
	"an error",
	"failed to send",
	"invalid",
	"required field",
	"field is required",
	"please fill",
	"captcha",
	"try again",
}

// Comment systems routinely hold submissions for review; that is still a
// successful submission from our side.
var moderationKeywords = []string{
	"awaiting moderation",
	"awaiting approval",
	"held for moderation",
	"in moderation",
	"comment is awaiting",
	"comment submitted",
}

// Submitter runs form and comment submissions over the browser pool
type Submitter struct {
	pool       *browser.Pool
	config     common.SubmitConfig
	navTimeout time.Duration
	stealth    bool
	logger     arbor.ILogger
}

// New creates a submitter. When stealth is set every submission runs in a
// brand-new context with a fresh fingerprint instead of a pooled one.
func New(pool *browser.Pool, config common.SubmitConfig, browserConfig common.BrowserConfig, logger arbor.ILogger) *Submitter {
	navTimeout := browserConfig.NavTimeout.Std()
	if navTimeout <= 0 {
		navTimeout = 45 * time.Second
	}
	return &Submitter{
		pool:       pool,
		config:     config,
		navTimeout: navTimeout,
		stealth:    browserConfig.Stealth,
		logger:     logger,
	}
}

// SubmitForm fills and submits one detected form with the sender data and
// classifies the outcome from the resulting page content.
func (s *Submitter) SubmitForm(ctx context.Context, pageURL string, form models.FormDescriptor, sender models.SenderData) (result models.SubmissionResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("url", pageURL).Msgf("Form submission panicked: %v", r)
			result = failedResult(fmt.Sprintf("internal error: %v", r))
		}
	}()

	bc, err := s.acquire(ctx)
	if err != nil {
		return failedResult(fmt.Sprintf("failed to acquire browser context: %v", err))
	}
	defer s.pool.Release(bc)

	runCtx, cancel := context.WithTimeout(bc.Ctx, s.navTimeout)
	defer cancel()

	if err := s.navigate(runCtx, pageURL); err != nil {
		return failedResult(fmt.Sprintf("navigation failed: %v", err))
	}

	filled := s.fillFields(runCtx, form.Selector, form.Fields, sender)
	if filled == 0 {
		return failedResult("no fillable fields could be mapped to sender data")
	}

	submitSel, found := s.findSubmit(runCtx, form.Selector)
	if !found {
		return failedResult("submit button not found")
	}

	if err := chromedp.Run(runCtx, chromedp.Click(submitSel, chromedp.ByQuery)); err != nil {
		return failedResult(fmt.Sprintf("failed to click submit: %v", err))
	}

	bodyText, _ := s.settle(runCtx)

	result = classifyOutcome(bodyText)
	s.logger.Info().
		Str("url", pageURL).
		Str("plugin", form.PluginType).
		Int("fields_filled", filled).
		Str("status", string(result.Status)).
		Msg("Form submission completed")
	return result
}

// SubmitComment fills and submits one detected comment section. It requires
// both a comment body and a sender email before attempting submission;
// comment systems routinely reject anonymous or bodiless comments.
func (s *Submitter) SubmitComment(ctx context.Context, pageURL string, comment models.CommentDescriptor, sender models.SenderData) (result models.SubmissionResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("url", pageURL).Msgf("Comment submission panicked: %v", r)
			result = failedResult(fmt.Sprintf("internal error: %v", r))
		}
	}()

	if comment.Embedded {
		return failedResult("embedded comment widget has no fillable fields")
	}
	if sender.Email == "" || sender.Message == "" {
		return failedResult("comment submission requires both sender email and message")
	}

	var bodyField, emailField *models.FormField
	for i := range comment.Fields {
		switch classifyField(comment.Fields[i]) {
		case roleMessage:
			if bodyField == nil {
				bodyField = &comment.Fields[i]
			}
		case roleEmail:
			if emailField == nil {
				emailField = &comment.Fields[i]
			}
		}
	}
	if bodyField == nil || emailField == nil {
		return failedResult("comment section is missing a body or email field")
	}

	bc, err := s.acquire(ctx)
	if err != nil {
		return failedResult(fmt.Sprintf("failed to acquire browser context: %v", err))
	}
	defer s.pool.Release(bc)

	runCtx, cancel := context.WithTimeout(bc.Ctx, s.navTimeout)
	defer cancel()

	if err := s.navigate(runCtx, pageURL); err != nil {
		return failedResult(fmt.Sprintf("navigation failed: %v", err))
	}

	var startURL string
	_ = chromedp.Run(runCtx, chromedp.Location(&startURL))

	filled := s.fillFields(runCtx, comment.Selector, comment.Fields, sender)
	if filled < 2 {
		return failedResult("could not fill comment body and email")
	}

	submitSel, found := s.findSubmit(runCtx, comment.Selector)
	if !found {
		return failedResult("submit button not found")
	}

	if err := chromedp.Run(runCtx, chromedp.Click(submitSel, chromedp.ByQuery)); err != nil {
		return failedResult(fmt.Sprintf("failed to click submit: %v", err))
	}

	bodyText, endURL := s.settle(runCtx)

	result = classifyCommentOutcome(bodyText, startURL, endURL)
	s.logger.Info().
		Str("url", pageURL).
		Str("status", string(result.Status)).
		Msg("Comment submission completed")
	return result
}

func (s *Submitter) acquire(ctx context.Context) (*browser.Context, error) {
	if s.stealth {
		return s.pool.Fresh(ctx)
	}
	return s.pool.Acquire(ctx)
}

// navigate loads the page, retrying transient navigation failures once
func (s *Submitter) navigate(ctx context.Context, pageURL string) error {
	return WithRetry(ctx, 2, time.Second, func(ctx context.Context) error {
		return chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	})
}

// fillFields maps each field to a semantic role and sets the sender value,
// skipping fields it cannot confidently map. Returns the number of fields
// filled; per-field failures are logged and skipped.
func (s *Submitter) fillFields(ctx context.Context, scopeSelector string, fields []models.FormField, sender models.SenderData) int {
	filled := 0
	for _, field := range fields {
		role := classifyField(field)
		if role == roleUnknown {
			continue
		}
		value, ok := valueForRole(role, sender)
		if !ok {
			continue
		}

		selector := fieldSelector(scopeSelector, field)
		err := chromedp.Run(ctx,
			chromedp.SetValue(selector, value, chromedp.ByQuery),
		)
		if err != nil {
			s.logger.Debug().
				Err(err).
				Str("selector", selector).
				Str("role", string(role)).
				Msg("Field fill skipped")
			continue
		}
		filled++
	}
	return filled
}

// findSubmit probes the ordered submit-selector list, first scoped to the
// form, then page-wide.
func (s *Submitter) findSubmit(ctx context.Context, scopeSelector string) (string, bool) {
	scopes := []string{scopeSelector + " ", ""}
	for _, scope := range scopes {
		for _, candidate := range submitSelectors {
			selector := scope + candidate
			var nodes []*cdp.Node
			err := chromedp.Run(ctx,
				chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
			)
			if err == nil && len(nodes) > 0 {
				return selector, true
			}
		}
	}
	return "", false
}

// settle waits for the post-submit network activity to quiet down, then
// captures the page text and final URL.
func (s *Submitter) settle(ctx context.Context) (bodyText, location string) {
	wait := s.config.SettleWait.Std()
	if wait <= 0 {
		wait = 3 * time.Second
	}
	_ = chromedp.Run(ctx,
		chromedp.Sleep(wait),
		chromedp.Text("body", &bodyText, chromedp.ByQuery),
		chromedp.Location(&location),
	)
	return bodyText, location
}

// classifyOutcome reads the resulting page for success and error keywords.
// A success keyword wins over an error keyword since many pages carry static
// "required field" hints that remain visible after a successful submit.
func classifyOutcome(bodyText string) models.SubmissionResult {
	lower := strings.ToLower(bodyText)

	for _, keyword := range successKeywords {
		if strings.Contains(lower, keyword) {
			return models.SubmissionResult{
				Success: true,
				Status:  models.SubmissionStatusSuccess,
				Message: fmt.Sprintf("success keyword %q found", keyword),
			}
		}
	}
	for _, keyword := range errorKeywords {
		if strings.Contains(lower, keyword) {
			return models.SubmissionResult{
				Status:  models.SubmissionStatusFailed,
				Message: fmt.Sprintf("error keyword %q found", keyword),
			}
		}
	}

	return models.SubmissionResult{
		Success: true,
		Status:  models.SubmissionStatusSubmitted,
		Message: "submitted, outcome not confirmed from page content",
	}
}

// classifyCommentOutcome adds the moderation keywords and a URL-change
// heuristic: WordPress-style comment endpoints redirect back with a comment
// anchor on acceptance.
func classifyCommentOutcome(bodyText, startURL, endURL string) models.SubmissionResult {
	lower := strings.ToLower(bodyText)

	for _, keyword := range moderationKeywords {
		if strings.Contains(lower, keyword) {
			return models.SubmissionResult{
				Success: true,
				Status:  models.SubmissionStatusSuccess,
				Message: fmt.Sprintf("moderation keyword %q found", keyword),
			}
		}
	}

	base := classifyOutcome(bodyText)
	if base.Status == models.SubmissionStatusSubmitted && endURL != "" && endURL != startURL {
		base.Message = "submitted, page URL changed after submit"
	}
	return base
}

func failedResult(message string) models.SubmissionResult {
	return models.SubmissionResult{
		Status:  models.SubmissionStatusFailed,
		Message: message,
	}
}
