package models

import (
	"time"
)

// CampaignStatus represents the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// SenderData is the identity and message content used when filling detected
// forms and comment sections.
type SenderData struct {
	Name    string `json:"name" yaml:"name"`
	Email   string `json:"email" yaml:"email" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" yaml:"phone"`
	Website string `json:"website,omitempty" yaml:"website"`
	Subject string `json:"subject,omitempty" yaml:"subject"`
	Message string `json:"message" yaml:"message"`
}

// CampaignConfig holds the per-run processing bounds for a campaign.
// Values of zero fall back to the worker defaults at processing time.
type CampaignConfig struct {
	MaxPagesPerDomain int `json:"max_pages_per_domain" yaml:"max_pages_per_domain"`
	// TargetForms is the maximum number of form submissions per domain
	TargetForms int `json:"target_forms" yaml:"target_forms"`
	// TargetComments is the maximum number of comment submissions per domain
	TargetComments int `json:"target_comments" yaml:"target_comments"`
	// MinDelayMs/MaxDelayMs bound the randomized delay between crawl requests
	MinDelayMs int `json:"min_delay_ms" yaml:"min_delay_ms"`
	MaxDelayMs int `json:"max_delay_ms" yaml:"max_delay_ms"`
}

// Campaign is a batch of domains sharing submission configuration.
//
// Status completed is derived: it is set when no domain of the campaign
// remains pending or processing. Completion is recomputed opportunistically
// whenever a domain finishes and is tolerant of redundant recomputation by
// multiple workers.
type Campaign struct {
	ID     string         `json:"id" badgerhold:"key"`
	Name   string         `json:"name"`
	Status CampaignStatus `json:"status" badgerhold:"index"`
	// SubmitForms/SubmitComments toggle the submission stages of the pipeline
	SubmitForms    bool           `json:"submit_forms"`
	SubmitComments bool           `json:"submit_comments"`
	Sender         SenderData     `json:"sender"`
	Config         CampaignConfig `json:"config"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}
