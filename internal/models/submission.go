package models

import (
	"time"
)

// SubmissionType distinguishes form submissions from comment submissions
type SubmissionType string

const (
	SubmissionTypeForm    SubmissionType = "form"
	SubmissionTypeComment SubmissionType = "comment"
)

// SubmissionStatus classifies the outcome of a single submission attempt.
//
// success   - a success keyword was observed on the resulting page
// submitted - the submission went through but the outcome could not be
//             confirmed from the page content
// failed    - the submission did not go through
type SubmissionStatus string

const (
	SubmissionStatusSuccess   SubmissionStatus = "success"
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusFailed    SubmissionStatus = "failed"
)

// SubmissionResult is the black-box outcome of a submission actor call
type SubmissionResult struct {
	Success bool             `json:"success"`
	Status  SubmissionStatus `json:"status"`
	Message string           `json:"message,omitempty"`
}

// SubmissionLog is an append-only record of each submission attempt
type SubmissionLog struct {
	ID         string           `json:"id" badgerhold:"key"`
	CampaignID string           `json:"campaign_id" badgerhold:"index"`
	DomainID   string           `json:"domain_id" badgerhold:"index"`
	URL        string           `json:"url"`
	Type       SubmissionType   `json:"type"`
	Status     SubmissionStatus `json:"status"`
	// Response is the free-text outcome description from the actor
	Response  string    `json:"response,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityLevel is the severity of an activity log entry
type ActivityLevel string

const (
	ActivityLevelInfo    ActivityLevel = "info"
	ActivityLevelSuccess ActivityLevel = "success"
	ActivityLevelWarning ActivityLevel = "warning"
	ActivityLevelError   ActivityLevel = "error"
	ActivityLevelStep    ActivityLevel = "step"
)

// ActivityEntry is one leveled progress message tagged by campaign/domain,
// persisted for live progress display by external collaborators.
type ActivityEntry struct {
	ID         string        `json:"id" badgerhold:"key"`
	CampaignID string        `json:"campaign_id" badgerhold:"index"`
	DomainID   string        `json:"domain_id,omitempty" badgerhold:"index"`
	Level      ActivityLevel `json:"level"`
	Message    string        `json:"message"`
	CreatedAt  time.Time     `json:"created_at"`
}
