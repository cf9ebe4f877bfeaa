package common

import (
	"github.com/google/uuid"
)

// NewCampaignID generates a unique campaign ID with the "cmp_" prefix
func NewCampaignID() string {
	return "cmp_" + uuid.New().String()
}

// NewDomainID generates a unique domain ID with the "dom_" prefix
func NewDomainID() string {
	return "dom_" + uuid.New().String()
}

// NewPageID generates a unique page discovery ID with the "pg_" prefix
func NewPageID() string {
	return "pg_" + uuid.New().String()
}

// NewContactID generates a unique extracted-contact ID with the "ct_" prefix
func NewContactID() string {
	return "ct_" + uuid.New().String()
}

// NewSubmissionID generates a unique submission log ID with the "sub_" prefix
func NewSubmissionID() string {
	return "sub_" + uuid.New().String()
}

// NewActivityID generates a unique activity entry ID with the "act_" prefix
func NewActivityID() string {
	return "act_" + uuid.New().String()
}
