// Package extractor provides pure text-mining of contact details from page
// content. It has no dependencies on the rest of the pipeline.
package extractor

import (
	"regexp"
	"strings"
)

// Contacts holds the first valid email and phone number found on a page.
// Empty strings mean nothing valid was found.
type Contacts struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	mailtoPattern = regexp.MustCompile(`(?i)mailto:([^"'?\s>]+)`)
	telPattern    = regexp.MustCompile(`(?i)tel:([+0-9().\-\s]+)`)

	// Phone formats: international, parenthesized area code, hyphenated
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+\d{1,3}[\s.\-]?\(?\d{1,4}\)?[\s.\-]?\d{2,4}[\s.\-]?\d{2,4}[\s.\-]?\d{0,4}`),
		regexp.MustCompile(`\(\d{2,4}\)[\s.\-]?\d{3,4}[\s.\-]?\d{3,4}`),
		regexp.MustCompile(`\d{3,4}[\s.\-]\d{3,4}[\s.\-]\d{3,4}`),
	}

	nonDigit = regexp.MustCompile(`\D`)
)

// Placeholder and machine addresses that should never be reported as a
// contact surface for a domain.
var excludedEmailPatterns = []string{
	"noreply",
	"no-reply",
	"donotreply",
	"example.com",
	"example.org",
	"your@",
	"youremail",
	"email@",
	"user@",
	"test@",
	"@sentry",
	"@example",
	".png",
	".jpg",
	".gif",
	".webp",
	".svg",
}

// Extract mines the given content (plain text or raw HTML) for the first
// valid email address and phone number. Candidates are de-duplicated and
// filtered before the first of each kind wins.
func Extract(content string) Contacts {
	return Contacts{
		Email: firstEmail(content),
		Phone: firstPhone(content),
	}
}

func firstEmail(content string) string {
	var candidates []string

	// mailto: hrefs are the strongest signal, take them first
	for _, m := range mailtoPattern.FindAllStringSubmatch(content, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, emailPattern.FindAllString(content, -1)...)

	seen := make(map[string]bool)
	for _, candidate := range candidates {
		email := strings.ToLower(strings.TrimSpace(candidate))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true

		if !emailPattern.MatchString(email) {
			continue
		}
		if isExcludedEmail(email) {
			continue
		}
		return email
	}
	return ""
}

func isExcludedEmail(email string) bool {
	for _, pattern := range excludedEmailPatterns {
		if strings.Contains(email, pattern) {
			return true
		}
	}
	return false
}

func firstPhone(content string) string {
	var candidates []string

	for _, m := range telPattern.FindAllStringSubmatch(content, -1) {
		candidates = append(candidates, m[1])
	}
	for _, pattern := range phonePatterns {
		candidates = append(candidates, pattern.FindAllString(content, -1)...)
	}

	seen := make(map[string]bool)
	for _, candidate := range candidates {
		phone := strings.TrimSpace(candidate)
		if phone == "" || seen[phone] {
			continue
		}
		seen[phone] = true

		if !validPhone(phone) {
			continue
		}
		return phone
	}
	return ""
}

// validPhone accepts numbers with 10-15 digits, which covers national
// numbers with area codes through full E.164 internationals.
func validPhone(phone string) bool {
	digits := nonDigit.ReplaceAllString(phone, "")
	return len(digits) >= 10 && len(digits) <= 15
}
