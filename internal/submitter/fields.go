package submitter

import (
	"strings"

	"github.com/ternarybob/outreach/internal/models"
)

// fieldRole is the semantic slot a detected field maps to
type fieldRole string

const (
	roleEmail   fieldRole = "email"
	roleName    fieldRole = "name"
	roleSubject fieldRole = "subject"
	rolePhone   fieldRole = "phone"
	roleMessage fieldRole = "message"
	roleWebsite fieldRole = "website"
	roleUnknown fieldRole = ""
)

// Keyword tables for mapping field name/id/placeholder/label text to a
// semantic role. Order matters: the first matching role wins, and message
// is checked before name so "your name" inside a label like "comment name"
// cannot shadow a message field.
var roleKeywords = []struct {
	role     fieldRole
	keywords []string
}{
	{roleEmail, []string{"email", "e-mail", "mail"}},
	{rolePhone, []string{"phone", "tel", "mobile", "cell"}},
	{roleWebsite, []string{"website", "web-site", "site", "url", "homepage"}},
	{roleSubject, []string{"subject", "topic", "regarding"}},
	{roleMessage, []string{"message", "comment", "enquiry", "inquiry", "question", "body", "content", "description", "details"}},
	{roleName, []string{"name", "fullname", "full-name", "first", "last", "author"}},
}

// classifyField maps a field descriptor to a semantic role using its type,
// tag and the combined name/id/placeholder/label text. Fields that cannot be
// confidently mapped return roleUnknown and are skipped during filling.
func classifyField(field models.FormField) fieldRole {
	switch strings.ToLower(field.Type) {
	case "email":
		return roleEmail
	case "tel":
		return rolePhone
	case "url":
		return roleWebsite
	case "checkbox", "radio", "file", "date", "time", "color", "range", "password":
		return roleUnknown
	}

	if strings.EqualFold(field.TagName, "select") {
		return roleUnknown
	}

	haystack := strings.ToLower(strings.Join([]string{
		field.Name, field.ID, field.Placeholder, field.Label,
	}, " "))

	// Textareas default to the message role unless their text says otherwise
	if strings.EqualFold(field.TagName, "textarea") {
		for _, entry := range roleKeywords {
			if entry.role != roleMessage && entry.role != roleName && containsAny(haystack, entry.keywords) {
				return entry.role
			}
		}
		return roleMessage
	}

	for _, entry := range roleKeywords {
		if containsAny(haystack, entry.keywords) {
			return entry.role
		}
	}

	return roleUnknown
}

func containsAny(haystack string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

// valueForRole returns the sender value for a role, reporting false when the
// sender has nothing to offer for it.
func valueForRole(role fieldRole, sender models.SenderData) (string, bool) {
	var value string
	switch role {
	case roleEmail:
		value = sender.Email
	case roleName:
		value = sender.Name
	case roleSubject:
		value = sender.Subject
	case rolePhone:
		value = sender.Phone
	case roleMessage:
		value = sender.Message
	case roleWebsite:
		value = sender.Website
	}
	return value, value != ""
}

// fieldSelector builds a CSS selector locating the field at submission time,
// preferring the id, then the name attribute scoped to the form selector.
func fieldSelector(formSelector string, field models.FormField) string {
	if field.ID != "" {
		return "#" + field.ID
	}
	tag := strings.ToLower(field.TagName)
	if tag == "" {
		tag = "input"
	}
	if field.Name != "" {
		return formSelector + ` ` + tag + `[name="` + field.Name + `"]`
	}
	return formSelector + " " + tag
}
