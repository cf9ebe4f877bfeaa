// Package classifier decides whether a page contains a submittable form
// and/or a comment section, and extracts a structured field descriptor for
// each candidate. Detection is purely static HTML analysis.
package classifier

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/outreach/internal/models"
)

// Detection method tags recorded on descriptors for debugging false
// positives/negatives. Not required for correctness.
const (
	MethodPluginSignature  = "plugin-signature"
	MethodIframeService    = "iframe-service"
	MethodNativeForm       = "native-form"
	MethodGenericContainer = "generic-container"
	MethodCommentSelector  = "comment-selector"
	MethodCommentWidget    = "comment-widget"
	MethodCommentFallback  = "comment-fallback"
)

// Classifier detects contact surfaces in raw HTML
type Classifier struct {
	logger arbor.ILogger
}

// New creates a classifier
func New(logger arbor.ILogger) *Classifier {
	return &Classifier{logger: logger}
}

// DetectForms returns descriptors for every distinct submittable form found
// in the HTML. Strategies run in order and deduplicate by selector key so one
// physical form is never reported twice:
//
//  1. known form-plugin/page-builder markup fingerprints
//  2. iframe src matched against embedded-form-service URL patterns
//  3. native <form> elements, excluding search/login/comment forms
//  4. generic containers with contact-ish naming and extractable fields
func (c *Classifier) DetectForms(html, pageURL string) ([]models.FormDescriptor, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var forms []models.FormDescriptor
	seen := make(map[string]bool)

	add := func(desc models.FormDescriptor) {
		if seen[desc.Selector] {
			return
		}
		seen[desc.Selector] = true
		forms = append(forms, desc)
	}

	c.detectPluginForms(doc, add)
	c.detectIframeForms(doc, add)
	c.detectNativeForms(doc, add)
	c.detectContainerForms(doc, add)

	c.logger.Debug().
		Str("url", pageURL).
		Int("forms", len(forms)).
		Msg("Form detection completed")

	return forms, nil
}

// detectPluginForms matches the known plugin/page-builder signature table
func (c *Classifier) detectPluginForms(doc *goquery.Document, add func(models.FormDescriptor)) {
	for _, sig := range formPluginSignatures {
		doc.Find(sig.Matcher).Each(func(i int, el *goquery.Selection) {
			// Signatures may select a wrapper; descend to the form when one exists
			form := el
			if goquery.NodeName(el) != "form" {
				if inner := el.Find("form").First(); inner.Length() > 0 {
					form = inner
				}
			}

			fields := extractFields(form)
			if countFillable(fields) == 0 {
				return
			}

			action, _ := form.Attr("action")
			method, _ := form.Attr("method")

			add(models.FormDescriptor{
				Selector:        selectorFor(form, i),
				PluginType:      sig.Plugin,
				DetectionMethod: MethodPluginSignature,
				Action:          action,
				Method:          strings.ToUpper(defaultString(method, "GET")),
				Fields:          fields,
			})
		})
	}
}

// detectIframeForms matches iframe srcs against embedded-form-service URLs.
// The fields live inside the third-party frame, so descriptors are opaque.
func (c *Classifier) detectIframeForms(doc *goquery.Document, add func(models.FormDescriptor)) {
	doc.Find("iframe[src]").Each(func(i int, el *goquery.Selection) {
		src, _ := el.Attr("src")
		for _, sig := range iframeServiceSignatures {
			if strings.Contains(src, sig.URLPattern) {
				add(models.FormDescriptor{
					Selector:        selectorFor(el, i),
					PluginType:      sig.Plugin,
					DetectionMethod: MethodIframeService,
					Action:          src,
				})
				return
			}
		}
	})
}

// detectNativeForms reports every native form element that is not a search,
// login or comment form and carries at least two visible fields.
func (c *Classifier) detectNativeForms(doc *goquery.Document, add func(models.FormDescriptor)) {
	doc.Find("form").Each(func(i int, form *goquery.Selection) {
		if isSearchForm(form) || isLoginForm(form) || isCommentForm(form) {
			return
		}

		fields := extractFields(form)
		if countFillable(fields) < 2 {
			return
		}

		action, _ := form.Attr("action")
		method, _ := form.Attr("method")

		add(models.FormDescriptor{
			Selector:        selectorFor(form, i),
			PluginType:      "native",
			DetectionMethod: MethodNativeForm,
			Action:          action,
			Method:          strings.ToUpper(defaultString(method, "GET")),
			Fields:          fields,
		})
	})
}

// detectContainerForms matches generic containers whose naming or data
// attributes suggest a contact surface.
func (c *Classifier) detectContainerForms(doc *goquery.Document, add func(models.FormDescriptor)) {
	for _, sig := range genericContainerSelectors {
		doc.Find(sig.Matcher).Each(func(i int, el *goquery.Selection) {
			target := el
			if goquery.NodeName(el) != "form" {
				if inner := el.Find("form").First(); inner.Length() > 0 {
					target = inner
				}
			}

			fields := extractFields(target)
			if countFillable(fields) < 2 {
				return
			}

			action, _ := target.Attr("action")

			add(models.FormDescriptor{
				Selector:        selectorFor(target, i),
				PluginType:      sig.Plugin,
				DetectionMethod: MethodGenericContainer,
				Action:          action,
				Fields:          fields,
			})
		})
	}
}

// isSearchForm identifies site-search forms by role, input type or naming
func isSearchForm(form *goquery.Selection) bool {
	if role, _ := form.Attr("role"); role == "search" {
		return true
	}
	if form.Find("input[type='search']").Length() > 0 {
		return true
	}
	action, _ := form.Attr("action")
	id, _ := form.Attr("id")
	class, _ := form.Attr("class")
	haystack := strings.ToLower(action + " " + id + " " + class)
	return strings.Contains(haystack, "search")
}

// isLoginForm identifies authentication forms: a password field, or an action
// path pointing at an admin/login endpoint.
func isLoginForm(form *goquery.Selection) bool {
	if form.Find("input[type='password']").Length() > 0 {
		return true
	}
	action, _ := form.Attr("action")
	action = strings.ToLower(action)
	for _, marker := range []string{"login", "signin", "sign-in", "wp-login", "/admin", "session"} {
		if strings.Contains(action, marker) {
			return true
		}
	}
	return false
}

// isCommentForm identifies comment forms so they are reported separately by
// DetectCommentSections rather than as contact forms.
func isCommentForm(form *goquery.Selection) bool {
	action, _ := form.Attr("action")
	id, _ := form.Attr("id")
	class, _ := form.Attr("class")
	haystack := strings.ToLower(action + " " + id + " " + class)
	if strings.Contains(haystack, "comment") || strings.Contains(haystack, "reply") {
		return true
	}

	hasCommentField := false
	form.Find("input, textarea").Each(func(_ int, field *goquery.Selection) {
		name, _ := field.Attr("name")
		if strings.Contains(strings.ToLower(name), "comment") {
			hasCommentField = true
		}
	})
	return hasCommentField
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
