package classifier

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/outreach/internal/models"
)

// DetectCommentSections returns descriptors for every distinct comment
// section found in the HTML. Matching order: CMS comment-area selectors,
// third-party comment widgets (opaque embeds), then a generic fallback for
// any form whose text or field names reference comments/replies.
func (c *Classifier) DetectCommentSections(html, pageURL string) ([]models.CommentDescriptor, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var comments []models.CommentDescriptor
	seen := make(map[string]bool)

	add := func(desc models.CommentDescriptor) {
		if seen[desc.Selector] {
			return
		}
		seen[desc.Selector] = true
		comments = append(comments, desc)
	}

	// CMS comment-area selectors
	for _, sig := range commentSectionSignatures {
		doc.Find(sig.Matcher).Each(func(i int, el *goquery.Selection) {
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

			add(models.CommentDescriptor{
				Selector:        selectorFor(form, i),
				PluginType:      sig.Plugin,
				DetectionMethod: MethodCommentSelector,
				Fields:          fields,
			})
		})
	}

	// Third-party widgets: opaque embeds with no fillable fields
	for _, sig := range commentWidgetSignatures {
		doc.Find(sig.Matcher).Each(func(i int, el *goquery.Selection) {
			add(models.CommentDescriptor{
				Selector:        selectorFor(el, i),
				PluginType:      sig.Plugin,
				DetectionMethod: MethodCommentWidget,
				Embedded:        true,
			})
		})
	}

	// Generic fallback: any form referencing comments/replies in its text or
	// field names that the selector tables missed
	doc.Find("form").Each(func(i int, form *goquery.Selection) {
		if !isCommentForm(form) && !textMentionsComment(form) {
			return
		}

		fields := extractFields(form)
		if countFillable(fields) == 0 {
			return
		}

		add(models.CommentDescriptor{
			Selector:        selectorFor(form, i),
			PluginType:      "generic",
			DetectionMethod: MethodCommentFallback,
			Fields:          fields,
		})
	})

	c.logger.Debug().
		Str("url", pageURL).
		Int("comment_sections", len(comments)).
		Msg("Comment section detection completed")

	return comments, nil
}

// textMentionsComment checks visible form text for comment/reply wording
func textMentionsComment(form *goquery.Selection) bool {
	text := strings.ToLower(form.Text())
	return strings.Contains(text, "leave a comment") ||
		strings.Contains(text, "leave a reply") ||
		strings.Contains(text, "post comment") ||
		strings.Contains(text, "add a comment")
}
