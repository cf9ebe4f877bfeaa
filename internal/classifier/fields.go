package classifier

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/outreach/internal/models"
)

// Input types that carry no user-enterable content.
var skippedInputTypes = map[string]bool{
	"submit": true,
	"button": true,
	"hidden": true,
	"reset":  true,
	"image":  true,
}

// extractFields walks input/textarea/select descendants of the element and
// builds a descriptor for every fillable field.
func extractFields(el *goquery.Selection) []models.FormField {
	var fields []models.FormField

	el.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
		tagName := goquery.NodeName(field)

		fieldType, _ := field.Attr("type")
		fieldType = strings.ToLower(strings.TrimSpace(fieldType))
		if tagName == "input" && fieldType == "" {
			fieldType = "text"
		}
		if tagName == "textarea" {
			fieldType = "textarea"
		}
		if tagName == "select" {
			fieldType = "select"
		}
		if skippedInputTypes[fieldType] {
			return
		}

		name, _ := field.Attr("name")
		id, _ := field.Attr("id")
		placeholder, _ := field.Attr("placeholder")
		_, required := field.Attr("required")

		fields = append(fields, models.FormField{
			Type:        fieldType,
			Name:        name,
			ID:          id,
			Placeholder: placeholder,
			Label:       resolveLabel(el, field, id),
			Required:    required,
			TagName:     tagName,
		})
	})

	return fields
}

// resolveLabel finds the human-readable label for a field. Resolution order:
// label[for=id], ancestor <label>, preceding sibling <label>, aria-label.
func resolveLabel(root, field *goquery.Selection, id string) string {
	if id != "" {
		label := root.Find(fmt.Sprintf("label[for='%s']", id))
		if text := cleanLabelText(label.Text()); text != "" {
			return text
		}
	}

	if ancestor := field.Closest("label"); ancestor.Length() > 0 {
		if text := cleanLabelText(ancestor.Text()); text != "" {
			return text
		}
	}

	if sibling := field.PrevFiltered("label"); sibling.Length() > 0 {
		if text := cleanLabelText(sibling.Text()); text != "" {
			return text
		}
	}

	if aria, ok := field.Attr("aria-label"); ok {
		return cleanLabelText(aria)
	}

	return ""
}

func cleanLabelText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	// Drop the required-marker asterisk labels commonly carry
	text = strings.TrimSuffix(text, "*")
	return strings.TrimSpace(text)
}

// countFillable counts fields a submission actor could actually type into
func countFillable(fields []models.FormField) int {
	count := 0
	for _, f := range fields {
		if !skippedInputTypes[f.Type] {
			count++
		}
	}
	return count
}

// selectorFor generates a stable selector key for an element, used both for
// deduplication across detection strategies and for locating the element
// again during submission. Prefers the element id, then a unique-looking
// class, then a positional fallback.
func selectorFor(el *goquery.Selection, index int) string {
	tag := goquery.NodeName(el)

	if id, ok := el.Attr("id"); ok && id != "" {
		return fmt.Sprintf("%s#%s", tag, id)
	}

	if class, ok := el.Attr("class"); ok && class != "" {
		classes := strings.Fields(class)
		if len(classes) > 0 {
			return fmt.Sprintf("%s.%s:nth-of-type(%d)", tag, classes[0], index+1)
		}
	}

	return fmt.Sprintf("%s:nth-of-type(%d)", tag, index+1)
}
