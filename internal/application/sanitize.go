package application

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// maxSanitizePasses bounds how many layers of entity encoding are peeled.
const maxSanitizePasses = 4

// sanitizeText strips markup and surrounding whitespace from user supplied
// free text. Values are stored and served as plain text, so entities are
// decoded and the result is sanitized again until no markup remains.
func sanitizeText(value string) string {
	cleaned := value
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(textPolicy.Sanitize(cleaned))
		if next == cleaned {
			return strings.TrimSpace(cleaned)
		}
		cleaned = next
	}
	// Still encoded after every pass: keep the escaped form.
	return strings.TrimSpace(textPolicy.Sanitize(cleaned))
}

func sanitizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := sanitizeText(*value)
	return &cleaned
}
