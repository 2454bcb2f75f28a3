package codegen

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches template markers a model sometimes leaves
// unfilled: {{ PROJECT_NAME }}, <<NAME>>, [INSERT ...], [PLACEHOLDER ...] and
// TODO_PLACEHOLDER. Lower-case {{ expr }} is left alone since web templating
// languages use it legitimately.
var placeholderPattern = regexp.MustCompile(
	`\{\{\s*[A-Z][A-Z0-9_]*\s*\}\}|<<[A-Z][A-Z0-9_]*>>|\[(?:INSERT|PLACEHOLDER)(?:\s[^\]]*)?\]|TODO_PLACEHOLDER`,
)

// ValidateShape rejects empty responses and responses that still contain
// unresolved placeholder markers.
func ValidateShape(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty response", ErrInvalidShape)
	}
	if loc := placeholderPattern.FindStringIndex(text); loc != nil {
		return fmt.Errorf("%w: unresolved placeholder %q", ErrInvalidShape, text[loc[0]:loc[1]])
	}
	return nil
}
