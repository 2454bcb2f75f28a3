package standards

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"unicode/utf8"
)

// ErrMissingDocument is returned when a required document cannot be found.
var ErrMissingDocument = errors.New("standards document missing")

// Default document names requested by the pipeline.
const (
	DocSecurity      = "security"
	DocCompliance    = "compliance"
	DocTesting       = "testing"
	DocDocumentation = "documentation"
	DocCoding        = "coding"
	DocWorkflows     = "workflows"
)

// DefaultDocuments is the set every pipeline run loads.
var DefaultDocuments = []string{
	DocCoding, DocSecurity, DocCompliance, DocTesting, DocDocumentation, DocWorkflows,
}

// Source fetches a single named document.
type Source interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// Cache maps document names to their full text. It is filled once by Load
// and never modified afterwards, so concurrent readers need no locking.
type Cache struct {
	docs map[string]string
}

// NewCache builds a cache from an existing mapping. The map is copied.
func NewCache(docs map[string]string) *Cache {
	return &Cache{docs: maps.Clone(docs)}
}

// Load fetches every named document from src. Any failure is fatal: a
// partially loaded cache is never returned.
func Load(ctx context.Context, src Source, names []string) (*Cache, error) {
	docs := make(map[string]string, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("loading standards: %w", err)
		}
		text, err := src.Fetch(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("loading standards document %q: %w", name, err)
		}
		if text == "" {
			return nil, fmt.Errorf("loading standards document %q: %w: empty content", name, ErrMissingDocument)
		}
		docs[name] = text
	}
	return &Cache{docs: docs}, nil
}

// Get returns the full text of a document.
func (c *Cache) Get(name string) (string, bool) {
	text, ok := c.docs[name]
	return text, ok
}

// Names returns the loaded document names, sorted.
func (c *Cache) Names() []string {
	return slices.Sorted(maps.Keys(c.docs))
}

// Len returns the number of loaded documents.
func (c *Cache) Len() int {
	return len(c.docs)
}

// Excerpt returns at most limit characters from the start of a document.
// The cut never splits a multi-byte rune.
func (c *Cache) Excerpt(name string, limit int) (string, error) {
	text, ok := c.docs[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingDocument, name)
	}
	return truncate(text, limit), nil
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
