package standards

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	docExtension   = ".md"
	maxDocumentLen = 4 << 20
)

// HTTPSource fetches documents as <BaseURL>/<name>.md.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource returns a source backed by a remote corpus.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, name string) (string, error) {
	url := s.BaseURL + "/" + name + docExtension
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/markdown, text/plain")
	req.Header.Set("User-Agent", "repoforge-standards")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrMissingDocument, url)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentLen+1))
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxDocumentLen {
		return "", fmt.Errorf("fetching %s: document exceeds %d bytes", url, maxDocumentLen)
	}
	return string(body), nil
}

// DirSource reads documents from <Dir>/<name>.md on the local filesystem.
type DirSource struct {
	Dir string
}

// Fetch implements Source.
func (s DirSource) Fetch(_ context.Context, name string) (string, error) {
	path := filepath.Join(s.Dir, name+docExtension)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrMissingDocument, path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// NewSource picks a GitSource for "git+<url>[#subdir]" locations and ".git"
// URLs, an HTTPSource for other URLs, and a DirSource for local paths.
func NewSource(location string) Source {
	switch {
	case strings.HasPrefix(location, "git+"):
		url, subdir, _ := strings.Cut(strings.TrimPrefix(location, "git+"), "#")
		src := NewGitSource(url)
		src.Subdir = subdir
		return src
	case strings.HasSuffix(location, ".git"):
		return NewGitSource(location)
	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		return NewHTTPSource(location)
	default:
		return DirSource{Dir: location}
	}
}
