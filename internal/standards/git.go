package standards

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/repoforge/repoforge/internal/branding"
)

const (
	// DefaultMaxAge is how long a cloned corpus is used before it is pulled again.
	DefaultMaxAge = 7 * 24 * time.Hour

	freshnessSuffix = ".updated"
	tmpSuffix       = ".tmp"
)

// GitSource reads documents from a git repository cloned into a local
// cache directory. The clone is refreshed at most once per MaxAge; when the
// refresh fails the cached copy is used.
type GitSource struct {
	URL    string
	Dir    string // clone location
	Subdir string // directory inside the repository holding the documents
	MaxAge time.Duration

	once sync.Once
	err  error
}

// NewGitSource returns a source cloning url into the user cache directory.
func NewGitSource(url string) *GitSource {
	return &GitSource{URL: url, Dir: defaultCloneDir(url), MaxAge: DefaultMaxAge}
}

func defaultCloneDir(url string) string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(base, branding.CLIName(), "standards", hex.EncodeToString(sum[:8]))
}

// Fetch implements Source. The first call clones or refreshes the repository.
func (s *GitSource) Fetch(ctx context.Context, name string) (string, error) {
	s.once.Do(func() { s.err = s.sync(ctx) })
	if s.err != nil {
		return "", s.err
	}
	return DirSource{Dir: filepath.Join(s.Dir, s.Subdir)}.Fetch(ctx, name)
}

func (s *GitSource) sync(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(s.Dir, ".git")); os.IsNotExist(err) {
		return s.clone(ctx)
	}
	if !IsStale(s.Dir, s.MaxAge) {
		return nil
	}
	if err := s.pull(ctx); err != nil {
		// Keep using the cached copy.
		return nil
	}
	writeFreshnessMarker(s.Dir)
	return nil
}

// clone writes to a temporary directory first and renames it into place on
// success, so an interrupted clone never leaves a half-populated cache.
func (s *GitSource) clone(ctx context.Context) error {
	tmpDir := s.Dir + tmpSuffix
	_ = os.RemoveAll(tmpDir)
	if err := os.MkdirAll(filepath.Dir(tmpDir), 0o755); err != nil {
		return fmt.Errorf("creating standards cache directory: %w", err)
	}

	_, err := git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:          s.URL,
		Depth:        cloneDepth(s.URL),
		SingleBranch: true,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("cloning standards from %s: %w", s.URL, err)
	}

	if err := os.RemoveAll(s.Dir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("removing existing standards clone: %w", err)
	}
	if err := os.Rename(tmpDir, s.Dir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("finalizing standards clone: %w", err)
	}
	writeFreshnessMarker(s.Dir)
	return nil
}

func (s *GitSource) pull(ctx context.Context) error {
	repo, err := git.PlainOpen(s.Dir)
	if err != nil {
		return fmt.Errorf("opening standards clone: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening standards worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{Depth: cloneDepth(s.URL), SingleBranch: true})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pulling standards: %w", err)
	}
	return nil
}

// cloneDepth keeps remote clones shallow. Local repositories are cloned in
// full since the file transport does not negotiate shallow fetches.
func cloneDepth(url string) int {
	if strings.HasPrefix(url, "file://") || filepath.IsAbs(url) {
		return 0
	}
	return 1
}

func freshnessPath(dir string) string {
	return filepath.Clean(dir) + freshnessSuffix
}

func writeFreshnessMarker(dir string) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	_ = os.WriteFile(freshnessPath(dir), []byte(ts), 0o644)
}

// ReadFreshnessMarker returns when the clone at dir was last updated, or the
// zero time when unknown.
func ReadFreshnessMarker(dir string) time.Time {
	data, err := os.ReadFile(freshnessPath(dir))
	if err != nil {
		return time.Time{}
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// IsStale reports whether the clone at dir is older than maxAge or has no
// freshness marker.
func IsStale(dir string, maxAge time.Duration) bool {
	last := ReadFreshnessMarker(dir)
	if last.IsZero() {
		return true
	}
	return time.Since(last) > maxAge
}
