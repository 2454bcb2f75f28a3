package validate

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"
)

// maxReadBytes bounds how much of any one file the content checks read.
const maxReadBytes = 512 * 1024

// skipDirs are never descended into, at any depth.
var skipDirs = []string{".git", "node_modules", "__pycache__"}

// skipRootDirs are build outputs skipped only at the project root; the same
// names deeper in the tree may hold sources or tests.
var skipRootDirs = []string{"dist", "target", "build", ".venv", "vendor"}

type fileInfo struct {
	dir  bool
	size int64
}

// snapshot is the set of paths present when Validate started. Content is
// read lazily but only for paths in the snapshot.
type snapshot struct {
	root  string
	files map[string]fileInfo // slash-separated, relative to root
}

func takeSnapshot(root string) (*snapshot, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading project directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path %s is not a directory", root)
	}

	s := &snapshot{root: root, files: make(map[string]fileInfo)}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if slices.Contains(skipDirs, d.Name()) ||
				(!strings.Contains(rel, "/") && slices.Contains(skipRootDirs, d.Name())) {
				return filepath.SkipDir
			}
			s.files[rel] = fileInfo{dir: true}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		s.files[rel] = fileInfo{size: info.Size()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking project directory: %w", err)
	}
	return s, nil
}

func (s *snapshot) isDir(rel string) bool {
	fi, ok := s.files[rel]
	return ok && fi.dir
}

func (s *snapshot) isFile(rel string) bool {
	fi, ok := s.files[rel]
	return ok && !fi.dir
}

// under returns the regular files below dir, sorted.
func (s *snapshot) under(dir string) []string {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var out []string
	for rel, fi := range s.files {
		if !fi.dir && strings.HasPrefix(rel, prefix) {
			out = append(out, rel)
		}
	}
	slices.Sort(out)
	return out
}

// regularFiles returns every regular file, sorted.
func (s *snapshot) regularFiles() []string {
	var out []string
	for rel, fi := range s.files {
		if !fi.dir {
			out = append(out, rel)
		}
	}
	slices.Sort(out)
	return out
}

// readText returns up to maxReadBytes of rel, or ok=false for binary files.
func (s *snapshot) readText(rel string) (string, bool, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, maxReadBytes))
	if err != nil {
		return "", false, err
	}
	if !isLikelyText(buf) {
		return "", false, nil
	}
	return string(buf), true, nil
}

func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	if slices.Contains(buf, 0) {
		return false
	}
	return utf8.Valid(buf)
}
