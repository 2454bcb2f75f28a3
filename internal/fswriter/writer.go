package fswriter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned for any entry that would land outside the
// base directory.
var ErrPathTraversal = errors.New("path escapes project directory")

// Permission constants.
const (
	DirPerm  os.FileMode = 0o755
	FilePerm os.FileMode = 0o644
)

// Entry is one artifact to write. Path is relative to the writer's base and
// uses forward slashes. A directory entry has IsDir set and no content.
type Entry struct {
	Path    string
	Content []byte
	IsDir   bool
	Mode    os.FileMode
}

// File returns a file entry.
func File(path, content string) Entry {
	return Entry{Path: path, Content: []byte(content)}
}

// Dir returns a directory entry.
func Dir(path string) Entry {
	return Entry{Path: path, IsDir: true}
}

// Writer writes entries below a fixed base directory.
type Writer struct {
	base string
}

// New returns a writer rooted at base. The base is made absolute so the
// traversal guard compares like with like.
func New(base string) (*Writer, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory %s: %w", base, err)
	}
	return &Writer{base: filepath.Clean(abs)}, nil
}

// Base returns the absolute base directory.
func (w *Writer) Base() string {
	return w.base
}

// Resolve maps a relative entry path to an absolute path inside the base,
// rejecting anything that escapes it.
func (w *Writer) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathTraversal)
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) || filepath.VolumeName(native) != "" || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrPathTraversal, rel)
	}

	target := filepath.Join(w.base, native)
	if !w.contains(target) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, rel)
	}

	// A symlinked ancestor could still point outside the base.
	if resolved, err := w.resolveExistingParent(target); err != nil {
		return "", err
	} else if !w.contains(resolved) {
		return "", fmt.Errorf("%w: %q resolves through a symlink", ErrPathTraversal, rel)
	}
	return target, nil
}

// WriteTree validates every entry first and then writes them in order. A
// traversal attempt anywhere in the batch rejects the whole batch before
// anything touches the disk. It returns the relative paths written.
func (w *Writer) WriteTree(entries []Entry) ([]string, error) {
	targets := make([]string, len(entries))
	for i, e := range entries {
		target, err := w.Resolve(e.Path)
		if err != nil {
			return nil, err
		}
		targets[i] = target
	}

	if err := os.MkdirAll(w.base, DirPerm); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}

	written := make([]string, 0, len(entries))
	for i, e := range entries {
		if e.IsDir {
			if err := os.MkdirAll(targets[i], DirPerm); err != nil {
				return written, fmt.Errorf("creating directory %s: %w", e.Path, err)
			}
		} else if err := writeAtomic(targets[i], e.Content, e.Mode); err != nil {
			return written, fmt.Errorf("writing %s: %w", e.Path, err)
		}
		written = append(written, filepath.ToSlash(filepath.Clean(filepath.FromSlash(e.Path))))
	}
	return written, nil
}

func (w *Writer) contains(path string) bool {
	rel, err := filepath.Rel(w.base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// resolveExistingParent evaluates symlinks on the deepest existing ancestor
// of target and re-attaches the non-existent remainder.
func (w *Writer) resolveExistingParent(target string) (string, error) {
	base, err := filepath.EvalSymlinks(w.base)
	if os.IsNotExist(err) {
		return target, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving base directory: %w", err)
	}

	existing := target
	var rest []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return target, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", existing, err)
	}
	// Translate back into the unresolved base so contains() compares consistently.
	rel, err := filepath.Rel(base, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return resolved, nil
	}
	return filepath.Join(append([]string{w.base, rel}, rest...)...), nil
}

// writeAtomic writes data to a temp file beside path and renames it into
// place, so readers never observe a partially written file.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	if mode == 0 {
		mode = FilePerm
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
