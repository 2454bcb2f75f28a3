package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestInitAndCommit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# demo\n")
	writeFile(t, dir, "src/index.ts", "export {}\n")

	assert.False(t, IsRepository(dir))

	res, err := InitAndCommit(context.Background(), dir, "Initial commit", Signature{})
	require.NoError(t, err)
	assert.True(t, res.Initialized)
	assert.Len(t, res.Hash, 40)
	assert.True(t, IsRepository(dir))

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/"+DefaultBranch, head.Name().String())

	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, DefaultSignature().Name, commit.Author.Name)

	tree, err := commit.Tree()
	require.NoError(t, err)
	_, err = tree.File("src/index.ts")
	assert.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean())
}

func TestInitAndCommit_ReusesRepository(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# demo\n")

	first, err := InitAndCommit(context.Background(), dir, "first", Signature{})
	require.NoError(t, err)

	// Unchanged tree: no empty commit, HEAD is returned.
	again, err := InitAndCommit(context.Background(), dir, "again", Signature{})
	require.NoError(t, err)
	assert.False(t, again.Initialized)
	assert.Equal(t, first.Hash, again.Hash)

	writeFile(t, dir, "docs/guide.md", "guide\n")
	second, err := InitAndCommit(context.Background(), dir, "second", Signature{Name: "Dev", Email: "dev@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Hash, second.Hash)

	msg, err := HeadMessage(dir)
	require.NoError(t, err)
	assert.Equal(t, "second", msg)
}

func TestInitAndCommit_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# demo\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := InitAndCommit(ctx, dir, "msg", Signature{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRepository(dir))
}

func TestInitAndCommit_EmptyMessage(t *testing.T) {
	_, err := InitAndCommit(context.Background(), t.TempDir(), "", Signature{})
	assert.Error(t, err)
}
