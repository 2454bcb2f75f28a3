// Package gitrepo performs the finalize step: initialize a repository in the
// generated project and commit everything in it.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/repoforge/repoforge/internal/branding"
)

// DefaultBranch is the branch the initial commit lands on.
const DefaultBranch = "main"

// Signature identifies the author of the initial commit.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// DefaultSignature is used when no author is configured.
func DefaultSignature() Signature {
	return Signature{
		Name:  branding.DisplayName(),
		Email: branding.CLIName() + "@localhost",
	}
}

// Result describes the finalize outcome.
type Result struct {
	Hash        string
	Initialized bool // false when an existing repository was reused
}

// InitAndCommit initializes a repository at dir (reusing one that already
// exists), stages every file and commits. When the tree matches HEAD the
// existing HEAD hash is returned instead of an empty commit.
func InitAndCommit(ctx context.Context, dir, msg string, who Signature) (*Result, error) {
	if msg == "" {
		return nil, errors.New("commit message cannot be empty")
	}
	if who.Name == "" || who.Email == "" {
		who = DefaultSignature()
	}
	if who.When.IsZero() {
		who.When = time.Now()
	}

	result := &Result{Initialized: true}
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(DefaultBranch),
		},
	})
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		result.Initialized = false
		repo, err = git.PlainOpen(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing repository: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, fmt.Errorf("staging files: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sig := &object.Signature{Name: who.Name, Email: who.Email, When: who.When}
	hash, err := wt.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig})
	if errors.Is(err, git.ErrEmptyCommit) {
		head, headErr := repo.Head()
		if headErr != nil {
			return nil, fmt.Errorf("reading HEAD: %w", headErr)
		}
		result.Hash = head.Hash().String()
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating commit: %w", err)
	}

	result.Hash = hash.String()
	return result, nil
}

// IsRepository reports whether dir holds a git repository with at least one
// commit.
func IsRepository(dir string) bool {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return false
	}
	_, err = repo.Head()
	return err == nil
}

// HeadMessage returns the message of the HEAD commit.
func HeadMessage(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("reading HEAD commit: %w", err)
	}
	return commit.Message, nil
}
