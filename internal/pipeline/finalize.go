package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/repoforge/repoforge/internal/branding"
	"github.com/repoforge/repoforge/internal/gitrepo"
	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/validate"
)

// GitFinalizer initializes a git repository in the project and commits it.
type GitFinalizer struct {
	Author gitrepo.Signature
}

// Finalize implements Finalizer.
func (g GitFinalizer) Finalize(ctx context.Context, dir string, cfg *project.Config, report *validate.Report) (string, error) {
	res, err := gitrepo.InitAndCommit(ctx, dir, CommitMessage(cfg, report), g.Author)
	if err != nil {
		return "", err
	}
	return res.Hash, nil
}

// CommitMessage renders the message of the initial commit.
func CommitMessage(cfg *project.Config, report *validate.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Initial commit: %s generated by %s\n\n", cfg.Name, branding.DisplayName())
	fmt.Fprintf(&sb, "Type: %s\nLanguage: %s\n", cfg.Type, cfg.Language)
	if cfg.Framework != "" {
		fmt.Fprintf(&sb, "Framework: %s\n", cfg.Framework)
	}
	if len(cfg.Features) > 0 {
		names := make([]string, len(cfg.Features))
		for i, f := range cfg.Features {
			names[i] = string(f)
		}
		fmt.Fprintf(&sb, "Features: %s\n", strings.Join(names, ", "))
	}
	if cfg.HasCompliance() {
		fmt.Fprintf(&sb, "Compliance: %s\n", strings.Join(cfg.Compliance.Frameworks, ", "))
	}
	if report != nil {
		fmt.Fprintf(&sb, "Validation: %s\n", report.Summary())
	}
	return sb.String()
}
