package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Git stages and commits record changes by shelling out to the system git
// binary. Each notification produces one commit authored by the actor.
type Git struct {
	gitPath  string
	repoRoot string
	logger   *slog.Logger
}

// NewGit returns a Notifier driving the git executable at gitPath against
// the working tree rooted at repoRoot.
func NewGit(gitPath, repoRoot string, logger *slog.Logger) *Git {
	if logger == nil {
		logger = slog.Default()
	}
	return &Git{gitPath: gitPath, repoRoot: repoRoot, logger: logger}
}

// AddFileAtPath stages the file and commits it under the actor's identity.
func (g *Git) AddFileAtPath(ctx context.Context, absPath, actor string) error {
	if err := g.run(ctx, "add", absPath); err != nil {
		return err
	}
	rel := g.relPath(absPath)
	return g.commit(ctx, actor, fmt.Sprintf("%s updated %s", actor, rel))
}

// DeleteFileAtPath stages the removal and commits it under the actor's
// identity. The file is already gone from disk, so the cached entry is
// removed rather than the worktree copy.
func (g *Git) DeleteFileAtPath(ctx context.Context, absPath, actor string) error {
	if err := g.run(ctx, "rm", "--cached", "--ignore-unmatch", absPath); err != nil {
		return err
	}
	rel := g.relPath(absPath)
	return g.commit(ctx, actor, fmt.Sprintf("%s deleted %s", actor, rel))
}

func (g *Git) commit(ctx context.Context, actor, message string) error {
	author := fmt.Sprintf("%s <%s@%s>", actor, actor, "manifold")
	return g.run(ctx, "commit", "-m", message, "--author", author)
}

func (g *Git) relPath(absPath string) string {
	rel, err := filepath.Rel(g.repoRoot, absPath)
	if err != nil {
		return absPath
	}
	return filepath.ToSlash(rel)
}

// run executes git in the repository root with prompts disabled.
func (g *Git) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, g.gitPath, args...)
	cmd.Dir = g.repoRoot
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("vcs: git %s: %s: %w",
			args[0], strings.TrimSpace(string(out)), err)
	}
	g.logger.Debug("git command",
		slog.String("args", strings.Join(args, " ")))
	return nil
}
