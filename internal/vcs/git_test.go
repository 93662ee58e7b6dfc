package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// gitEnv prepares a throwaway git repository, skipping when no git binary is
// installed.
func gitEnv(t *testing.T) (string, *Git) {
	t.Helper()
	gitPath, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git not installed")
	}

	root := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command(gitPath, args...)
		cmd.Dir = root
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("init")
	run("config", "user.email", "test@manifold")
	run("config", "user.name", "test")

	return root, NewGit(gitPath, root, nil)
}

func gitLog(t *testing.T, root string, format string) string {
	t.Helper()
	cmd := exec.Command("git", "log", "-1", "--pretty="+format)
	cmd.Dir = root
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git log: %v: %s", err, out)
	}
	return strings.TrimSpace(string(out))
}

func TestGit_AddFileAtPath(t *testing.T) {
	root, g := gitEnv(t)

	record := filepath.Join(root, "manifests", "site_default")
	if err := os.MkdirAll(filepath.Dir(record), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(record, []byte("<?xml version=\"1.0\"?>\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := g.AddFileAtPath(context.Background(), record, "admin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := gitLog(t, root, "%s"); got != "admin updated manifests/site_default" {
		t.Errorf("commit subject = %q", got)
	}
	if got := gitLog(t, root, "%an"); got != "admin" {
		t.Errorf("commit author = %q", got)
	}
}

func TestGit_DeleteFileAtPath(t *testing.T) {
	root, g := gitEnv(t)
	ctx := context.Background()

	record := filepath.Join(root, "manifests", "gone")
	if err := os.MkdirAll(filepath.Dir(record), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(record, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := g.AddFileAtPath(ctx, record, "admin"); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(record); err != nil {
		t.Fatal(err)
	}
	if err := g.DeleteFileAtPath(ctx, record, "admin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := gitLog(t, root, "%s"); got != "admin deleted manifests/gone" {
		t.Errorf("commit subject = %q", got)
	}
}

func TestGit_ErrorIncludesOutput(t *testing.T) {
	_, g := gitEnv(t)
	// Committing with nothing staged fails; the error must carry git's output.
	err := g.run(context.Background(), "commit", "-m", "empty")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "git commit") {
		t.Errorf("err = %v, want git command context", err)
	}
}
