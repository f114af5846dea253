package vcs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"

	"github.com/relmanhq/relman/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// setupOrigin creates a bare "remote" repository with one commit on master.
func setupOrigin(t *testing.T) string {
	t.Helper()

	seedDir := t.TempDir()
	seed, err := git.PlainInit(seedDir, false)
	if err != nil {
		t.Fatalf("init seed repo: %v", err)
	}

	if err := os.WriteFile(filepath.Join(seedDir, "README.md"), []byte("# pkg\n"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}

	wt, err := seed.Worktree()
	if err != nil {
		t.Fatalf("seed worktree: %v", err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("stage readme: %v", err)
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "seed", Email: "seed@test", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("seed commit: %v", err)
	}

	originDir := filepath.Join(t.TempDir(), "origin.git")
	_, err = git.PlainClone(originDir, true, &git.CloneOptions{URL: seedDir})
	if err != nil {
		t.Fatalf("clone bare origin: %v", err)
	}
	return originDir
}

func TestCheckoutCommitPush(t *testing.T) {
	origin := setupOrigin(t)
	g := New(Config{WorkRoot: t.TempDir()}, testLogger())
	runID := uuid.New()
	ctx := context.Background()

	ws, err := g.Checkout(ctx, runID, origin, "master")
	if err != nil {
		t.Fatalf("Checkout() error: %v", err)
	}

	if err := ws.SetIdentity("Release Bot", "bot@relman.test"); err != nil {
		t.Fatalf("SetIdentity() error: %v", err)
	}

	hash, err := ws.CommitRelease(ctx, "0.1.0")
	if err != nil {
		t.Fatalf("CommitRelease() error: %v", err)
	}
	if hash == "" {
		t.Fatal("expected commit hash")
	}

	// Манифест записан в workspace
	data, err := os.ReadFile(filepath.Join(ws.Dir(), versionFile))
	if err != nil {
		t.Fatalf("read version manifest: %v", err)
	}
	if string(data) != "0.1.0\n" {
		t.Errorf("manifest = %q, want %q", data, "0.1.0\n")
	}

	// До push'а remote не видит тег
	originRepo, err := git.PlainOpen(origin)
	if err != nil {
		t.Fatalf("open origin: %v", err)
	}
	if _, err := originRepo.Reference(plumbing.NewTagReferenceName("v0.1.0"), true); err == nil {
		t.Fatal("tag must not reach the remote before push")
	}

	if err := ws.PushRelease(ctx, "origin", "master", "0.1.0"); err != nil {
		t.Fatalf("PushRelease() error: %v", err)
	}

	ref, err := originRepo.Reference(plumbing.NewTagReferenceName("v0.1.0"), true)
	if err != nil {
		t.Fatalf("tag not found on remote after push: %v", err)
	}
	if ref.Hash().IsZero() {
		t.Error("tag ref has zero hash")
	}
}

func TestCommitReleaseRequiresIdentity(t *testing.T) {
	origin := setupOrigin(t)
	g := New(Config{WorkRoot: t.TempDir()}, testLogger())

	ws, err := g.Checkout(context.Background(), uuid.New(), origin, "master")
	if err != nil {
		t.Fatalf("Checkout() error: %v", err)
	}

	if _, err := ws.CommitRelease(context.Background(), "0.1.0"); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("expected ErrNoIdentity, got %v", err)
	}

	if err := ws.SetIdentity("", ""); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("expected ErrNoIdentity for empty identity, got %v", err)
	}
}

func TestCommitReleaseRejectsBadVersion(t *testing.T) {
	origin := setupOrigin(t)
	g := New(Config{WorkRoot: t.TempDir()}, testLogger())

	ws, err := g.Checkout(context.Background(), uuid.New(), origin, "master")
	if err != nil {
		t.Fatalf("Checkout() error: %v", err)
	}
	if err := ws.SetIdentity("Release Bot", "bot@relman.test"); err != nil {
		t.Fatal(err)
	}

	if _, err := ws.CommitRelease(context.Background(), "not-a-version"); !errors.Is(err, domain.ErrInvalidVersion) {
		t.Errorf("expected ErrInvalidVersion, got %v", err)
	}
}

func TestOpenAndCleanup(t *testing.T) {
	origin := setupOrigin(t)
	g := New(Config{WorkRoot: t.TempDir()}, testLogger())
	runID := uuid.New()
	ctx := context.Background()

	if _, err := g.Open(runID); !errors.Is(err, ErrWorkspaceMissing) {
		t.Errorf("expected ErrWorkspaceMissing, got %v", err)
	}

	ws, err := g.Checkout(ctx, runID, origin, "master")
	if err != nil {
		t.Fatalf("Checkout() error: %v", err)
	}

	reopened, err := g.Open(runID)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if reopened.Dir() != ws.Dir() {
		t.Errorf("reopened dir = %q, want %q", reopened.Dir(), ws.Dir())
	}

	if err := g.Cleanup(runID); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Error("workspace dir still exists after cleanup")
	}
}

func TestCheckoutUnknownBranch(t *testing.T) {
	origin := setupOrigin(t)
	g := New(Config{WorkRoot: t.TempDir()}, testLogger())

	_, err := g.Checkout(context.Background(), uuid.New(), origin, "no-such-branch")
	if err == nil {
		t.Fatal("expected error for unknown branch")
	}
}
