package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/relmanhq/relman/internal/domain"
)

// versionFile — файл-манифест с текущей версией пакета в корне репозитория.
const versionFile = "VERSION"

// Workspace — изолированный клон репозитория для одного run.
type Workspace struct {
	dir      string
	repo     *git.Repository
	worktree *git.Worktree
	auth     transport.AuthMethod

	identityName  string
	identityEmail string
}

// Dir возвращает директорию workspace.
func (w *Workspace) Dir() string {
	return w.dir
}

// SetIdentity задаёт идентичность для коммитов и тегов этого run.
func (w *Workspace) SetIdentity(name, email string) error {
	if name == "" || email == "" {
		return fmt.Errorf("%w: name=%q email=%q", ErrNoIdentity, name, email)
	}
	w.identityName = name
	w.identityEmail = email
	return nil
}

// CommitRelease записывает новую версию в манифест, коммитит и создаёт
// annotated tag vX.Y.Z. Обе операции локальные — remote и реестр не
// затрагиваются до стадии push/publish.
//
// Возвращает хеш release-коммита.
func (w *Workspace) CommitRelease(ctx context.Context, version string) (string, error) {
	if w.identityName == "" || w.identityEmail == "" {
		return "", ErrNoIdentity
	}
	if err := domain.ValidateVersion(version); err != nil {
		return "", err
	}

	path := filepath.Join(w.dir, versionFile)
	if err := os.WriteFile(path, []byte(version+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write version manifest: %w", err)
	}

	if _, err := w.worktree.Add(versionFile); err != nil {
		return "", fmt.Errorf("stage version manifest: %w", err)
	}

	signature := &object.Signature{
		Name:  w.identityName,
		Email: w.identityEmail,
		When:  time.Now(),
	}

	tag := domain.TagName(version)
	hash, err := w.worktree.Commit("release "+tag, &git.CommitOptions{Author: signature})
	if err != nil {
		return "", fmt.Errorf("commit release: %w", err)
	}

	_, err = w.repo.CreateTag(tag, hash, &git.CreateTagOptions{
		Tagger:  signature,
		Message: "release " + tag,
	})
	if err != nil {
		return "", fmt.Errorf("create tag %s: %w", tag, err)
	}

	return hash.String(), nil
}

// PushRelease отправляет release-коммит и тег на remote.
func (w *Workspace) PushRelease(ctx context.Context, remote, branch, version string) error {
	tag := domain.TagName(version)

	err := w.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   pushRefSpecs(branch, tag),
		Auth:       w.auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("push %s to %s: %w", tag, remote, err)
	}
	return nil
}
