// Package gitsource keeps local clones of git-hosted decks up to date.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/conorfennell/knolstudy/internal/logger"
)

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does. Progress output, if any, is
// written to progress.
func Sync(ctx context.Context, log *logger.Logger, repoURL, localPath string, progress io.Writer) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		log.Info("cloning repository", "url", repoURL, "path", localPath)
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      repoURL,
			Progress: progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
		log.Info("clone successful", "path", localPath)
	case err == nil:
		log.Info("pulling latest changes", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{
			RemoteName: "origin",
			Progress:   progress,
		})
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			log.Debug("repository already up to date", "path", localPath)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		log.Info("pull successful", "path", localPath)
	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	return nil
}

// IsRemote reports whether a source path names a git remote rather than a
// local directory.
func IsRemote(path string) bool {
	switch {
	case strings.HasPrefix(path, "https://"), strings.HasPrefix(path, "http://"),
		strings.HasPrefix(path, "ssh://"), strings.HasPrefix(path, "git@"):
		return true
	default:
		return strings.HasSuffix(path, ".git") && strings.Contains(path, ":")
	}
}

// LocalPath maps a repository URL to a directory under baseDir, e.g.
// https://github.com/u/deck.git and git@github.com:u/deck.git both become
// baseDir/github.com/u/deck.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || parsedURL.Host == "" {
		// scp-like syntax: user@host:path
		if user, rest, ok := strings.Cut(repoURL, "@"); ok && user != "" {
			host, repoPath, ok := strings.Cut(rest, ":")
			if ok && host != "" && repoPath != "" {
				return join(baseDir, host, repoPath)
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}
	return join(baseDir, parsedURL.Host, parsedURL.Path)
}

func join(baseDir, host, repoPath string) (string, error) {
	repoPath = strings.Trim(strings.TrimSuffix(repoPath, ".git"), "/")
	if repoPath == "" {
		return "", fmt.Errorf("git URL has no repository path")
	}
	clean := filepath.Clean(filepath.Join(baseDir, host, repoPath))
	base := filepath.Clean(baseDir)
	if !strings.HasPrefix(clean, base+string(filepath.Separator)) {
		return "", fmt.Errorf("git URL escapes repos directory: %s", repoPath)
	}
	return clean, nil
}
