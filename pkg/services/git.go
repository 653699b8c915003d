package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"blog-cms/pkg/config"

	"go.uber.org/zap"
)

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// ExecuteGitWithToken runs git with the configured remote name replaced by
// its URL carrying token. The token never appears in the returned log.
func ExecuteGitWithToken(ctx context.Context, dir, token string, args ...string) (string, error) {
	remoteOut, err := runGit(ctx, dir, "remote", "get-url", config.GitRemote)
	if err != nil {
		return "Failed to get remote url", err
	}
	remoteURL := strings.TrimSpace(remoteOut)
	u, err := url.Parse(remoteURL)
	if err != nil || u.Scheme == "" {
		return "Invalid remote url", fmt.Errorf("remote %q is not an http(s) url", remoteURL)
	}
	u.User = url.UserPassword("oauth2", token)
	authenticatedURL := u.String()

	newArgs := make([]string, len(args))
	copy(newArgs, args)
	for i, v := range newArgs {
		if v == config.GitRemote {
			newArgs[i] = authenticatedURL
		}
	}

	output, err := runGit(ctx, dir, newArgs...)
	safeLog := strings.ReplaceAll(output, authenticatedURL, remoteURL)
	if token != "" {
		safeLog = strings.ReplaceAll(safeLog, token, "***")
	}
	return safeLog, err
}

// SyncRepo pulls the configured branch from the remote.
func SyncRepo(ctx context.Context, token string) (string, error) {
	out, err := ExecuteGitWithToken(ctx, config.RepoPath, token, "pull", config.GitRemote, config.GitBranch)
	if err == nil {
		InvalidateCache()
		log().Info("repository synced", zap.String("branch", config.GitBranch))
	}
	return out, err
}

// PublishRepo commits every change in the checkout and pushes it.
func PublishRepo(ctx context.Context, token string) (string, error) {
	if out, err := runGit(ctx, config.RepoPath, "add", "."); err != nil {
		return out, err
	}

	msg := fmt.Sprintf("Update via Blog CMS: %s", now().Format("2006-01-02 15:04:05"))
	commitOut, err := runGit(ctx, config.RepoPath,
		"-c", "user.name="+config.GitUserName,
		"-c", "user.email="+config.GitUserEmail,
		"commit", "-m", msg,
	)
	if err != nil {
		// Nothing to commit still allows pushing earlier commits.
		log().Debug("git commit", zap.String("output", strings.TrimSpace(commitOut)), zap.Error(err))
	}

	out, err := ExecuteGitWithToken(ctx, config.RepoPath, token, "push", config.GitRemote, config.GitBranch)
	if err == nil {
		InvalidateCache()
		log().Info("repository published", zap.String("branch", config.GitBranch))
	}
	return commitOut + out, err
}

// Diff compares the saved and edited versions of a post. It reports an
// "unsaved" diff when they differ, otherwise the post's diff against HEAD
// ("git"), otherwise "none".
func Diff(ctx context.Context, f1Path, f2Path, relPath string) (string, string) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--no-index", f1Path, f2Path)
	output, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		diffStr := string(output)
		diffStr = strings.ReplaceAll(diffStr, f1Path, "Saved (Normalized)")
		diffStr = strings.ReplaceAll(diffStr, f2Path, "Editor")
		return diffStr, "unsaved"
	}

	outGit, err := runGit(ctx, config.RepoPath, "diff", "HEAD", "--", relPath)
	if err == nil && len(outGit) > 0 {
		return outGit, "git"
	}
	return "", "none"
}

func getGitDirtyFiles(dir string) (map[string]bool, error) {
	// -uall lists files inside untracked directories
	cmd := exec.Command("git", "status", "--porcelain", "-uall")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	dirty := make(map[string]bool)
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		// Renames are reported as "old -> new"
		if _, after, ok := strings.Cut(path, " -> "); ok {
			path = after
		}
		path = strings.Trim(path, "\"")
		dirty[path] = true
	}
	return dirty, nil
}
