package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"blog-cms/pkg/config"

	"github.com/stretchr/testify/require"
)

// setupRepo points the config at an empty checkout for the duration of the
// test and returns its root.
func setupRepo(t *testing.T) string {
	t.Helper()

	saved := struct {
		repo, public, preview, posts, cmsConfig, media, title string
		headLimit                                         int64
	}{
		config.RepoPath, config.PublicPath, config.PreviewURL, config.PostsDir,
		config.CMSConfigPath, config.StaticMediaDir, config.SiteTitle, config.FileReadHeadLimit,
	}
	savedNow := now

	repo := t.TempDir()
	config.RepoPath = repo
	config.PublicPath = filepath.Join(repo, "_site")
	config.PreviewURL = "/"
	config.PostsDir = "_posts"
	config.CMSConfigPath = "admin/config.yml"
	config.StaticMediaDir = "assets/images"
	config.SiteTitle = "Test Blog"
	InvalidateCache()

	t.Cleanup(func() {
		config.RepoPath = saved.repo
		config.PublicPath = saved.public
		config.PreviewURL = saved.preview
		config.PostsDir = saved.posts
		config.CMSConfigPath = saved.cmsConfig
		config.StaticMediaDir = saved.media
		config.SiteTitle = saved.title
		config.FileReadHeadLimit = saved.headLimit
		now = savedNow
		InvalidateCache()
	})
	return repo
}

func freezeTime(t time.Time) {
	now = func() time.Time { return t }
}

func writeRepoFile(t *testing.T, repo, rel, content string) string {
	t.Helper()
	p := filepath.Join(repo, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func readRepoFile(t *testing.T, repo, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(repo, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}
