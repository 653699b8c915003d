package services

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"blog-cms/pkg/config"
	"blog-cms/pkg/frontmatter"
	"blog-cms/pkg/models"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	postCache   []models.Post
	cacheMutex  sync.Mutex
	cacheLoaded bool
)

var postExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
}

// IsPostFile reports whether name has the extension of a post file.
func IsPostFile(name string) bool {
	return postExtensions[strings.ToLower(filepath.Ext(name))]
}

// GetPostsCache lists every post, newest first. The listing is built once
// and reused until InvalidateCache is called.
func GetPostsCache() ([]models.Post, error) {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	if cacheLoaded {
		return postCache, nil
	}

	posts, err := loadPosts(context.Background())
	if err != nil {
		return nil, err
	}

	postCache = posts
	cacheLoaded = true
	return postCache, nil
}

func InvalidateCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	cacheLoaded = false
	postCache = nil
}

func listPostFiles(postsDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(postsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != postsDir && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if IsPostFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return files, err
}

func loadPosts(ctx context.Context) ([]models.Post, error) {
	postsDir := config.PostsPath()
	files, err := listPostFiles(postsDir)
	if err != nil {
		return nil, err
	}

	dirtyFiles, err := getGitDirtyFiles(config.RepoPath)
	if err != nil {
		log().Debug("git status unavailable", zap.Error(err))
	}

	posts := make([]models.Post, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(config.CacheConcurrency)

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			relPath, _ := filepath.Rel(postsDir, path)
			relPath = filepath.ToSlash(relPath)
			repoRelPath, _ := filepath.Rel(config.RepoPath, path)

			post, err := loadPostHeader(path, relPath)
			if err != nil {
				return err
			}
			post.IsDirty = dirtyFiles[filepath.ToSlash(repoRelPath)]
			posts[i] = post
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortPosts(posts)
	log().Debug("posts loaded", zap.Int("count", len(posts)))
	return posts, nil
}

// loadPostHeader parses the header from the first FileReadHeadLimit bytes,
// and falls back to the whole file when the header runs past them.
func loadPostHeader(path, relPath string) (models.Post, error) {
	head, truncated, err := readHead(path, config.FileReadHeadLimit)
	if err != nil {
		return models.Post{}, err
	}

	doc, err := frontmatter.Parse(head)
	if err != nil && truncated && errors.Is(err, frontmatter.ErrMalformedHeader) {
		var full []byte
		full, err = os.ReadFile(path)
		if err != nil {
			return models.Post{}, err
		}
		doc, err = frontmatter.Parse(full)
	}
	if err != nil {
		log().Warn("post header unreadable", zap.String("path", relPath), zap.Error(err))
		post := models.Post{
			Path:       relPath,
			Title:      relPath,
			ParseError: err.Error(),
		}
		if date, _, ok := parsePostFilename(relPath); ok {
			post.Date = &date
		}
		return post, nil
	}

	return postFromDocument(relPath, doc), nil
}

func readHead(path string, limit int64) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(buf)) > limit {
		return buf[:limit], true, nil
	}
	return buf, false, nil
}

// sortPosts orders posts newest first; undated posts go last.
func sortPosts(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return postLess(posts[i], posts[j])
	})
}

func postLess(a, b models.Post) bool {
	switch {
	case a.Date != nil && b.Date != nil && !a.Date.Equal(*b.Date):
		return a.Date.After(*b.Date)
	case a.Date != nil && b.Date == nil:
		return true
	case a.Date == nil && b.Date != nil:
		return false
	}
	return a.Path < b.Path
}

// WatchContent invalidates the post cache whenever files under the posts
// directory change. It returns once the watcher is running; the watcher
// stops when ctx is done.
func WatchContent(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	postsDir := config.PostsPath()
	if err := os.MkdirAll(postsDir, 0o755); err != nil {
		watcher.Close()
		return err
	}
	if err := addWatchDirs(watcher, postsDir); err != nil {
		watcher.Close()
		return err
	}

	go watchLoop(ctx, watcher)
	log().Info("watching posts", zap.String("dir", postsDir))
	return nil
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	// Editors emit bursts of events per save
	const debounce = 100 * time.Millisecond
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchDirs(watcher, event.Name); err != nil {
						log().Warn("watch new directory", zap.String("dir", event.Name), zap.Error(err))
					}
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				InvalidateCache()
				log().Debug("post cache invalidated", zap.String("cause", event.Name))
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log().Error("watcher error", zap.Error(err))
		}
	}
}
