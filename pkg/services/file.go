package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"blog-cms/pkg/config"
	"blog-cms/pkg/frontmatter"
	"blog-cms/pkg/models"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPath is returned for paths that leave their root directory.
var ErrInvalidPath = errors.New("invalid path")

// SafeJoin joins target below root/sub, or returns "" when target would
// escape it.
func SafeJoin(root, sub, target string) string {
	cleanTarget := filepath.Clean(filepath.FromSlash(target))
	if cleanTarget == "." || !filepath.IsLocal(cleanTarget) {
		return ""
	}
	return filepath.Join(root, sub, cleanTarget)
}

// GetConfig returns the admin config as a generic map for the editor UI.
func GetConfig() (map[string]any, error) {
	content, err := os.ReadFile(filepath.Join(config.RepoPath, config.CMSConfigPath))
	if errors.Is(err, fs.ErrNotExist) {
		var cfg map[string]any
		raw, marshalErr := yaml.Marshal(defaultCMSConfig())
		if marshalErr != nil {
			return nil, marshalErr
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg map[string]any
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", config.CMSConfigPath, err)
	}
	return cfg, nil
}

// GetCMSConfig reads the typed admin config. Repositories without one get
// a single Jekyll posts collection.
func GetCMSConfig() (*models.CMSConfig, error) {
	content, err := os.ReadFile(filepath.Join(config.RepoPath, config.CMSConfigPath))
	if errors.Is(err, fs.ErrNotExist) {
		return defaultCMSConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	var cfg models.CMSConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", config.CMSConfigPath, err)
	}
	return &cfg, nil
}

func defaultCMSConfig() *models.CMSConfig {
	return &models.CMSConfig{
		MediaFolder:  config.StaticMediaDir,
		PublicFolder: "/" + filepath.ToSlash(config.StaticMediaDir),
		Collections: []models.Collection{{
			Name:      "posts",
			Label:     "Posts",
			Folder:    config.PostsDir,
			Extension: "md",
			Format:    "yaml",
			Fields: []models.Field{
				{Name: "layout", Widget: "hidden", Default: "post"},
				{Name: "title", Widget: "string"},
				{Name: "date", Widget: "datetime"},
				{Name: "categories", Widget: "list"},
				{Name: "tags", Widget: "list"},
				{Name: "image", Widget: "image"},
				{Name: "body", Widget: "markdown"},
			},
		}},
	}
}

// PostsCollection picks the "posts" collection, falling back to the first one.
func PostsCollection() *models.Collection {
	cfg, err := GetCMSConfig()
	if err != nil {
		log().Warn("admin config unreadable, using defaults", zap.Error(err))
		cfg = defaultCMSConfig()
	}
	if col := cfg.Collection("posts"); col != nil {
		return col
	}
	if len(cfg.Collections) > 0 {
		return &cfg.Collections[0]
	}
	return &defaultCMSConfig().Collections[0]
}

// ReadPost loads a post below the posts directory. A post whose header cannot
// be parsed is still returned, with its raw content and the parse error.
func ReadPost(relPath string) (*models.Post, error) {
	fullPath := SafeJoin(config.RepoPath, config.PostsDir, relPath)
	if fullPath == "" {
		return nil, ErrInvalidPath
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}

	doc, err := frontmatter.Parse(content)
	if err != nil {
		return &models.Post{
			Path:       filepath.ToSlash(relPath),
			Title:      filepath.Base(relPath),
			Content:    string(content),
			ParseError: err.Error(),
		}, nil
	}

	post := postFromDocument(filepath.ToSlash(relPath), doc)
	post.FrontMatter = doc.Metadata
	post.Body = doc.Body
	return &post, nil
}

// SavePost writes a post atomically. Posts carrying front matter are
// serialized from it; otherwise the raw Content, or failing that the Body,
// is written.
func SavePost(post *models.Post) error {
	fullPath := SafeJoin(config.RepoPath, config.PostsDir, post.Path)
	if fullPath == "" {
		return ErrInvalidPath
	}

	var content []byte
	if post.FrontMatter != nil {
		var err error
		content, err = ConstructFileContent(post.FrontMatter, post.Body, post.Format)
		if err != nil {
			return fmt.Errorf("construct %s: %w", post.Path, err)
		}
	} else if post.Content != "" {
		content = []byte(post.Content)
	} else {
		// Headerless posts come back with their text in Body only.
		content = []byte(post.Body)
	}

	if err := writeFileAtomic(fullPath, content); err != nil {
		return err
	}

	InvalidateCache()
	log().Info("post saved", zap.String("path", post.Path), zap.Int("bytes", len(content)))
	return nil
}

func writeFileAtomic(path string, content []byte) error {
	return writeAtomic(path, bytes.NewReader(content))
}

func writeAtomic(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, r); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// atomic.WriteFile leaves new files with the temp file's 0600 mode.
	return os.Chmod(path, 0o644)
}
