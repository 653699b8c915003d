package services

import (
	"errors"
	"fmt"
	"io/fs"
	"mime/multipart"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"blog-cms/pkg/config"

	"github.com/goliatone/go-slug"
	"go.uber.org/zap"
)

type MediaFile struct {
	Name string `json:"name"`
	Path string `json:"path"` // site path for use in markdown
	Size int64  `json:"size"`
	URL  string `json:"url"` // preview URL
}

// GetMediaConfig resolves the media folder (relative to the repository) and
// its public URL prefix. A collection's own folders win over the global ones.
func GetMediaConfig(collectionName string) (string, string, error) {
	cfg, err := GetCMSConfig()
	if err != nil {
		return "", "", err
	}

	if col := cfg.Collection(collectionName); col != nil && col.MediaFolder != "" {
		return col.MediaFolder, publicFolderFor(col.MediaFolder, col.PublicFolder), nil
	}

	mediaFolder := cfg.MediaFolder
	if mediaFolder == "" {
		mediaFolder = config.StaticMediaDir
	}
	if mediaFolder == "" {
		return "", "", errors.New("media_folder not configured")
	}
	return mediaFolder, publicFolderFor(mediaFolder, cfg.PublicFolder), nil
}

// Jekyll copies repository folders to the same path under the site root.
func publicFolderFor(mediaFolder, publicFolder string) string {
	if publicFolder != "" {
		return publicFolder
	}
	return "/" + strings.Trim(filepath.ToSlash(mediaFolder), "/")
}

func mediaUsagePath(publicFolder, name string) string {
	if strings.HasPrefix(publicFolder, "http://") || strings.HasPrefix(publicFolder, "https://") {
		return strings.TrimSuffix(publicFolder, "/") + "/" + name
	}
	return path.Join("/", publicFolder, name)
}

// mediaPreviewURL points at the raw media endpoint, which serves files
// straight from the checkout before the site is built.
func mediaPreviewURL(mediaFolder, name string) string {
	repoPath := path.Join(filepath.ToSlash(mediaFolder), name)
	return "/api/media/raw?path=" + url.QueryEscape(repoPath)
}

// ResolveMediaPath maps a repository relative path, as carried by preview
// URLs, to a file inside one of the configured media folders.
func ResolveMediaPath(repoRelPath string) (string, error) {
	cfg, err := GetCMSConfig()
	if err != nil {
		return "", err
	}

	target := filepath.Clean(filepath.FromSlash(repoRelPath))
	if !filepath.IsLocal(target) {
		return "", ErrInvalidPath
	}

	folders := []string{cfg.MediaFolder}
	if cfg.MediaFolder == "" {
		folders[0] = config.StaticMediaDir
	}
	for _, col := range cfg.Collections {
		folders = append(folders, col.MediaFolder)
	}

	for _, folder := range folders {
		if folder == "" {
			continue
		}
		rel, err := filepath.Rel(filepath.Clean(filepath.FromSlash(folder)), target)
		if err == nil && rel != "." && filepath.IsLocal(rel) {
			return filepath.Join(config.RepoPath, target), nil
		}
	}
	return "", ErrInvalidPath
}

func ListMediaFiles(collectionName string) ([]MediaFile, error) {
	mediaFolder, publicFolder, err := GetMediaConfig(collectionName)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(config.RepoPath, mediaFolder))
	if errors.Is(err, fs.ErrNotExist) {
		return []MediaFile{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := make([]MediaFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		usagePath := mediaUsagePath(publicFolder, entry.Name())
		files = append(files, MediaFile{
			Name: entry.Name(),
			Path: usagePath,
			Size: info.Size(),
			URL:  mediaPreviewURL(mediaFolder, entry.Name()),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// mediaFileName slugifies the upload's base name and stamps it with the
// upload time so repeated uploads never collide.
func mediaFileName(uploaded string) string {
	base := filepath.Base(filepath.FromSlash(uploaded))
	ext := strings.ToLower(filepath.Ext(base))
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if s, err := slug.Normalize(name); err == nil && s != "" {
		name = s
	} else {
		name = "upload"
	}
	return fmt.Sprintf("%s-%d%s", name, now().Unix(), ext)
}

func SaveMediaFile(header *multipart.FileHeader, collectionName string) (*MediaFile, error) {
	mediaFolder, publicFolder, err := GetMediaConfig(collectionName)
	if err != nil {
		return nil, err
	}

	filename := mediaFileName(header.Filename)
	fullMediaPath := SafeJoin(config.RepoPath, mediaFolder, filename)
	if fullMediaPath == "" {
		return nil, ErrInvalidPath
	}

	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := writeAtomic(fullMediaPath, src); err != nil {
		return nil, err
	}
	log().Info("media saved", zap.String("file", filename), zap.Int64("bytes", header.Size))

	usagePath := mediaUsagePath(publicFolder, filename)
	return &MediaFile{
		Name: filename,
		Path: usagePath,
		Size: header.Size,
		URL:  mediaPreviewURL(mediaFolder, filename),
	}, nil
}

func DeleteMediaFile(filename, collectionName string) error {
	mediaFolder, _, err := GetMediaConfig(collectionName)
	if err != nil {
		return err
	}

	if filepath.Base(filename) != filename {
		return ErrInvalidPath
	}
	fullMediaPath := SafeJoin(config.RepoPath, mediaFolder, filename)
	if fullMediaPath == "" {
		return ErrInvalidPath
	}

	if err := os.Remove(fullMediaPath); err != nil {
		return err
	}
	log().Info("media deleted", zap.String("file", filename))
	return nil
}
