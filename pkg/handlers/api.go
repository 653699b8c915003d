package handlers

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"

	"blog-cms/pkg/config"
	"blog-cms/pkg/frontmatter"
	"blog-cms/pkg/models"
	"blog-cms/pkg/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// maxPreviewBytes bounds request bodies of the parse and render previews.
const maxPreviewBytes = 4 << 20

func accessToken(c *gin.Context) string {
	token, _ := sessions.Default(c).Get(sessionTokenKey).(string)
	return token
}

func HandleBuild(c *gin.Context) {
	log, err := services.BuildSite(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "log": log, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "log": log})
}

func HandleSync(c *gin.Context) {
	log, err := services.SyncRepo(c.Request.Context(), accessToken(c))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "log": log})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "log": log})
}

func HandlePublish(c *gin.Context) {
	log, err := services.PublishRepo(c.Request.Context(), accessToken(c))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "log": log})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "log": log})
}

func ListPosts(c *gin.Context) {
	posts, err := services.GetPostsCache()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	c.JSON(http.StatusOK, posts)
}

func GetPost(c *gin.Context) {
	post, err := services.ReadPost(c.Query("path"))
	switch {
	case errors.Is(err, services.ErrInvalidPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
		return
	case errors.Is(err, fs.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read post"})
		return
	}
	c.JSON(http.StatusOK, post)
}

func SavePost(c *gin.Context) {
	var post models.Post
	if err := c.ShouldBindJSON(&post); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := services.SavePost(&post); err != nil {
		if errors.Is(err, services.ErrInvalidPath) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Save failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func CreatePost(c *gin.Context) {
	var req struct {
		Path  string `json:"path"`
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.Path == "" && req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path or title is required"})
		return
	}

	relPath, err := services.CreateContent(req.Path, req.Title)
	switch {
	case errors.Is(err, fs.ErrExist):
		c.JSON(http.StatusConflict, gin.H{"error": "Post already exists"})
		return
	case errors.Is(err, services.ErrInvalidPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
		return
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "created", "path": relPath})
}

// GetDiff compares the editor state with the saved file. Both sides are
// normalized first so a pure reformatting is reported as "none".
func GetDiff(c *gin.Context) {
	var post models.Post
	if err := c.ShouldBindJSON(&post); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	fullPath := services.SafeJoin(config.RepoPath, config.PostsDir, post.Path)
	if fullPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
		return
	}

	currentContent, err := os.ReadFile(fullPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read post"})
		return
	}

	var newContent []byte
	if post.FrontMatter != nil {
		newContent, err = services.ConstructFileContent(post.FrontMatter, post.Body, post.Format)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Construction failed: " + err.Error()})
			return
		}
	} else {
		newContent = []byte(post.Content)
	}

	collection := services.PostsCollection()
	if len(currentContent) > 0 {
		if services.SameCanonicalContent(currentContent, newContent, collection) {
			newContent = currentContent
		} else {
			currentContent = services.NormalizeContent(currentContent, collection)
			newContent = services.NormalizeContent(newContent, collection)
		}
	}

	f1, err := writeTemp("diff_old_*", currentContent)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Diff failed"})
		return
	}
	defer os.Remove(f1)
	f2, err := writeTemp("diff_new_*", newContent)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Diff failed"})
		return
	}
	defer os.Remove(f2)

	relPath := path.Join(config.PostsDir, post.Path)
	diffStr, diffType := services.Diff(c.Request.Context(), f1, f2, relPath)
	c.JSON(http.StatusOK, gin.H{"diff": diffStr, "type": diffType})
}

func writeTemp(pattern string, content []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func GetConfig(c *gin.Context) {
	cfg, err := services.GetConfig()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// readPreviewBody reads the request body, answering 413 for documents over
// maxPreviewBytes rather than handling a truncated copy.
func readPreviewBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPreviewBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Document too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return nil, false
	}
	return raw, true
}

// ParsePreview splits a raw document into its header metadata and body.
// A malformed header is reported with its line number as 422.
func ParsePreview(c *gin.Context) {
	raw, ok := readPreviewBody(c)
	if !ok {
		return
	}

	doc, err := frontmatter.Parse(raw)
	if err != nil {
		var malformed *frontmatter.MalformedHeaderError
		if errors.As(err, &malformed) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  err.Error(),
				"line":   malformed.Line,
				"reason": malformed.Reason,
			})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// RenderPreview renders a raw document's body to HTML, along with the
// excerpt and lead image the site build would derive from it.
func RenderPreview(c *gin.Context) {
	raw, ok := readPreviewBody(c)
	if !ok {
		return
	}

	doc, err := frontmatter.Parse(raw)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	html, err := services.RenderMarkdown([]byte(doc.Body))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	summary, err := services.Summarize(html)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"html":     string(html),
		"summary":  summary,
		"metadata": doc.Metadata,
	})
}
