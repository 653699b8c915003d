package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"blog-cms/pkg/config"
	"blog-cms/pkg/frontmatter"
	"blog-cms/pkg/models"

	"github.com/goliatone/go-slug"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed layouts/*.html
var layoutFS embed.FS

var now = time.Now

type tagLink struct {
	Name string
	URL  string
}

type tagPage struct {
	Name  string
	Posts []sitePost
}

type sitePost struct {
	models.Post
	URL      string
	HTML     template.HTML
	Excerpt  string
	TagLinks []tagLink
}

type pageData struct {
	SiteTitle string
	Title     string
	Year      int
	Post      *sitePost
	Posts     []sitePost
	Tag       string
}

// BuildSite renders every published post, the index, and one page per tag
// into config.PublicPath, replacing its previous contents. It returns a
// human readable build log.
func BuildSite(ctx context.Context) (string, error) {
	var logBuf bytes.Buffer
	start := now()

	if err := checkPublicPath(); err != nil {
		return "", err
	}

	tmpl, err := template.New("site").Funcs(template.FuncMap{
		"url": siteURL,
	}).ParseFS(layoutFS, "layouts/*.html")
	if err != nil {
		return "", fmt.Errorf("parse layouts: %w", err)
	}

	posts, skipped, err := loadSitePosts(ctx)
	if err != nil {
		return logBuf.String(), err
	}

	if err := os.RemoveAll(config.PublicPath); err != nil {
		return logBuf.String(), fmt.Errorf("clean %s: %w", config.PublicPath, err)
	}

	base := pageData{SiteTitle: config.SiteTitle, Year: now().Year()}
	// Keyed by tag URL so spellings sharing a page are merged.
	tags := map[string]*tagPage{}

	for i := range posts {
		if err := ctx.Err(); err != nil {
			return logBuf.String(), err
		}
		p := &posts[i]

		data := base
		data.Title = p.Title
		data.Post = p
		if err := writePage(tmpl, "post.html", p.URL, data); err != nil {
			return logBuf.String(), err
		}
		fmt.Fprintf(&logBuf, "post  %s -> %s\n", p.Path, p.URL)

		for _, t := range p.TagLinks {
			tp := tags[t.URL]
			if tp == nil {
				tp = &tagPage{Name: t.Name}
				tags[t.URL] = tp
			}
			tp.Posts = append(tp.Posts, *p)
		}
	}

	index := base
	index.Posts = posts
	if err := writePage(tmpl, "list.html", "/", index); err != nil {
		return logBuf.String(), err
	}
	fmt.Fprintf(&logBuf, "index / (%d posts)\n", len(posts))

	tagURLs := make([]string, 0, len(tags))
	for url := range tags {
		tagURLs = append(tagURLs, url)
	}
	sort.Strings(tagURLs)

	for _, url := range tagURLs {
		tp := tags[url]
		page := base
		page.Title = tp.Name
		page.Tag = tp.Name
		page.Posts = tp.Posts
		if err := writePage(tmpl, "list.html", url, page); err != nil {
			return logBuf.String(), err
		}
		fmt.Fprintf(&logBuf, "tag   %s -> %s\n", tp.Name, url)
	}

	fmt.Fprintf(&logBuf, "built %d posts, %d tags, skipped %d drafts in %s\n",
		len(posts), len(tagURLs), skipped, now().Sub(start).Round(time.Millisecond))

	log().Info("site built",
		zap.Int("posts", len(posts)),
		zap.Int("tags", len(tagURLs)),
		zap.Int("drafts", skipped),
		zap.String("dest", config.PublicPath),
	)
	return logBuf.String(), nil
}

// checkPublicPath refuses destinations that would wipe the repository or
// its posts.
func checkPublicPath() error {
	public, err := filepath.Abs(config.PublicPath)
	if err != nil {
		return err
	}
	repo, err := filepath.Abs(config.RepoPath)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(public, repo)
	if err == nil && (rel == "." || filepath.IsLocal(rel)) {
		return fmt.Errorf("public path %s contains the repository", config.PublicPath)
	}

	posts, err := filepath.Abs(config.PostsPath())
	if err != nil {
		return err
	}
	rel, err = filepath.Rel(posts, public)
	if err == nil && (rel == "." || filepath.IsLocal(rel)) {
		return fmt.Errorf("public path %s is inside the posts directory", config.PublicPath)
	}
	return nil
}

func loadSitePosts(ctx context.Context) ([]sitePost, int, error) {
	postsDir := config.PostsPath()
	files, err := listPostFiles(postsDir)
	if err != nil {
		return nil, 0, err
	}

	var (
		mu      sync.Mutex
		posts   []sitePost
		skipped int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(config.CacheConcurrency)

	for _, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			relPath, _ := filepath.Rel(postsDir, file)
			relPath = filepath.ToSlash(relPath)

			content, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			doc, err := frontmatter.Parse(content)
			if err != nil {
				return fmt.Errorf("%s: %w", relPath, err)
			}

			post := postFromDocument(relPath, doc)
			if post.Draft {
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}

			sp, err := buildSitePost(post, doc)
			if err != nil {
				return fmt.Errorf("%s: %w", relPath, err)
			}

			mu.Lock()
			posts = append(posts, sp)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return postLess(posts[i].Post, posts[j].Post)
	})
	return posts, skipped, nil
}

func buildSitePost(post models.Post, doc frontmatter.Document) (sitePost, error) {
	// Jekyll passes the body of .html posts through unchanged.
	rendered := []byte(doc.Body)
	if !strings.EqualFold(path.Ext(post.Path), ".html") {
		var err error
		rendered, err = RenderMarkdown(rendered)
		if err != nil {
			return sitePost{}, err
		}
	}

	summary, err := Summarize(rendered)
	if err != nil {
		return sitePost{}, err
	}

	sp := sitePost{
		Post:    post,
		URL:     permalink(post, doc),
		HTML:    template.HTML(rendered),
		Excerpt: post.Summary,
	}
	if sp.Excerpt == "" {
		sp.Excerpt = summary.Text
	}
	if sp.Image == "" {
		sp.Image = summary.Image
	}
	seen := make(map[string]bool, len(post.Tags))
	for _, t := range post.Tags {
		url := tagURL(t)
		if seen[url] {
			continue
		}
		seen[url] = true
		sp.TagLinks = append(sp.TagLinks, tagLink{Name: t, URL: url})
	}
	return sp, nil
}

// permalink follows Jekyll's date style: /:year/:month/:day/:slug/
func permalink(post models.Post, doc frontmatter.Document) string {
	if p := strings.TrimSpace(doc.String("permalink")); p != "" {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		return p
	}

	s := postSlug(post.Path, doc)
	if post.Date == nil {
		return "/" + s + "/"
	}
	return post.Date.Format("/2006/01/02/") + s + "/"
}

func tagURL(tag string) string {
	s, err := slug.Normalize(tag)
	if err != nil || s == "" {
		s = strings.ToLower(strings.Join(strings.Fields(tag), "-"))
	}
	return "/tags/" + s + "/"
}

// siteURL prefixes site-absolute links with the preview mount point.
func siteURL(p string) string {
	joined := path.Join("/", config.PreviewURL, p)
	if strings.HasSuffix(p, "/") && joined != "/" {
		joined += "/"
	}
	return joined
}

func writePage(tmpl *template.Template, name, url string, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", url, err)
	}

	target := config.PublicPath
	if rel := strings.Trim(url, "/"); rel != "" {
		target = SafeJoin(config.PublicPath, "", rel)
		if target == "" {
			return fmt.Errorf("page %s: %w", url, ErrInvalidPath)
		}
	}
	if !strings.HasSuffix(url, ".html") {
		target = filepath.Join(target, "index.html")
	}
	return writeFileAtomic(target, buf.Bytes())
}

// CreateContent writes a new post built from the posts collection defaults.
// An empty relPath is derived from today's date and the title. It returns
// the path of the new post relative to the posts directory.
func CreateContent(relPath, title string) (string, error) {
	if strings.TrimSpace(relPath) == "" {
		s, err := slug.Normalize(title)
		if err != nil || s == "" {
			return "", fmt.Errorf("cannot derive a file name from title %q", title)
		}
		relPath = now().Format("2006-01-02") + "-" + s + ".md"
	}

	fullPath := SafeJoin(config.RepoPath, config.PostsDir, relPath)
	if fullPath == "" {
		return "", ErrInvalidPath
	}
	if _, err := os.Stat(fullPath); err == nil {
		return "", os.ErrExist
	}

	overrides := map[string]any{
		"date": now().Format("2006-01-02 15:04:05 -0700"),
	}
	if title != "" {
		overrides["title"] = title
	}

	content, err := GenerateContentFromCollection(*PostsCollection(), overrides)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(fullPath, content); err != nil {
		return "", err
	}

	InvalidateCache()
	log().Info("post created", zap.String("path", relPath))
	return filepath.ToSlash(relPath), nil
}
