package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

var (
	RepoPath   = "./repo"
	PublicPath = "./repo/_site"
	PreviewURL = "/preview/"
	ListenAddr = ":8080"

	// Content layout inside the blog repository
	PostsDir      = "_posts"
	CMSConfigPath = "admin/config.yml"
	SiteTitle     = "Blog"

	// Logging
	LogLevel = "info"

	// Cache settings
	CacheConcurrency  = 20
	FileReadHeadLimit = int64(4096)

	// Media settings
	StaticMediaDir = "assets/images"

	// Git settings
	GitUserEmail = "bot@blog-cms.local"
	GitUserName  = "Blog CMS Bot"
	GitBranch    = "main"
	GitRemote    = "origin"

	SessionSecret = ""
)

var OauthConf *oauth2.Config

// Init loads .env, then environment variables, into the package settings.
// It returns the .env error so callers can log it; a missing file is normal.
func Init() error {
	envErr := godotenv.Load()

	// Helper to get env with default
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	appURL := GetAppURL()
	redirectURL := getEnv("GITHUB_REDIRECT_URL", appURL+"/auth/callback")

	RepoPath = getEnv("REPO_PATH", "./repo")
	PublicPath = getEnv("PUBLIC_PATH", filepath.Join(RepoPath, "_site"))
	PreviewURL = getEnv("PREVIEW_URL", "/preview/")
	ListenAddr = getEnv("LISTEN_ADDR", ":8080")

	PostsDir = getEnv("POSTS_DIR", "_posts")
	CMSConfigPath = getEnv("CMS_CONFIG_PATH", "admin/config.yml")
	SiteTitle = getEnv("SITE_TITLE", "Blog")

	LogLevel = getEnv("LOG_LEVEL", "info")

	StaticMediaDir = getEnv("STATIC_MEDIA_DIR", "assets/images")

	GitUserEmail = getEnv("GIT_USER_EMAIL", "bot@blog-cms.local")
	GitUserName = getEnv("GIT_USER_NAME", "Blog CMS Bot")
	GitBranch = getEnv("GIT_BRANCH", "main")
	GitRemote = getEnv("GIT_REMOTE", "origin")

	SessionSecret = os.Getenv("SESSION_SECRET")

	if cc := os.Getenv("CACHE_CONCURRENCY"); cc != "" {
		if val, err := strconv.Atoi(cc); err == nil && val > 0 {
			CacheConcurrency = val
		}
	}
	if hl := os.Getenv("FILE_READ_HEAD_LIMIT"); hl != "" {
		if val, err := strconv.ParseInt(hl, 10, 64); err == nil && val > 0 {
			FileReadHeadLimit = val
		}
	}

	OauthConf = &oauth2.Config{
		ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		Scopes:       []string{"repo"},
		Endpoint:     github.Endpoint,
		RedirectURL:  redirectURL,
	}

	if envErr != nil {
		return fmt.Errorf("load .env: %w", envErr)
	}
	return nil
}

func GetAppURL() string {
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}
	return appURL
}

// PostsPath is the absolute location of the posts directory.
func PostsPath() string {
	return filepath.Join(RepoPath, PostsDir)
}
