package main

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog-cms/pkg/config"
	"blog-cms/pkg/handlers"
	"blog-cms/pkg/logging"
	"blog-cms/pkg/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

func main() {
	envErr := config.Init()

	logger, err := logging.New(config.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Debug("no .env loaded", zap.Error(envErr))
	}
	if config.SessionSecret == "" {
		logger.Fatal("SESSION_SECRET is required")
	}
	services.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := services.WatchContent(ctx); err != nil {
		logger.Warn("content watcher disabled", zap.Error(err))
	}

	r := gin.New()
	r.Use(logging.Middleware(logger), gin.Recovery())

	// Session Setup
	store := cookie.NewStore([]byte(config.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 7 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("blogcms", store))

	// Templates & built site preview
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))
	r.Static(config.PreviewURL, config.PublicPath)

	// --- Auth Routes ---
	r.GET("/login", handlers.LoginPage)
	r.GET("/login/github", handlers.GithubLogin)
	r.GET("/auth/callback", handlers.AuthCallback)
	r.GET("/logout", handlers.Logout)

	// --- Main App (Authorized) ---
	authorized := r.Group("/")
	authorized.Use(handlers.AuthRequired)
	{
		authorized.GET("/", func(c *gin.Context) {
			c.HTML(http.StatusOK, "index.html", gin.H{
				"SiteTitle":  config.SiteTitle,
				"PreviewURL": config.PreviewURL,
			})
		})

		api := authorized.Group("/api")
		{
			api.GET("/posts", handlers.ListPosts)
			api.GET("/post", handlers.GetPost)
			api.POST("/post", handlers.SavePost)
			api.POST("/create", handlers.CreatePost)
			api.POST("/diff", handlers.GetDiff)
			api.GET("/config", handlers.GetConfig)
			api.POST("/parse", handlers.ParsePreview)
			api.POST("/render", handlers.RenderPreview)
			api.POST("/build", handlers.HandleBuild)
			api.POST("/sync", handlers.HandleSync)
			api.POST("/publish", handlers.HandlePublish)

			api.GET("/media", handlers.ListMedia)
			api.POST("/media", handlers.UploadMedia)
			api.DELETE("/media", handlers.DeleteMedia)
			api.GET("/media/raw", handlers.ServeMediaRaw)
		}
	}

	srv := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", config.ListenAddr), zap.String("repo", config.RepoPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
