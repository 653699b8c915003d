package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"blog-cms/pkg/config"
	"blog-cms/pkg/logging"
	"blog-cms/pkg/services"

	flag "github.com/spf13/pflag"
)

func buildCmd() *command {
	flags := flag.NewFlagSet("build", flag.ContinueOnError)
	repo := flags.StringP("repo", "r", ".", "blog checkout")
	out := flags.StringP("out", "o", "", "output directory (default <repo>/_site)")
	postsDir := flags.String("posts-dir", config.PostsDir, "posts directory inside the checkout")
	title := flags.String("title", config.SiteTitle, "site title")
	baseURL := flags.String("base-url", "/", "URL prefix of site links")
	level := flags.String("log-level", "warn", "log level")

	return &command{
		Flags: flags,
		Usage: "build [--repo DIR] [--out DIR]",
		Short: "Render the site into the output directory",
		Exec: func(ctx context.Context, stdout, _ io.Writer, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}

			logger, err := logging.New(*level)
			if err != nil {
				return err
			}
			defer logger.Sync()
			services.SetLogger(logger)

			config.RepoPath = *repo
			config.PublicPath = *out
			if config.PublicPath == "" {
				config.PublicPath = filepath.Join(*repo, "_site")
			}
			config.PostsDir = *postsDir
			config.SiteTitle = *title
			config.PreviewURL = *baseURL

			log, err := services.BuildSite(ctx)
			fmt.Fprint(stdout, log)
			return err
		},
	}
}
