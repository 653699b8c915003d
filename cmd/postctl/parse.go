package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"blog-cms/pkg/frontmatter"
	"blog-cms/pkg/services"

	"github.com/goccy/go-json"
	flag "github.com/spf13/pflag"
)

func parseCmd() *command {
	flags := flag.NewFlagSet("parse", flag.ContinueOnError)
	bodyOnly := flags.Bool("body", false, "print only the body")
	metaOnly := flags.Bool("metadata", false, "print only the metadata")

	return &command{
		Flags: flags,
		Usage: "parse FILE...",
		Short: "Print each file's metadata and body as JSON",
		Exec: func(_ context.Context, stdout, _ io.Writer, args []string) error {
			if len(args) == 0 {
				return errors.New("at least one file is required")
			}
			if *bodyOnly && *metaOnly {
				return errors.New("--body and --metadata are exclusive")
			}
			for _, name := range args {
				if err := parseFile(stdout, name, *bodyOnly, *metaOnly); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func parseFile(w io.Writer, name string, bodyOnly, metaOnly bool) error {
	content, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	doc, err := frontmatter.Parse(content)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if bodyOnly {
		_, err := io.WriteString(w, doc.Body)
		return err
	}

	var v any = struct {
		File string `json:"file"`
		frontmatter.Document
	}{name, doc}
	if metaOnly {
		v = doc.Metadata
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

func checkCmd() *command {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)
	quiet := flags.BoolP("quiet", "q", false, "report only malformed posts")

	return &command{
		Flags: flags,
		Usage: "check DIR",
		Short: "Report posts whose header cannot be parsed",
		Exec: func(_ context.Context, stdout, stderr io.Writer, args []string) error {
			if len(args) != 1 {
				return errors.New("exactly one directory is required")
			}
			bad, total, err := checkDir(args[0], stdout, stderr, *quiet)
			if err != nil {
				return err
			}
			if !*quiet {
				fmt.Fprintf(stdout, "%d posts, %d malformed\n", total, bad)
			}
			if bad > 0 {
				return errFailed
			}
			return nil
		},
	}
}

func checkDir(dir string, stdout, stderr io.Writer, quiet bool) (int, int, error) {
	var bad, total int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !services.IsPostFile(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		total++

		_, err = frontmatter.Parse(content)
		var mh *frontmatter.MalformedHeaderError
		switch {
		case errors.As(err, &mh):
			bad++
			if mh.Line > 0 {
				fmt.Fprintf(stderr, "%s:%d: %s\n", path, mh.Line, mh.Reason)
			} else {
				fmt.Fprintf(stderr, "%s: %s\n", path, mh.Reason)
			}
		case err != nil:
			return fmt.Errorf("%s: %w", path, err)
		case !quiet:
			fmt.Fprintf(stdout, "ok %s\n", path)
		}
		return nil
	})
	return bad, total, err
}
