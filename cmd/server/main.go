// Command server runs the Conduit API.
//
// Configuration comes from the environment and an optional .env file (see
// internal/config). With -routes the server prints its route table as
// Markdown and exits without listening.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-chi/docgen"

	"github.com/sakif/conduit/internal/config"
	"github.com/sakif/conduit/internal/server"
)

func main() {
	routes := flag.Bool("routes", false, "print the route table as Markdown and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := cfg.NewLogger()

	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *routes {
		fmt.Println(docgen.MarkdownRoutesDoc(srv.Router(), docgen.MarkdownOpts{
			ProjectPath: "github.com/sakif/conduit",
			Intro:       "Conduit API routes. Everything under /api except signup, login and tags requires a Bearer token.",
		}))
		srv.Close()
		return
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
