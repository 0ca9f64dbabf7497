// Command actionstrip keeps social-network pages free of like, comment,
// share and follow controls.
//
// Usage:
//
//	actionstrip -config actionstrip.yaml         # sanitize configured pages, optional HTTP API
//	actionstrip -url https://www.facebook.com/x  # sanitize a single page
//	actionstrip -strip saved.html -inert         # strip a saved page to stdout
//	actionstrip -check -selectors fb.yaml        # validate a selector list
//	actionstrip -import-set fb -selectors fb.yaml -config actionstrip.yaml
//	actionstrip -mcp                             # MCP server on stdio
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/osintools/actionstrip"
	"github.com/hazyhaar/osintools/actionstrip/selectors"
	"github.com/hazyhaar/osintools/shield"
)

const version = "0.3.0"

type options struct {
	configPath    string
	singleURL     string
	stripPath     string
	inert         bool
	selectorsPath string
	check         bool
	importSet     string
	mcpStdio      bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to actionstrip.yaml config file")
	flag.StringVar(&o.singleURL, "url", "", "sanitize a single URL")
	flag.StringVar(&o.stripPath, "strip", "", "strip a saved HTML file (- for stdin) and write it to stdout")
	flag.BoolVar(&o.inert, "inert", false, "with -strip: also drop scripts and event handlers")
	flag.StringVar(&o.selectorsPath, "selectors", "", "YAML selector list replacing the configured one")
	flag.BoolVar(&o.check, "check", false, "validate the selector list and exit")
	flag.StringVar(&o.importSet, "import-set", "", "store the -selectors list under this name in selectors_db and exit")
	flag.BoolVar(&o.mcpStdio, "mcp", false, "serve MCP tools on stdin/stdout")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("actionstrip: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg := actionstrip.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = actionstrip.LoadConfigFile(o.configPath); err != nil {
			return err
		}
	}
	if o.selectorsPath != "" {
		list, err := selectors.LoadFile(o.selectorsPath)
		if err != nil {
			return err
		}
		cfg.Selectors = list
	}

	switch {
	case o.importSet != "":
		return runImport(ctx, logger, cfg, o.importSet)
	case o.check:
		return runCheck(ctx, logger, cfg)
	case o.stripPath != "":
		return runStrip(ctx, logger, cfg, o.stripPath, o.inert)
	case o.mcpStdio:
		return runMCP(ctx, logger, cfg)
	case o.singleURL != "":
		cfg.Pages = []actionstrip.PageConfig{{ID: "single", URL: o.singleURL}}
		return runLive(ctx, logger, cfg)
	case o.configPath != "":
		return runLive(ctx, logger, cfg)
	}

	fmt.Fprintln(os.Stderr, "usage: actionstrip -config <file> | -url <url> | -strip <file> | -check | -mcp")
	os.Exit(2)
	return nil
}

func runImport(ctx context.Context, logger *slog.Logger, cfg *actionstrip.Config, name string) error {
	if cfg.SelectorsDB == "" {
		return errors.New("-import-set needs selectors_db in the config file")
	}
	list := selectors.Normalize(cfg.Selectors)
	if len(list) == 0 {
		return errors.New("-import-set needs a -selectors file")
	}
	if err := actionstrip.ImportSelectorSet(ctx, cfg.SelectorsDB, name, list); err != nil {
		return err
	}
	logger.Info("actionstrip: selector set imported", "db", cfg.SelectorsDB, "set", name, "count", len(list))
	return nil
}

func runCheck(ctx context.Context, logger *slog.Logger, cfg *actionstrip.Config) error {
	list, err := actionstrip.ResolveSelectors(ctx, cfg, logger)
	if err != nil {
		return err
	}
	bad := list.Validate()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(map[string]any{"count": len(list), "invalid": bad})
	if len(bad) > 0 {
		return fmt.Errorf("%d of %d selectors do not compile", len(bad), len(list))
	}
	return nil
}

func runStrip(ctx context.Context, logger *slog.Logger, cfg *actionstrip.Config, path string, inert bool) error {
	list, err := actionstrip.ResolveSelectors(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	res, err := actionstrip.StripHTML(ctx, in, actionstrip.StripOptions{
		Selectors: list,
		Inert:     inert,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if _, err := io.WriteString(os.Stdout, res.HTML); err != nil {
		return err
	}
	logger.Info("actionstrip: stripped",
		"source", path,
		"removed", res.Report.Removed,
		"failed", res.Report.FailedCount,
		"duration", res.Report.Duration)
	return nil
}

func runMCP(ctx context.Context, logger *slog.Logger, cfg *actionstrip.Config) error {
	s, err := newStripper(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer s.Stop()
	if err := s.Start(ctx); err != nil {
		return err
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: "actionstrip", Version: version}, nil)
	s.RegisterMCP(srv)
	logger.Info("actionstrip: MCP server on stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runLive(ctx context.Context, logger *slog.Logger, cfg *actionstrip.Config) error {
	s, err := newStripper(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer s.Stop()

	if err := s.Start(ctx); err != nil {
		return err
	}

	if cfg.HTTP.Addr != "" {
		r := chi.NewRouter()
		for _, mw := range shield.DefaultAPIStack(10 << 20) {
			r.Use(mw)
		}
		s.RegisterHTTP(r)

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			logger.Info("actionstrip: http listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("actionstrip: http server", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("actionstrip: http shutdown", "error", err)
			}
		}()
	}

	logger.Info("actionstrip: running", "pages", len(s.Pages()))
	<-ctx.Done()
	logger.Info("actionstrip: shutting down")
	return nil
}

func newStripper(ctx context.Context, logger *slog.Logger, cfg *actionstrip.Config) (*actionstrip.Stripper, error) {
	list, err := actionstrip.ResolveSelectors(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return actionstrip.New(cfg, list, logger)
}
