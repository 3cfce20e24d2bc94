// Command thumbtint re-skins a video feed, replacing thumbnails with
// avatar-colored gradients.
//
// Usage:
//
//	thumbtint -config thumbtint.yaml              # re-skin pages from YAML config
//	thumbtint -url https://www.example.com/       # quick single-page run
//	thumbtint -render feed.html -out tinted.html  # offline render of a saved page
//	thumbtint -mcp                                # MCP tools over stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/thumbtint/thumbtint"
)

// storeRetention is how long pass reports are kept in a file-backed store.
const storeRetention = 7 * 24 * time.Hour

func main() {
	configPath := flag.String("config", "", "path to thumbtint.yaml config file")
	singleURL := flag.String("url", "", "re-skin a single feed URL; with -render, the base URL of the saved page")
	renderPath := flag.String("render", "", "render a saved HTML page (- for stdin) and exit")
	outPath := flag.String("out", "", "output file for -render (default stdout)")
	addr := flag.String("addr", "", "admin HTTP listen address, loopback only (overrides admin.addr)")
	mcpStdio := flag.Bool("mcp", false, "serve MCP tools over stdio")
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

	var err error
	switch {
	case *renderPath != "":
		err = runRender(ctx, logger, *renderPath, *outPath, *singleURL)
	case *configPath != "" || *singleURL != "" || *mcpStdio:
		err = runWatch(ctx, logger, *configPath, *singleURL, *addr, *mcpStdio)
	default:
		fmt.Fprintln(os.Stderr, "usage: thumbtint -config <file> | -url <url> | -render <file> [-out <file>] | -mcp")
		os.Exit(2)
	}
	if err != nil {
		logger.Error("thumbtint: fatal", "error", err)
		os.Exit(1)
	}
}

func runRender(ctx context.Context, logger *slog.Logger, path, out, baseURL string) error {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		defer f.Close()
		in = f
	}

	html, pass, err := thumbtint.Render(ctx, in, thumbtint.RenderOptions{URL: baseURL, Logger: logger})
	if err != nil {
		return err
	}

	w := io.Writer(os.Stdout)
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := io.WriteString(w, html); err != nil {
		return fmt.Errorf("render: write: %w", err)
	}
	logger.Info("thumbtint: rendered",
		"candidates", pass.Candidates, "processed", pass.Processed,
		"skipped", pass.Skipped, "failed", pass.Failed, "duration_ms", pass.DurationMS)
	return nil
}

func runWatch(ctx context.Context, logger *slog.Logger, configPath, singleURL, addr string, mcpStdio bool) error {
	cfg := thumbtint.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = thumbtint.LoadConfigFile(configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if singleURL != "" {
		cfg.Pages = append(cfg.Pages, thumbtint.PageConfig{ID: "cli", URL: singleURL})
	}
	if addr != "" {
		cfg.Admin.Addr = addr
	}

	st, err := thumbtint.OpenStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if n, err := st.Cleanup(ctx, storeRetention); err != nil {
		logger.Warn("thumbtint: store cleanup", "error", err)
	} else if n > 0 {
		logger.Info("thumbtint: store cleanup", "removed", n)
	}

	// Stdout carries the MCP stream in -mcp mode.
	sinks := []thumbtint.Sink{st}
	if !mcpStdio {
		sinks = append(sinks, thumbtint.NewStdoutSink(nil, false))
	}
	t := thumbtint.New(cfg, logger, sinks...)
	defer t.Stop()

	if len(cfg.Pages) > 0 {
		if err := t.Start(ctx); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}

	svc := thumbtint.NewService(thumbtint.ServiceConfig{Tinter: t, Stats: st, Logger: logger})

	if cfg.Admin.Addr != "" {
		if !loopback(cfg.Admin.Addr) {
			logger.Warn("thumbtint: admin surface is unauthenticated and not bound to loopback", "addr", cfg.Admin.Addr)
		}
		srv := &http.Server{Addr: cfg.Admin.Addr, Handler: svc.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("thumbtint: admin listening", "addr", cfg.Admin.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("thumbtint: admin server", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if mcpStdio {
		return serveMCP(ctx, svc)
	}

	<-ctx.Done()
	return nil
}

func serveMCP(ctx context.Context, svc *thumbtint.Service) error {
	err := svc.NewMCPServer().Run(ctx, &mcp.StdioTransport{})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

func loopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip, err := netip.ParseAddr(host)
	return err == nil && ip.IsLoopback()
}
