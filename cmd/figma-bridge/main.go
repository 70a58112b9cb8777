// figma-bridge is an MCP server that connects an AI assistant to the
// Figma API and a Mermaid diagram widget, with per-session OAuth.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"

	"github.com/standardbeagle/figma-bridge/internal/auth"
	"github.com/standardbeagle/figma-bridge/internal/config"
	"github.com/standardbeagle/figma-bridge/internal/server"
	"github.com/standardbeagle/figma-bridge/internal/store"
	"github.com/standardbeagle/figma-bridge/internal/store/memory"
	redisstore "github.com/standardbeagle/figma-bridge/internal/store/redis"
)

func main() {
	transport := flag.String("transport", "http", "Transport to serve on: http or stdio")
	showVersion := flag.Bool("version", false, "Show version and exit")
	showHelp := flag.Bool("help", false, "Show help and exit")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`%s v%s - MCP bridge to the Figma API

Usage: %s [options]

Environment Variables:
  FIGMA_CLIENT_ID      OAuth client ID for the browser flow
  FIGMA_CLIENT_SECRET  OAuth client secret
  FIGMA_REDIRECT_URI   OAuth callback URL (default: http://localhost:3333/oauth/callback)
  FIGMA_ACCESS_TOKEN   Personal access token; bypasses OAuth entirely
  FIGMA_BRIDGE_ADDR    HTTP listen address (default: :3333)
  REDIS_ADDR           Redis address for credential storage (default: in-memory)
  LOG_LEVEL            debug, info, warn, or error (default: info)

Options:
`, server.Name, server.Version, os.Args[0])
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("%s v%s\n", server.Name, server.Version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// On stdio the protocol owns stdout, so logs go to stderr either way.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	if err := run(context.Background(), cfg, *transport, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, transport string, log *slog.Logger) error {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.OAuth() == nil && cfg.AccessToken == "" {
		log.Warn("no FIGMA_CLIENT_ID or FIGMA_ACCESS_TOKEN set; Figma tools will not authenticate")
	}

	opts := []auth.Option{auth.WithLogger(log)}
	if cfg.AccessToken != "" {
		opts = append(opts, auth.WithStaticToken(cfg.AccessToken))
	}
	flow := auth.New(cfg.OAuth(), st, opts...)

	srv := server.New(flow, log)

	switch transport {
	case "stdio":
		// The OAuth redirect still needs an HTTP endpoint to land on.
		if cfg.OAuth() != nil {
			go func() {
				log.Info("serving OAuth callback", "addr", cfg.Addr)
				if err := http.ListenAndServe(cfg.Addr, srv.Handler()); err != nil {
					log.Error("callback listener exited", "error", err)
				}
			}()
		}
		mcpServer, sessionID := srv.NewMCPServer()
		log.Info("serving on stdio", "session", sessionID)
		return mcpServer.Run(ctx, &mcp.StdioTransport{})
	case "http":
		log.Info("serving HTTP", "addr", cfg.Addr)
		return http.ListenAndServe(cfg.Addr, srv.Handler())
	default:
		return fmt.Errorf("unknown transport %q (want http or stdio)", transport)
	}
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.RedisAddr == "" {
		log.Info("using in-memory credential store")
		return memory.New(memory.DefaultMaxItems)
	}
	log.Info("using redis credential store", "addr", cfg.RedisAddr)
	return redisstore.New(ctx, redisstore.Config{
		Client: redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
	})
}
