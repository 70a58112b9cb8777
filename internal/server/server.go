// Package server exposes the bridge over HTTP: MCP transports, the
// OAuth callback, and a health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/figma-bridge/internal/auth"
	"github.com/standardbeagle/figma-bridge/internal/figma"
	"github.com/standardbeagle/figma-bridge/internal/tools"
)

const (
	Name    = "figma-bridge"
	Version = "0.1.0"
)

// Server wires per-session MCP servers to the shared auth flow.
type Server struct {
	flow     *auth.Flow
	sessions *sessionManager
	log      *slog.Logger

	// newClient builds the Figma API client for a session. Tests swap
	// it to point at a fake upstream.
	newClient func(sessionID string) *figma.Client
}

func New(flow *auth.Flow, log *slog.Logger) *Server {
	s := &Server{
		flow:     flow,
		sessions: newSessionManager(log),
		log:      log,
	}
	s.newClient = func(sessionID string) *figma.Client {
		return figma.NewClient(flow.TokenSource(sessionID))
	}
	return s
}

// NewMCPServer builds an MCP server bound to a fresh session identity.
func (s *Server) NewMCPServer() (*mcp.Server, string) {
	sessionID := uuid.NewString()
	registry := tools.NewRegistry(sessionID, s.flow, s.newClient(sessionID), s.log)
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    Name,
		Version: Version,
	}, nil)
	registry.RegisterTools(srv)
	registry.RegisterResources(srv)
	return srv, sessionID
}

// Handler returns the full HTTP surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/sse", mcp.NewSSEHandler(s.sseServer, nil))
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(s.mcpServer, nil))
	mux.HandleFunc("/oauth/callback", s.handleCallback)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// sseServer backs the SSE transport. The request context lives for the
// whole event stream, so its cancellation marks the end of the session.
func (s *Server) sseServer(req *http.Request) *mcp.Server {
	srv, sessionID := s.NewMCPServer()
	s.sessions.register(sessionID)
	context.AfterFunc(req.Context(), func() {
		s.sessions.release(sessionID)
	})
	return srv
}

// mcpServer backs the streamable HTTP transport. Requests there are
// short-lived, so sessions are not tracked per connection.
func (s *Server) mcpServer(req *http.Request) *mcp.Server {
	srv, _ := s.NewMCPServer()
	return srv
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if denied := q.Get("error"); denied != "" {
		s.log.Warn("authorization denied", "error", denied)
		writePage(w, fmt.Sprintf("Figma authorization failed: %s. You can close this tab and try again from your assistant.",
			html.EscapeString(denied)))
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code or state parameter", http.StatusBadRequest)
		return
	}

	if err := s.flow.CompleteAuth(r.Context(), code, state); err != nil {
		s.log.Error("completing authorization", "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, auth.ErrInvalidState) {
			status = http.StatusBadRequest
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprint(w, page("Authorization failed. The link may have expired. Return to your assistant and request a new one."))
		return
	}

	writePage(w, "Figma connected. You can close this tab and return to your assistant.")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","sessions":%d}`+"\n", s.sessions.count())
}

func writePage(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page(msg))
}

func page(msg string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body style="font-family: sans-serif; max-width: 40rem; margin: 4rem auto;">
<h2>%s</h2>
<p>%s</p>
</body>
</html>
`, Name, Name, msg)
}
