// Package tools implements the MCP tools for figma-bridge.
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/figma-bridge/internal/auth"
	"github.com/standardbeagle/figma-bridge/internal/figma"
)

// Registry is the per-session tool dispatcher: it holds the session ID, the
// OAuth flow, and the Figma client acting on the session's behalf.
type Registry struct {
	sessionID string
	flow      *auth.Flow
	client    *figma.Client
	log       *slog.Logger
}

// NewRegistry creates a registry bound to one session.
func NewRegistry(sessionID string, flow *auth.Flow, client *figma.Client, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		sessionID: sessionID,
		flow:      flow,
		client:    client,
		log:       log.With("session", sessionID),
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(server *mcp.Server) {
	// Discovery
	registerInfoTool(server, r)

	// OAuth-gated design tools
	registerScreenshotTool(server, r)
	registerDesignContextTool(server, r)
	registerMetadataTool(server, r)

	// Diagram tool, no auth required
	registerDiagramTool(server, r)
}

// SessionID returns the session this registry serves.
func (r *Registry) SessionID() string {
	return r.sessionID
}

// Client returns the Figma client.
func (r *Registry) Client() *figma.Client {
	return r.client
}

// authorize runs the capability check shared by all OAuth-gated tools.
// When the session has no credentials it returns a successful result whose
// text carries the authorization URL, so the assistant can relay the link
// instead of reporting a failure.
func (r *Registry) authorize(ctx context.Context) (*mcp.CallToolResult, error) {
	access, err := r.flow.Authorize(ctx, r.sessionID)
	if err != nil {
		return nil, fmt.Errorf("checking authorization: %w", err)
	}
	if access.Authorized() {
		return nil, nil
	}

	r.log.Info("tool call needs authentication, returning authorization link")
	text := fmt.Sprintf(
		"Authentication required. Open this link in a browser to connect your Figma account, then retry the call:\n\n%s",
		access.AuthURL,
	)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil
}

// resolveIdentifiers merges explicit file_key/node_id arguments with a
// Figma deep link. Explicit arguments win; node IDs are normalized to the
// API's ":" separator either way.
func resolveIdentifiers(fileKey, nodeID, rawURL string) (string, string) {
	if rawURL != "" {
		if link, ok := figma.ResolveLink(rawURL); ok {
			if fileKey == "" {
				fileKey = link.FileKey
			}
			if nodeID == "" {
				nodeID = link.NodeID
			}
		} else if fk, ok := figma.ResolveFileKey(rawURL); ok && fileKey == "" {
			// Link had no node-id but still names a file.
			fileKey = fk
		}
	}
	if nodeID != "" {
		nodeID = figma.NormalizeNodeID(nodeID)
	}
	return fileKey, nodeID
}
