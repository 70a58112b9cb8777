package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// InfoResult contains the result of the info tool.
type InfoResult struct {
	Version    string   `json:"version"`
	Session    string   `json:"session"`
	AuthStatus string   `json:"auth_status"`
	Tools      []string `json:"tools"`
}

func registerInfoTool(server *mcp.Server, r *Registry) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "info",
		Description: "List available tools and report this session's authentication status.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, *InfoResult, error) {
		authStatus := "not connected"
		authed, err := r.flow.Authenticated(ctx, r.sessionID)
		switch {
		case err != nil:
			authStatus = "unavailable"
		case authed:
			authStatus = "connected"
		}

		tools := []string{"info", "get_screenshot", "get_design_context", "get_metadata", "generate_diagram"}

		var sb strings.Builder
		sb.WriteString("figma-bridge\n")
		sb.WriteString("============\n\n")
		fmt.Fprintf(&sb, "Session: %s\n", r.sessionID)
		fmt.Fprintf(&sb, "Figma account: %s\n\n", authStatus)
		sb.WriteString("Tools\n-----\n")
		sb.WriteString("get_screenshot     render a node as PNG (needs Figma auth)\n")
		sb.WriteString("get_design_context fetch a node document (needs Figma auth)\n")
		sb.WriteString("get_metadata       dump a file or subtree as XML (needs Figma auth)\n")
		sb.WriteString("generate_diagram   validate Mermaid source for inline rendering (no auth)\n")

		result := &InfoResult{
			Version:    "0.1.0",
			Session:    r.sessionID,
			AuthStatus: authStatus,
			Tools:      tools,
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, result, nil
	})
}
