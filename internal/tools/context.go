package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// codePlaceholder fills the result's code field. Real dev-mode code
// generation is not implemented; consumers should work from the node
// document instead.
const codePlaceholder = "// Code generation is not available; this is a placeholder, not dev-mode output.\n// Use the node document in this result to derive implementation details."

// DesignContextArgs contains the arguments for the get_design_context tool.
type DesignContextArgs struct {
	FileKey string `json:"file_key,omitempty" jsonschema:"Figma file key (optional when url is given)"`
	NodeID  string `json:"node_id,omitempty" jsonschema:"Node ID such as 1:2 (optional when url is given)"`
	URL     string `json:"url,omitempty" jsonschema:"Figma design link to resolve file key and node ID from"`
}

// DesignContextResult carries the raw node document and a placeholder code
// field.
type DesignContextResult struct {
	FileKey string          `json:"file_key"`
	NodeID  string          `json:"node_id"`
	Name    string          `json:"name"`
	Node    json.RawMessage `json:"node"`
	Code    string          `json:"code"`
}

func registerDesignContextTool(server *mcp.Server, r *Registry) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_design_context",
		Description: "Fetch the document for a Figma node to ground implementation work. Requires a connected Figma account.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DesignContextArgs) (*mcp.CallToolResult, *DesignContextResult, error) {
		if needsAuth, err := r.authorize(ctx); err != nil {
			return nil, nil, err
		} else if needsAuth != nil {
			return needsAuth, nil, nil
		}

		fileKey, nodeID := resolveIdentifiers(args.FileKey, args.NodeID, args.URL)
		if fileKey == "" || nodeID == "" {
			return nil, nil, fmt.Errorf("file_key and node_id are required, directly or via url")
		}

		nodes, err := r.client.GetFileNodes(ctx, fileKey, []string{nodeID})
		if err != nil {
			return nil, nil, fmt.Errorf("fetching node %s: %w", nodeID, err)
		}

		wrapper := nodes.Nodes[nodeID]
		if wrapper == nil || wrapper.Document == nil {
			return nil, nil, fmt.Errorf("node %s not found in file %s", nodeID, fileKey)
		}
		doc := wrapper.Document

		var sb strings.Builder
		fmt.Fprintf(&sb, "Design context for %q (%s) in file %q\n", doc.Name, doc.Type, nodes.Name)
		if doc.AbsoluteBoundingBox != nil {
			bb := doc.AbsoluteBoundingBox
			fmt.Fprintf(&sb, "Bounds: %gx%g at (%g, %g)\n", bb.Width, bb.Height, bb.X, bb.Y)
		}
		fmt.Fprintf(&sb, "Direct children: %d\n", len(doc.Children))
		sb.WriteString("The full node document is included as structured content.")

		result := &DesignContextResult{
			FileKey: fileKey,
			NodeID:  nodeID,
			Name:    doc.Name,
			Node:    doc.Raw,
			Code:    codePlaceholder,
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, result, nil
	})
}
