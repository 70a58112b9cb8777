package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/figma-bridge/internal/figma"
)

// MetadataArgs contains the arguments for the get_metadata tool.
type MetadataArgs struct {
	FileKey string `json:"file_key,omitempty" jsonschema:"Figma file key (optional when url is given)"`
	NodeID  string `json:"node_id,omitempty" jsonschema:"Restrict the dump to this node's subtree"`
	URL     string `json:"url,omitempty" jsonschema:"Figma design link to resolve file key and node ID from"`
}

// MetadataResult carries the XML tree dump.
type MetadataResult struct {
	FileKey string `json:"file_key"`
	NodeID  string `json:"node_id,omitempty"`
	Name    string `json:"name"`
	XML     string `json:"xml"`
}

func registerMetadataTool(server *mcp.Server, r *Registry) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_metadata",
		Description: "Dump the node tree of a Figma file or subtree as XML with IDs, names, types, and bounds. Requires a connected Figma account.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args MetadataArgs) (*mcp.CallToolResult, *MetadataResult, error) {
		if needsAuth, err := r.authorize(ctx); err != nil {
			return nil, nil, err
		} else if needsAuth != nil {
			return needsAuth, nil, nil
		}

		fileKey, nodeID := resolveIdentifiers(args.FileKey, args.NodeID, args.URL)
		if fileKey == "" {
			return nil, nil, fmt.Errorf("file_key is required, directly or via url")
		}

		var (
			root *figma.Node
			name string
		)
		if nodeID != "" {
			nodes, err := r.client.GetFileNodes(ctx, fileKey, []string{nodeID})
			if err != nil {
				return nil, nil, fmt.Errorf("fetching node %s: %w", nodeID, err)
			}
			wrapper := nodes.Nodes[nodeID]
			if wrapper == nil || wrapper.Document == nil {
				return nil, nil, fmt.Errorf("node %s not found in file %s", nodeID, fileKey)
			}
			root = wrapper.Document
			name = nodes.Name
		} else {
			file, err := r.client.GetFile(ctx, fileKey, nil)
			if err != nil {
				return nil, nil, fmt.Errorf("fetching file %s: %w", fileKey, err)
			}
			if file.Document == nil {
				return nil, nil, fmt.Errorf("file %s has no document", fileKey)
			}
			root = file.Document
			name = file.Name
		}

		xml := serializeTree(fileKey, name, root)

		result := &MetadataResult{
			FileKey: fileKey,
			NodeID:  nodeID,
			Name:    name,
			XML:     xml,
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: xml},
			},
		}, result, nil
	})
}

// serializeTree flattens a node tree into an XML string: a <figma> root
// with one <node> element per node, children nested in document order.
func serializeTree(fileKey, name string, root *figma.Node) string {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(&sb, "<figma fileKey=\"%s\" name=\"%s\">\n", xmlEscape(fileKey), xmlEscape(name))
	writeNode(&sb, root, 1)
	sb.WriteString("</figma>")
	return sb.String()
}

// writeNode emits one node element, indented two spaces per depth. Bounds
// attributes appear only when the node has a bounding box; leaves are
// self-closing.
func writeNode(sb *strings.Builder, n *figma.Node, depth int) {
	indent := strings.Repeat("  ", depth)

	attrs := fmt.Sprintf("id=\"%s\" name=\"%s\" type=\"%s\"",
		xmlEscape(n.ID), xmlEscape(n.Name), xmlEscape(n.Type))
	if bb := n.AbsoluteBoundingBox; bb != nil {
		attrs += fmt.Sprintf(" x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\"",
			bb.X, bb.Y, bb.Width, bb.Height)
	}

	if len(n.Children) == 0 {
		fmt.Fprintf(sb, "%s<node %s/>\n", indent, attrs)
		return
	}

	fmt.Fprintf(sb, "%s<node %s>\n", indent, attrs)
	for _, child := range n.Children {
		writeNode(sb, child, depth+1)
	}
	fmt.Fprintf(sb, "%s</node>\n", indent)
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
)

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}
