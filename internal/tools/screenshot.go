package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultScale = 2.0
	minScale     = 1.0
	maxScale     = 4.0
)

// ScreenshotArgs contains the arguments for the get_screenshot tool.
type ScreenshotArgs struct {
	FileKey string  `json:"file_key,omitempty" jsonschema:"Figma file key (optional when url is given)"`
	NodeID  string  `json:"node_id,omitempty" jsonschema:"Node ID such as 1:2 (optional when url is given)"`
	URL     string  `json:"url,omitempty" jsonschema:"Figma design link to resolve file key and node ID from"`
	Scale   float64 `json:"scale,omitempty" jsonschema:"Render scale between 1 and 4 (default 2)"`
}

// ScreenshotResult echoes the resolved identifiers and the rendered image.
type ScreenshotResult struct {
	FileKey  string  `json:"file_key"`
	NodeID   string  `json:"node_id"`
	Scale    float64 `json:"scale"`
	ImageURL string  `json:"image_url"`
}

func registerScreenshotTool(server *mcp.Server, r *Registry) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_screenshot",
		Description: "Render a PNG screenshot of a Figma node. Requires a connected Figma account.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ScreenshotArgs) (*mcp.CallToolResult, *ScreenshotResult, error) {
		if needsAuth, err := r.authorize(ctx); err != nil {
			return nil, nil, err
		} else if needsAuth != nil {
			return needsAuth, nil, nil
		}

		fileKey, nodeID := resolveIdentifiers(args.FileKey, args.NodeID, args.URL)
		if fileKey == "" || nodeID == "" {
			return nil, nil, fmt.Errorf("file_key and node_id are required, directly or via url")
		}

		scale := args.Scale
		if scale == 0 {
			scale = defaultScale
		}
		if scale < minScale || scale > maxScale {
			return nil, nil, fmt.Errorf("scale must be between %g and %g, got %g", minScale, maxScale, scale)
		}

		render, err := r.client.RenderImages(ctx, fileKey, []string{nodeID}, scale)
		if err != nil {
			return nil, nil, fmt.Errorf("rendering node %s: %w", nodeID, err)
		}

		imageURL := render.Images[nodeID]
		if imageURL == "" {
			return nil, nil, fmt.Errorf("no image rendered for node %s", nodeID)
		}

		data, err := r.client.DownloadImage(ctx, imageURL)
		if err != nil {
			return nil, nil, fmt.Errorf("downloading screenshot: %w", err)
		}

		result := &ScreenshotResult{
			FileKey:  fileKey,
			NodeID:   nodeID,
			Scale:    scale,
			ImageURL: imageURL,
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Screenshot of node %s in file %s at %gx scale.", nodeID, fileKey, scale)},
				&mcp.ImageContent{Data: data, MIMEType: "image/png"},
			},
		}, result, nil
	})
}
