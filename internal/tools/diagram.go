package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/figma-bridge/internal/mermaid"
)

// DiagramArgs contains the arguments for the generate_diagram tool.
type DiagramArgs struct {
	Code  string `json:"code" jsonschema:"Mermaid diagram source"`
	Type  string `json:"type,omitempty" jsonschema:"Declared diagram type (detected from the source when omitted)"`
	Title string `json:"title,omitempty" jsonschema:"Display title for the diagram"`
}

// DiagramResult is the widget-facing payload; field names are part of the
// widget contract.
type DiagramResult struct {
	MermaidCode string `json:"mermaidCode"`
	DiagramType string `json:"diagramType"`
	Title       string `json:"title,omitempty"`
	DiagramURL  string `json:"diagramUrl"`
}

func registerDiagramTool(server *mcp.Server, r *Registry) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_diagram",
		Description: "Validate Mermaid diagram source and return it for inline rendering by the diagram widget. No authentication required.",
		Meta: mcp.Meta{
			"openai/outputTemplate": DiagramWidgetURI,
			// Auth is optional for this tool, unlike the design tools.
			"securitySchemes": []any{
				map[string]any{"type": "noauth"},
				map[string]any{"type": "oauth2"},
			},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DiagramArgs) (*mcp.CallToolResult, *DiagramResult, error) {
		if strings.TrimSpace(args.Code) == "" {
			return nil, nil, fmt.Errorf("code is required")
		}

		detected, ok := mermaid.Detect(args.Code)
		if !ok {
			// Reported as a successful response so the assistant can
			// correct the source and retry.
			text := fmt.Sprintf(
				"Unsupported diagram type: the first line of the source must declare one of the supported types.\nSupported types: %s",
				strings.Join(mermaid.SupportedTypes, ", "),
			)
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: text},
				},
			}, nil, nil
		}

		diagramType := args.Type
		if diagramType == "" {
			diagramType = detected
		}

		// There is no persistence service behind this URL; the widget
		// renders from mermaidCode.
		diagramURL := fmt.Sprintf("https://diagrams.figma-bridge.dev/d/%s", uuid.NewString())

		result := &DiagramResult{
			MermaidCode: args.Code,
			DiagramType: diagramType,
			Title:       args.Title,
			DiagramURL:  diagramURL,
		}

		text := fmt.Sprintf("Generated %s diagram", diagramType)
		if args.Title != "" {
			text += fmt.Sprintf(" %q", args.Title)
		}
		text += ". The diagram renders inline via the diagram widget."

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
			Meta: mcp.Meta{
				"openai/outputTemplate": DiagramWidgetURI,
			},
		}, result, nil
	})
}
