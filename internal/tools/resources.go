package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DiagramWidgetURI is the resource URI bound to generate_diagram results.
const DiagramWidgetURI = "ui://widget/diagram.html"

const diagramWidgetMIMEType = "text/html+skybridge"

// diagramWidgetHTML is the rendering shell served to widget-capable
// clients. It reads the tool's structured content and hands mermaidCode to
// Mermaid.js; pan/zoom and theming live in the host, not here.
const diagramWidgetHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  html, body { margin: 0; padding: 0; background: transparent; }
  #diagram { display: flex; justify-content: center; padding: 8px; }
  #title { font: 600 14px system-ui, sans-serif; text-align: center; padding: 4px 0; }
  #error { font: 12px ui-monospace, monospace; color: #b00020; padding: 8px; white-space: pre-wrap; }
</style>
<script type="module">
  import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs";
  mermaid.initialize({ startOnLoad: false, securityLevel: "strict" });

  const output = window.openai?.toolOutput ?? {};
  const titleEl = document.getElementById("title");
  if (output.title) titleEl.textContent = output.title;

  try {
    const { svg } = await mermaid.render("figma-bridge-diagram", output.mermaidCode ?? "");
    document.getElementById("diagram").innerHTML = svg;
  } catch (err) {
    document.getElementById("error").textContent = String(err);
  }
</script>
</head>
<body>
  <div id="title"></div>
  <div id="diagram"></div>
  <div id="error"></div>
</body>
</html>
`

// RegisterResources registers the diagram widget so clients can list and
// read it.
func (r *Registry) RegisterResources(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         DiagramWidgetURI,
		Name:        "diagram-widget",
		Description: "HTML shell that renders generate_diagram results with Mermaid.js.",
		MIMEType:    diagramWidgetMIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      DiagramWidgetURI,
					MIMEType: diagramWidgetMIMEType,
					Text:     diagramWidgetHTML,
				},
			},
		}, nil
	})
}
