package tools_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/oauth2"

	"github.com/standardbeagle/figma-bridge/internal/auth"
	"github.com/standardbeagle/figma-bridge/internal/figma"
	"github.com/standardbeagle/figma-bridge/internal/store/memory"
	"github.com/standardbeagle/figma-bridge/internal/tools"
)

const testSessionID = "test-session"

// testServer creates a connected MCP client session for integration testing.
// It uses in-memory transports for fast, reliable testing without I/O.
func testServer(t *testing.T, registry *tools.Registry) *mcp.ClientSession {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "figma-bridge-test",
		Version: "0.1.0",
	}, nil)

	registry.RegisterTools(server)
	registry.RegisterResources(server)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx := context.Background()

	go func() {
		if err := server.Run(ctx, serverTransport); err != nil {
			t.Logf("server exited: %v", err)
		}
	}()

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "0.1.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("failed to connect client: %v", err)
	}

	t.Cleanup(func() {
		session.Close()
	})

	return session
}

// testFlow builds an OAuth flow against a fake token endpoint. tokenHits
// counts how often the endpoint was reached.
func testFlow(t *testing.T) (*auth.Flow, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"at-%d","token_type":"Bearer","refresh_token":"rt-%d","expires_in":3600}`, n, n)
	}))
	t.Cleanup(tokenSrv.Close)

	st, err := memory.New(64)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:3333/oauth/callback",
		Scopes:       []string{"files:read"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://provider.example/oauth",
			TokenURL:  tokenSrv.URL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return auth.New(cfg, st), &hits
}

// authenticate runs the full code exchange for the test session.
func authenticate(t *testing.T, flow *auth.Flow) {
	t.Helper()
	ctx := context.Background()

	authURL, err := flow.BeginAuth(ctx, testSessionID)
	if err != nil {
		t.Fatalf("BeginAuth failed: %v", err)
	}
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parsing auth URL: %v", err)
	}
	if err := flow.CompleteAuth(ctx, "the-code", u.Query().Get("state")); err != nil {
		t.Fatalf("CompleteAuth failed: %v", err)
	}
}

// newRegistry wires a registry whose Figma client talks to base.
func newRegistry(flow *auth.Flow, base string) *tools.Registry {
	client := figma.NewClient(flow.TokenSource(testSessionID))
	if base != "" {
		client = client.WithBaseURL(base)
	}
	return tools.NewRegistry(testSessionID, flow, client, nil)
}

// structuredAs decodes a result's structured content into out.
func structuredAs(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()
	data, err := json.Marshal(result.StructuredContent)
	if err != nil {
		t.Fatalf("marshaling structured content: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decoding structured content: %v", err)
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	textContent, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return textContent.Text
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s) failed: %v", name, err)
	}
	return result
}

func TestIntegration_ListTools(t *testing.T) {
	flow, _ := testFlow(t)
	session := testServer(t, newRegistry(flow, ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	expectedTools := []string{
		"info",
		"get_screenshot",
		"get_design_context",
		"get_metadata",
		"generate_diagram",
	}

	toolNames := make(map[string]bool)
	for _, tool := range result.Tools {
		toolNames[tool.Name] = true
	}

	for _, expected := range expectedTools {
		if !toolNames[expected] {
			t.Errorf("expected tool %q not found in registered tools", expected)
		}
	}

	if len(result.Tools) != len(expectedTools) {
		t.Errorf("expected %d tools, got %d", len(expectedTools), len(result.Tools))
	}
}

func TestIntegration_InfoTool(t *testing.T) {
	flow, _ := testFlow(t)
	session := testServer(t, newRegistry(flow, ""))

	result := callTool(t, session, "info", map[string]any{})
	if result.IsError {
		t.Fatalf("info returned error: %s", resultText(t, result))
	}

	text := resultText(t, result)
	for _, want := range []string{"figma-bridge", "not connected", "generate_diagram"} {
		if !strings.Contains(text, want) {
			t.Errorf("info text missing %q:\n%s", want, text)
		}
	}

	var info tools.InfoResult
	structuredAs(t, result, &info)
	if info.Session != testSessionID {
		t.Errorf("expected session %q, got %q", testSessionID, info.Session)
	}
	if info.AuthStatus != "not connected" {
		t.Errorf("expected auth status 'not connected', got %q", info.AuthStatus)
	}
}

func TestIntegration_GenerateDiagram(t *testing.T) {
	flow, _ := testFlow(t)
	session := testServer(t, newRegistry(flow, ""))

	source := "flowchart TD\n  A[Start] --> B[End]"
	result := callTool(t, session, "generate_diagram", map[string]any{
		"code":  source,
		"title": "My Flow",
	})
	if result.IsError {
		t.Fatalf("generate_diagram returned error: %s", resultText(t, result))
	}

	var diagram tools.DiagramResult
	structuredAs(t, result, &diagram)
	if diagram.MermaidCode != source {
		t.Errorf("mermaidCode must carry the source verbatim:\ngot  %q\nwant %q", diagram.MermaidCode, source)
	}
	if diagram.DiagramType != "flowchart" {
		t.Errorf("expected diagramType 'flowchart', got %q", diagram.DiagramType)
	}
	if diagram.Title != "My Flow" {
		t.Errorf("expected title 'My Flow', got %q", diagram.Title)
	}
	if diagram.DiagramURL == "" {
		t.Error("expected a non-empty diagramUrl")
	}
}

func TestIntegration_GenerateDiagram_UnsupportedType(t *testing.T) {
	flow, _ := testFlow(t)
	session := testServer(t, newRegistry(flow, ""))

	result := callTool(t, session, "generate_diagram", map[string]any{
		"code": "classDiagram\n  class Animal",
	})
	if result.IsError {
		t.Fatal("unsupported diagram type must not be a tool error")
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Unsupported diagram type") {
		t.Errorf("expected unsupported-type explanation, got:\n%s", text)
	}
	if !strings.Contains(text, "sequenceDiagram") {
		t.Errorf("explanation should list the supported types, got:\n%s", text)
	}
}

func TestIntegration_GenerateDiagram_EmptyCode(t *testing.T) {
	flow, _ := testFlow(t)
	session := testServer(t, newRegistry(flow, ""))

	result := callTool(t, session, "generate_diagram", map[string]any{
		"code": "   \n",
	})
	if !result.IsError {
		t.Error("expected IsError for blank code")
	}
}

// generate_diagram must work on a session that never touched Figma auth.
func TestIntegration_GenerateDiagram_NoAuthRequired(t *testing.T) {
	flow, tokenHits := testFlow(t)
	session := testServer(t, newRegistry(flow, ""))

	result := callTool(t, session, "generate_diagram", map[string]any{
		"code": "sequenceDiagram\n  Alice->>Bob: hi",
	})
	if result.IsError {
		t.Fatalf("generate_diagram returned error: %s", resultText(t, result))
	}
	if text := resultText(t, result); strings.Contains(text, "Authentication required") {
		t.Errorf("generate_diagram must not gate on auth, got:\n%s", text)
	}
	if n := tokenHits.Load(); n != 0 {
		t.Errorf("expected no token endpoint traffic, got %d hits", n)
	}
}

// An unauthenticated design-tool call succeeds with an authorization link
// instead of failing.
func TestIntegration_Metadata_UnauthenticatedReturnsAuthURL(t *testing.T) {
	flow, _ := testFlow(t)
	session := testServer(t, newRegistry(flow, ""))

	result := callTool(t, session, "get_metadata", map[string]any{
		"file_key": "abc123",
	})
	if result.IsError {
		t.Fatalf("unauthenticated call must not be a tool error: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Authentication required") {
		t.Errorf("expected auth prompt, got:\n%s", text)
	}
	if !strings.Contains(text, "https://provider.example/oauth") {
		t.Errorf("expected the authorization URL in the text, got:\n%s", text)
	}
}

func TestIntegration_Screenshot(t *testing.T) {
	flow, _ := testFlow(t)
	authenticate(t, flow)

	var renderPath, renderQuery string
	figmaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/images/"):
			renderPath = r.URL.Path
			renderQuery = r.URL.RawQuery
			fmt.Fprintf(w, `{"images":{"1:2":"http://%s/render/1.png"}}`, r.Host)
		case r.URL.Path == "/render/1.png":
			w.Write([]byte("png-bytes"))
		default:
			t.Errorf("unexpected upstream request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer figmaSrv.Close()

	session := testServer(t, newRegistry(flow, figmaSrv.URL))

	result := callTool(t, session, "get_screenshot", map[string]any{
		"url": "https://www.figma.com/design/pqrs/My-File?node-id=1-2",
	})
	if result.IsError {
		t.Fatalf("get_screenshot returned error: %s", resultText(t, result))
	}

	if renderPath != "/images/pqrs" {
		t.Errorf("expected render path /images/pqrs, got %s", renderPath)
	}
	q, err := url.ParseQuery(renderQuery)
	if err != nil {
		t.Fatalf("parsing render query: %v", err)
	}
	if q.Get("ids") != "1:2" || q.Get("scale") != "2" || q.Get("format") != "png" {
		t.Errorf("unexpected render query: %s", renderQuery)
	}

	var shot tools.ScreenshotResult
	structuredAs(t, result, &shot)
	if shot.FileKey != "pqrs" || shot.NodeID != "1:2" || shot.Scale != 2 {
		t.Errorf("unexpected echoed identifiers: %+v", shot)
	}
	if !strings.HasSuffix(shot.ImageURL, "/render/1.png") {
		t.Errorf("unexpected image URL: %s", shot.ImageURL)
	}

	var image *mcp.ImageContent
	for _, c := range result.Content {
		if img, ok := c.(*mcp.ImageContent); ok {
			image = img
		}
	}
	if image == nil {
		t.Fatal("expected an ImageContent block")
	}
	if image.MIMEType != "image/png" {
		t.Errorf("expected image/png, got %s", image.MIMEType)
	}
	if string(image.Data) != "png-bytes" {
		t.Errorf("unexpected image payload: %q", image.Data)
	}
}

func TestIntegration_Screenshot_InvalidScale(t *testing.T) {
	flow, tokenHits := testFlow(t)
	authenticate(t, flow)
	session := testServer(t, newRegistry(flow, ""))

	before := tokenHits.Load()
	result := callTool(t, session, "get_screenshot", map[string]any{
		"file_key": "pqrs",
		"node_id":  "1:2",
		"scale":    9,
	})
	if !result.IsError {
		t.Error("expected IsError for out-of-range scale")
	}

	// Rejected arguments must leave the credential record untouched.
	if n := tokenHits.Load(); n != before {
		t.Errorf("token endpoint hit during argument validation: %d -> %d", before, n)
	}
	tok, err := flow.AccessToken(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("AccessToken after failed call: %v", err)
	}
	if tok != "at-1" {
		t.Errorf("stored token changed after invalid arguments: %s", tok)
	}
}

func TestIntegration_Screenshot_MissingIdentifiers(t *testing.T) {
	flow, _ := testFlow(t)
	authenticate(t, flow)
	session := testServer(t, newRegistry(flow, ""))

	result := callTool(t, session, "get_screenshot", map[string]any{})
	if !result.IsError {
		t.Fatal("expected IsError for missing identifiers")
	}
	if text := resultText(t, result); !strings.Contains(text, "file_key and node_id are required") {
		t.Errorf("unexpected error text: %s", text)
	}
}

func TestIntegration_DesignContext(t *testing.T) {
	flow, _ := testFlow(t)
	authenticate(t, flow)

	figmaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/abc123/nodes" {
			t.Errorf("unexpected upstream request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{
			"name": "Design System",
			"nodes": {"1:2": {"document": {
				"id": "1:2", "name": "Button", "type": "FRAME",
				"absoluteBoundingBox": {"x": 0, "y": 0, "width": 120, "height": 40}
			}}}
		}`))
	}))
	defer figmaSrv.Close()

	session := testServer(t, newRegistry(flow, figmaSrv.URL))

	result := callTool(t, session, "get_design_context", map[string]any{
		"url": "https://www.figma.com/design/abc123/Design-System?node-id=1-2",
	})
	if result.IsError {
		t.Fatalf("get_design_context returned error: %s", resultText(t, result))
	}

	var dc tools.DesignContextResult
	structuredAs(t, result, &dc)
	if dc.FileKey != "abc123" || dc.NodeID != "1:2" {
		t.Errorf("unexpected identifiers: %+v", dc)
	}
	if dc.Name != "Button" {
		t.Errorf("expected node name 'Button', got %q", dc.Name)
	}

	var node map[string]any
	if err := json.Unmarshal(dc.Node, &node); err != nil {
		t.Fatalf("node is not valid JSON: %v", err)
	}
	if node["id"] != "1:2" {
		t.Errorf("expected raw node document for 1:2, got %v", node)
	}
}

func TestIntegration_Metadata_XML(t *testing.T) {
	flow, _ := testFlow(t)
	authenticate(t, flow)

	figmaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/abc123" {
			t.Errorf("unexpected upstream request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{
			"name": "My <Design>",
			"document": {"id": "0:0", "name": "Document", "type": "DOCUMENT", "children": [
				{"id": "1:1", "name": "Page 1", "type": "CANVAS", "children": [
					{"id": "1:2", "name": "Button", "type": "FRAME",
					 "absoluteBoundingBox": {"x": 10, "y": 20, "width": 120, "height": 40}}
				]}
			]}
		}`))
	}))
	defer figmaSrv.Close()

	session := testServer(t, newRegistry(flow, figmaSrv.URL))

	result := callTool(t, session, "get_metadata", map[string]any{
		"file_key": "abc123",
	})
	if result.IsError {
		t.Fatalf("get_metadata returned error: %s", resultText(t, result))
	}

	want := `<?xml version="1.0" encoding="UTF-8"?>
<figma fileKey="abc123" name="My &lt;Design&gt;">
  <node id="0:0" name="Document" type="DOCUMENT">
    <node id="1:1" name="Page 1" type="CANVAS">
      <node id="1:2" name="Button" type="FRAME" x="10" y="20" width="120" height="40"/>
    </node>
  </node>
</figma>`

	var meta tools.MetadataResult
	structuredAs(t, result, &meta)
	if meta.XML != want {
		t.Errorf("XML mismatch:\ngot:\n%s\nwant:\n%s", meta.XML, want)
	}
	if text := resultText(t, result); text != want {
		t.Errorf("text content should carry the same XML:\n%s", text)
	}
}

func TestIntegration_ReadDiagramWidget(t *testing.T) {
	flow, _ := testFlow(t)
	session := testServer(t, newRegistry(flow, ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := session.ReadResource(ctx, &mcp.ReadResourceParams{
		URI: tools.DiagramWidgetURI,
	})
	if err != nil {
		t.Fatalf("ReadResource failed: %v", err)
	}
	if len(result.Contents) != 1 {
		t.Fatalf("expected one content block, got %d", len(result.Contents))
	}
	if !strings.Contains(result.Contents[0].Text, "mermaid") {
		t.Error("widget HTML should reference mermaid")
	}
}
