package figma

import (
	"encoding/json"
	"fmt"
)

// APIError represents a non-2xx response from the Figma API. Status and
// Body are surfaced verbatim to the caller.
type APIError struct {
	Status int    `json:"status"`
	Err    string `json:"err"`
	Body   string `json:"-"`
}

func (e *APIError) Error() string {
	msg := e.Err
	if msg == "" {
		msg = e.Body
	}
	return fmt.Sprintf("figma API error (status %d): %s", e.Status, msg)
}

// RateLimitError indicates the API rate limit was exceeded.
type RateLimitError struct {
	RetryAfter string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after: %s", e.RetryAfter)
}

// GetFileOptions contains options for the GetFile API call.
type GetFileOptions struct {
	Version  string // File version to retrieve
	Depth    int    // Depth of nodes to retrieve
	Geometry string // "paths" to include vector path data
}

// File represents a Figma file.
type File struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	LastModified string `json:"lastModified"`
	EditorType   string `json:"editorType"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Version      string `json:"version"`
	Document     *Node  `json:"document"`
}

// FileNodes represents a response from the file nodes endpoint.
type FileNodes struct {
	Name         string                  `json:"name"`
	LastModified string                  `json:"lastModified"`
	Version      string                  `json:"version"`
	Nodes        map[string]*NodeWrapper `json:"nodes"`
}

// NodeWrapper wraps a node in the file nodes response.
type NodeWrapper struct {
	Document *Node `json:"document"`
}

// Common node types.
const (
	NodeTypeDocument = "DOCUMENT"
	NodeTypeCanvas   = "CANVAS"
	NodeTypeFrame    = "FRAME"
)

// Node is the subset of the Figma node document the bridge works with.
// Raw preserves the verbatim JSON so callers can pass the full document
// through untouched.
type Node struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	Visible             *bool      `json:"visible,omitempty"`
	Characters          string     `json:"characters,omitempty"`
	ComponentID         string     `json:"componentId,omitempty"`
	AbsoluteBoundingBox *Rectangle `json:"absoluteBoundingBox,omitempty"`
	Children            []*Node    `json:"children,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON parses the known fields and keeps the raw document.
func (n *Node) UnmarshalJSON(data []byte) error {
	type alias Node
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*n = Node(a)
	n.Raw = append([]byte(nil), data...)
	return nil
}

// Rectangle is an absolute bounding box.
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ImageRender is the response of the image-rendering endpoint: node ID to
// short-lived image URL.
type ImageRender struct {
	Err    string            `json:"err,omitempty"`
	Images map[string]string `json:"images"`
}
