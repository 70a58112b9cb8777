package figma

import (
	"net/url"
	"strings"
)

// Link is the (fileKey, nodeId) pair carried by a Figma deep link.
type Link struct {
	FileKey string
	NodeID  string
}

// ResolveLink extracts a file key and node ID from a Figma design URL.
// The file key is the path segment after /design/ or /file/; the node ID is
// the node-id query parameter with "-" normalized to the API's ":"
// separator. Returns ok=false when either piece is absent or the URL does
// not parse; callers fall back to explicit arguments.
func ResolveLink(raw string) (Link, bool) {
	fileKey, ok := ResolveFileKey(raw)
	if !ok {
		return Link{}, false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, false
	}
	nodeID := u.Query().Get("node-id")
	if nodeID == "" {
		return Link{}, false
	}

	return Link{
		FileKey: fileKey,
		NodeID:  NormalizeNodeID(nodeID),
	}, true
}

// ResolveFileKey extracts just the file key from a Figma design URL, for
// callers that treat the node ID as optional.
func ResolveFileKey(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segs {
		if (seg == "design" || seg == "file") && i+1 < len(segs) && segs[i+1] != "" {
			return segs[i+1], true
		}
	}
	return "", false
}

// NormalizeNodeID converts a URL-form node ID ("1-2") to the API's
// canonical form ("1:2"). IDs already in canonical form pass through
// unchanged, so normalization is idempotent.
func NormalizeNodeID(id string) string {
	return strings.ReplaceAll(id, "-", ":")
}
