// Package mermaid validates Mermaid diagram source by its declared type.
package mermaid

import "strings"

// SupportedTypes lists the diagram keywords the rendering widget handles,
// most specific first so substring detection cannot misattribute (e.g.
// "gitGraph" before "graph").
var SupportedTypes = []string{
	"sequenceDiagram",
	"stateDiagram",
	"erDiagram",
	"quadrantChart",
	"gitGraph",
	"mindmap",
	"timeline",
	"journey",
	"gantt",
	"flowchart",
	"graph",
	"pie",
}

// Detect scans the first non-blank line of source for a supported diagram
// keyword (case-insensitive substring match) and returns the matched type.
func Detect(source string) (string, bool) {
	line := firstNonBlankLine(source)
	if line == "" {
		return "", false
	}
	lower := strings.ToLower(line)
	for _, typ := range SupportedTypes {
		if strings.Contains(lower, strings.ToLower(typ)) {
			return typ, true
		}
	}
	return "", false
}

func firstNonBlankLine(source string) string {
	for _, line := range strings.Split(source, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
