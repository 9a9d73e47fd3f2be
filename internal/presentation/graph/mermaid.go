// Package graph renders a conversation graph as a Mermaid flowchart,
// for documentation and for eyeballing a graph before loading it.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// Overlay highlights live session state on the rendered graph.
type Overlay struct {
	VisitedExchanges []string
	CurrentExchange  string
}

// GenerateMermaid produces Mermaid flowchart syntax for the exchanges
// and their transitions. Shapes follow exchange type:
//   - start: ((circle))
//   - name capture: [/parallelogram/]
//   - queue: [[subroutine]]
//   - tangent: {{hexagon}}
//   - standard: [rectangle]
//
// Keyword transitions are labeled solid arrows; default transitions are
// dotted.
func GenerateMermaid(exchanges []domain.Exchange, keywords map[string]map[string]string, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, ex := range exchanges {
		safeID := sanitizeMermaidID(ex.Name)

		opener, closer := "[", "]"
		switch {
		case ex.Name == domain.StartExchange:
			opener, closer = "((", "))"
		case ex.Type.Normalize() == domain.TypeName:
			opener, closer = "[/", "/]"
		case ex.Type.Normalize() == domain.TypeQueue:
			opener, closer = "[[", "]]"
		case ex.Type.Normalize() == domain.TypeTangent:
			opener, closer = "{{", "}}"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, ex.Name, closer))

		// Stable keyword order keeps diagrams diffable.
		kw := keywords[ex.Name]
		words := make([]string, 0, len(kw))
		for w := range kw {
			words = append(words, w)
		}
		sort.Strings(words)

		for _, w := range words {
			safeTo := sanitizeMermaidID(kw[w])
			safeLabel := strings.ReplaceAll(w, "\"", "'")
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, safeLabel, safeTo))
		}

		if ex.Default != "" {
			safeTo := sanitizeMermaidID(ex.Default)
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", safeID, safeTo))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedExchanges {
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentExchange != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentExchange)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
