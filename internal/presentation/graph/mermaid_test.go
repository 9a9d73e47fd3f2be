package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/aretw0/parley/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name      string
		exchanges []domain.Exchange
		keywords  map[string]map[string]string
		contains  []string
	}{
		{
			name:      "start shape",
			exchanges: []domain.Exchange{{Name: "start"}},
			contains:  []string{"start((\"start\"))"},
		},
		{
			name:      "name capture shape",
			exchanges: []domain.Exchange{{Name: "ask_name", Type: domain.TypeName}},
			contains:  []string{"ask_name[/\"ask_name\"/]"},
		},
		{
			name:      "queue shape",
			exchanges: []domain.Exchange{{Name: "hold", Type: domain.TypeQueue}},
			contains:  []string{"hold[[\"hold\"]]"},
		},
		{
			name:      "tangent shape",
			exchanges: []domain.Exchange{{Name: "news", Type: domain.TypeTangent}},
			contains:  []string{"news{{\"news\"}}"},
		},
		{
			name: "keyword and default transitions",
			exchanges: []domain.Exchange{
				{Name: "start", Default: "fallback"},
				{Name: "greet"},
				{Name: "fallback"},
			},
			keywords: map[string]map[string]string{
				"start": {"hi": "greet"},
			},
			contains: []string{
				"start -- \"hi\" --> greet",
				"start -.-> fallback",
			},
		},
		{
			name:      "ids are sanitized",
			exchanges: []domain.Exchange{{Name: "my-step.two"}},
			contains:  []string{"my_step_two[\"my-step.two\"]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(tt.exchanges, tt.keywords, nil)
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, out)
				}
			}
		})
	}
}

func TestGenerateMermaidOverlay(t *testing.T) {
	exchanges := []domain.Exchange{
		{Name: "start"},
		{Name: "greet"},
	}
	out := graph.GenerateMermaid(exchanges, nil, &graph.Overlay{
		VisitedExchanges: []string{"start"},
		CurrentExchange:  "greet",
	})

	for _, want := range []string{
		"class start visited;",
		"class greet current;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
