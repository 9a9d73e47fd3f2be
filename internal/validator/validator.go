// Package validator checks a conversation graph for configuration
// mistakes before they surface as silent turns in production.
package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Issue is one finding. Warnings do not fail validation.
type Issue struct {
	Exchange string
	Message  string
	Warning  bool
}

func (i Issue) String() string {
	kind := "error"
	if i.Warning {
		kind = "warning"
	}
	return fmt.Sprintf("[%s] %s: %s", kind, i.Exchange, i.Message)
}

// Keyword branch names the name-capture variant dispatches on.
const (
	keywordYesName = "yes_name"
	keywordNoName  = "no_name"
)

// ValidateGraph inspects every exchange and reports dangling references,
// missing variant branches, and exchanges unreachable from the start.
func ValidateGraph(ctx context.Context, stores ports.Stores) ([]Issue, error) {
	exchanges, err := stores.Prompts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}

	known := make(map[string]domain.Exchange, len(exchanges))
	for _, ex := range exchanges {
		known[ex.Name] = ex
	}

	var issues []Issue
	reachable := map[string]bool{}

	for _, ex := range exchanges {
		keywords, err := stores.Keywords.Mapping(ctx, ex.Name)
		if err != nil {
			return nil, fmt.Errorf("keywords of %q: %w", ex.Name, err)
		}

		if ex.Default != "" {
			if _, ok := known[ex.Default]; !ok {
				issues = append(issues, Issue{
					Exchange: ex.Name,
					Message:  fmt.Sprintf("default destination %q does not exist", ex.Default),
				})
			}
			reachable[ex.Default] = true
		}

		for kw, dest := range keywords {
			if _, ok := known[dest]; !ok {
				issues = append(issues, Issue{
					Exchange: ex.Name,
					Message:  fmt.Sprintf("keyword %q points at missing exchange %q", kw, dest),
				})
			}
			reachable[dest] = true
		}

		switch ex.Type.Normalize() {
		case domain.TypeName:
			for _, branch := range []string{keywordYesName, keywordNoName} {
				if _, ok := keywords[branch]; !ok {
					issues = append(issues, Issue{
						Exchange: ex.Name,
						Message:  fmt.Sprintf("name-capture exchange is missing its %q branch", branch),
					})
				}
			}
		case domain.TypeTangent:
			tangents, err := stores.Tangents.List(ctx)
			if err != nil {
				return nil, fmt.Errorf("list tangents: %w", err)
			}
			if len(tangents) == 0 {
				issues = append(issues, Issue{
					Exchange: ex.Name,
					Message:  "tangent exchange but no tangents are defined",
					Warning:  true,
				})
			}
		}
	}

	if _, ok := known[domain.StartExchange]; !ok {
		issues = append(issues, Issue{
			Exchange: domain.StartExchange,
			Message:  "no start exchange: fresh sessions will dead-end",
			Warning:  true,
		})
	}

	for _, ex := range exchanges {
		if ex.Name == domain.StartExchange {
			continue
		}
		if !reachable[ex.Name] {
			issues = append(issues, Issue{
				Exchange: ex.Name,
				Message:  "not reachable from any keyword or default",
				Warning:  true,
			})
		}
	}

	return issues, nil
}

// Summarize renders issues as an error, or nil if none is fatal.
func Summarize(issues []Issue) error {
	var fatal []string
	for _, i := range issues {
		if !i.Warning {
			fatal = append(fatal, i.String())
		}
	}
	if len(fatal) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(fatal), strings.Join(fatal, "\n- "))
	}
	return nil
}
