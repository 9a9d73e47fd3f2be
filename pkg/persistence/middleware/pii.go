package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the values of data
// keys matching the patterns before persistence. The in-memory state
// the engine holds is left untouched. Patterns typically arrive from
// operator configuration, so a bad one is an error, not a panic.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile mask pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Set(ctx context.Context, sessionID string, state *domain.SessionState) error {
	// Clone so masking never leaks into the state the engine keeps using.
	cloned := state.Clone()
	for k := range cloned.Data {
		for _, p := range m.patterns {
			if p.MatchString(k) {
				cloned.Data[k] = "***"
				break
			}
		}
	}
	return m.next.Set(ctx, sessionID, cloned)
}

func (m *piiMiddleware) Get(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	return m.next.Get(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
