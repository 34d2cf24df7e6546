package gates

import (
	"context"
	"fmt"

	"commitgate/internal/git"
)

// Scope is the set of staged files a check runs against. Paths are
// relative to the repository root, unique, and in the order git reported
// them.
type Scope struct {
	Paths  []string
	Filter []string
}

// Empty reports whether no staged file matched the filter.
func (s Scope) Empty() bool {
	return len(s.Paths) == 0
}

// Contains reports whether p is in scope.
func (s Scope) Contains(p string) bool {
	for _, sp := range s.Paths {
		if sp == p {
			return true
		}
	}
	return false
}

// Scoper computes the staged scope. Every call queries the index again;
// a Scope is never updated in place.
type Scoper struct {
	stager   git.Stager
	patterns []string
}

// NewScoper returns a Scoper selecting staged files that match patterns.
func NewScoper(stager git.Stager, patterns []string) *Scoper {
	return &Scoper{stager: stager, patterns: patterns}
}

// Staged returns the added, copied or modified staged files matching the
// configured patterns. No match yields an empty Scope and no error.
func (s *Scoper) Staged(ctx context.Context) (Scope, error) {
	paths, err := s.stager.StagedFiles(ctx, s.patterns)
	if err != nil {
		return Scope{Filter: s.patterns}, fmt.Errorf("listing staged files: %w", err)
	}
	return Scope{Paths: dedupe(paths), Filter: s.patterns}, nil
}

func dedupe(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
