// Package merge assembles per-repository sub-results into one nested
// document keyed by dotted paths, and rewrites the query hints that travel
// with each sub-result so they address the merged tree.
package merge

import (
	"strings"

	"github.com/ghinsight/ghinsight/internal/domain"
)

// Merger accumulates child documents under dotted merge paths. It owns the
// parent document and the deduplicated hint list; one Merger serves one
// collection run
type Merger struct {
	doc   map[string]any
	hints []domain.QueryHint
	seen  map[string]struct{}
}

// New returns an empty Merger
func New() *Merger {
	return &Merger{
		doc:  make(map[string]any),
		seen: make(map[string]struct{}),
	}
}

// Merge assigns child at the dot-separated path, creating intermediate
// segments as plain nested maps. The leaf is replaced wholesale, never
// deep-merged. An intermediate segment holding a non-map value is replaced
// by a fresh map. Hints travelling with the child are rewritten against the
// merge path and registered on the parent; an empty path is ignored
func (m *Merger) Merge(path string, child any, hints []domain.QueryHint) {
	if path == "" {
		return
	}
	segs := strings.Split(path, ".")

	node := m.doc
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = child

	for _, h := range hints {
		m.registerMerged(path, segs, h)
	}
}

// registerMerged rewrites one child hint for the parent document. A
// single_item hint becomes an exact-path variant, plus a wildcard variant
// when the merge path names an entry inside a container. Other scopes pass
// through unchanged
func (m *Merger) registerMerged(path string, segs []string, h domain.QueryHint) {
	if h.Scope != domain.HintSingleItem {
		m.add(h)
		return
	}

	q := normalizeQuery(h.Query)
	m.add(domain.QueryHint{
		Query:       "." + path + q,
		Description: h.Description,
		Scope:       domain.HintSingleItem,
	})
	if len(segs) >= 2 {
		m.add(domain.QueryHint{
			Query:       "." + strings.Join(segs[:len(segs)-1], ".") + "[]" + q,
			Description: h.Description,
			Scope:       domain.HintAllItems,
		})
	}
}

// AddHints registers parent-level hints directly, subject to the same
// dedup rule as merged hints
func (m *Merger) AddHints(hints ...domain.QueryHint) {
	for _, h := range hints {
		m.add(h)
	}
}

// add registers a hint unless its exact query text was seen before
func (m *Merger) add(h domain.QueryHint) {
	if _, ok := m.seen[h.Query]; ok {
		return
	}
	m.seen[h.Query] = struct{}{}
	m.hints = append(m.hints, h)
}

// Document returns the merged parent document
func (m *Merger) Document() map[string]any {
	return m.doc
}

// Hints returns the registered hints in registration order
func (m *Merger) Hints() []domain.QueryHint {
	out := make([]domain.QueryHint, len(m.hints))
	copy(out, m.hints)
	return out
}

func normalizeQuery(q string) string {
	if q == "" || strings.HasPrefix(q, ".") {
		return q
	}
	return "." + q
}
