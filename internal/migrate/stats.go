package migrate

import (
	"fmt"
	"sort"
	"strings"
)

// Stats counts what each stage inserted and skipped. The summary is the
// reconciliation line the operator signs off against the legacy row
// counts.
type Stats struct {
	inserted map[string]int
	skipped  map[string]int
}

func newStats() *Stats {
	return &Stats{
		inserted: make(map[string]int),
		skipped:  make(map[string]int),
	}
}

func (s *Stats) insert(entity string) { s.inserted[entity]++ }
func (s *Stats) skip(entity string)   { s.skipped[entity]++ }

// Inserted returns how many records of the entity were inserted.
func (s *Stats) Inserted(entity string) int { return s.inserted[entity] }

// Skipped returns how many records of the entity were skipped.
func (s *Stats) Skipped(entity string) int { return s.skipped[entity] }

// Summary renders the per-entity counts as one stable, sorted line.
func (s *Stats) Summary() string {
	entities := make([]string, 0, len(s.inserted)+len(s.skipped))
	seen := make(map[string]bool)
	for e := range s.inserted {
		entities = append(entities, e)
		seen[e] = true
	}
	for e := range s.skipped {
		if !seen[e] {
			entities = append(entities, e)
		}
	}
	sort.Strings(entities)

	parts := make([]string, 0, len(entities))
	for _, e := range entities {
		part := fmt.Sprintf("%s=%d", e, s.inserted[e])
		if n := s.skipped[e]; n > 0 {
			part += fmt.Sprintf(" (%d skipped)", n)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
