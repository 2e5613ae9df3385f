package entity

import (
	"cmp"
	"slices"
)

// EvictionOrder returns entities ordered for eviction: unflagged before
// flagged, then least recently seen first. Ties keep insertion order.
func EvictionOrder(entities []*Entity) []*Entity {
	order := slices.Clone(entities)
	slices.SortStableFunc(order, func(a, b *Entity) int {
		if a.Flagged != b.Flagged {
			if a.Flagged {
				return 1
			}
			return -1
		}
		if c := a.LastSeen.Compare(b.LastSeen); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return order
}

// Prune evicts the least recently seen unflagged entities until the store
// holds at most ceiling entities. Flagged entities are never evicted, so the
// ceiling may stay exceeded when they alone outnumber it. It returns the
// evicted ids.
func (s *Store) Prune(ceiling int) []string {
	if ceiling < 0 || len(s.entities) <= ceiling {
		return nil
	}
	excess := len(s.entities) - ceiling
	var evicted []string
	for _, e := range EvictionOrder(s.All()) {
		if excess == 0 || e.Flagged {
			break
		}
		delete(s.entities, e.ID)
		evicted = append(evicted, e.ID)
		excess--
	}
	if len(evicted) > 0 {
		s.logger.Debug("pruned entities", "evicted", len(evicted), "remaining", len(s.entities), "ceiling", ceiling)
	}
	return evicted
}
