package engine

import mapset "github.com/deckarep/golang-set/v2"

// recentIDs remembers action ids this client has sent or applied, so echoes
// and duplicate deliveries become no-ops. The set is bounded: once it grows
// past cap it is trimmed oldest-first down to keep.
type recentIDs struct {
	set   mapset.Set[string]
	order []string
	cap   int
	keep  int
}

func newRecentIDs(capacity, keep int) *recentIDs {
	return &recentIDs{
		set:  mapset.NewSet[string](),
		cap:  capacity,
		keep: keep,
	}
}

func (r *recentIDs) Contains(id string) bool {
	return r.set.Contains(id)
}

func (r *recentIDs) Add(id string) {
	if !r.set.Add(id) {
		return
	}
	r.order = append(r.order, id)
	if len(r.order) > r.cap {
		drop := len(r.order) - r.keep
		for _, old := range r.order[:drop] {
			r.set.Remove(old)
		}
		r.order = append(r.order[:0], r.order[drop:]...)
	}
}

func (r *recentIDs) Len() int {
	return len(r.order)
}
