// Package idmap tracks the correspondence between legacy primary keys and the
// identifiers assigned by the destination store during a migration run.
//
// One Map exists per entity type. Maps are built incrementally as rows are
// inserted and consulted by later, dependent insertion stages. Several legacy
// keys may point at the same new identifier (merged customers, aliased
// products), so Register never complains about re-pointing a key.
//
// A Lookup miss is not an error at this level. Whether a miss is fatal or
// merely logged is a per-stage policy decided by the caller.
package idmap

// Map relates legacy keys of type K to newly assigned destination IDs.
// The zero value is not usable; construct with New.
type Map[K comparable] struct {
	entity string
	ids    map[K]int64
}

// New returns an empty map. The entity name appears in diagnostics only.
func New[K comparable](entity string) *Map[K] {
	return &Map[K]{
		entity: entity,
		ids:    make(map[K]int64),
	}
}

// Entity returns the entity-type label the map was created with.
func (m *Map[K]) Entity() string { return m.entity }

// Register records that legacy key old now lives at newID in the destination.
// Registering the same key twice overwrites the earlier mapping; registering
// several keys against one newID is how merged records are represented.
func (m *Map[K]) Register(old K, newID int64) {
	m.ids[old] = newID
}

// Lookup returns the destination ID for a legacy key, and whether one exists.
func (m *Map[K]) Lookup(old K) (int64, bool) {
	id, ok := m.ids[old]
	return id, ok
}

// Len reports how many legacy keys have been registered.
func (m *Map[K]) Len() int { return len(m.ids) }
