package ecsruntime

import "iter"

// Cursor provides low-level, allocation-light iteration over a Query's
// matched entities: advance through cached archetypes row-by-row,
// locking the World for the duration. While it is locked, CreateEntity,
// DestroyEntity and Entity's add/remove methods refuse; World.AddComponent
// and World.RemoveComponent do not check the lock.
type Cursor struct {
	query *Query

	currentArchetype ArchetypeImpl
	storageIndex     int
	entityIndex      int
	remaining        int

	initialized     bool
	matchedStorages []*ArchetypeImpl
}

// NewCursor returns a Cursor over q's matched entities.
func NewCursor(q *Query) *Cursor {
	return &Cursor{query: q}
}

// Next advances to the next entity and reports whether one exists.
func (c *Cursor) Next() bool {
	if c.entityIndex < c.remaining {
		c.entityIndex++
		return true
	}
	return c.advance()
}

func (c *Cursor) advance() bool {
	if !c.initialized {
		c.Initialize()
	}
	for c.storageIndex < len(c.matchedStorages) {
		c.currentArchetype = *c.matchedStorages[c.storageIndex]
		c.remaining = c.currentArchetype.table.Length()
		if c.entityIndex < c.remaining {
			c.entityIndex++
			return true
		}
		c.storageIndex++
		c.entityIndex = 0
	}
	c.Reset()
	return false
}

// Entities returns an iterator sequence over (row, Entity) for every
// matched entity.
func (c *Cursor) Entities() iter.Seq2[int, Entity] {
	return func(yield func(int, Entity) bool) {
		c.Initialize()
		for c.storageIndex < len(c.matchedStorages) {
			c.currentArchetype = *c.matchedStorages[c.storageIndex]
			c.remaining = c.currentArchetype.table.Length()
			for c.entityIndex < c.remaining {
				entry, err := c.currentArchetype.table.Entry(c.entityIndex)
				if err == nil {
					if en, ok := c.query.world.entryLookup(entry.ID()); ok {
						if !yield(c.entityIndex, en) {
							c.Reset()
							return
						}
					}
				}
				c.entityIndex++
			}
			c.entityIndex = 0
			c.storageIndex++
		}
		c.Reset()
	}
}

// Initialize locks the World and snapshots the query's matched archetypes.
func (c *Cursor) Initialize() {
	if c.initialized {
		return
	}
	c.query.world.Lock()
	c.matchedStorages = append([]*ArchetypeImpl{}, c.query.archetypes...)
	if len(c.matchedStorages) > 0 {
		c.storageIndex = 0
		c.currentArchetype = *c.matchedStorages[0]
		c.remaining = c.currentArchetype.table.Length()
	}
	c.initialized = true
}

// Reset clears iteration state and releases the World lock.
func (c *Cursor) Reset() {
	c.storageIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.matchedStorages = nil
	c.initialized = false
	c.query.world.Unlock()
}

// CurrentEntity returns the entity at the cursor's current position.
func (c *Cursor) CurrentEntity() (Entity, bool) {
	entry, err := c.currentArchetype.table.Entry(c.entityIndex - 1)
	if err != nil {
		return nil, false
	}
	return c.query.world.entryLookup(entry.ID())
}

// TotalMatched returns the total entity count across matched archetypes.
func (c *Cursor) TotalMatched() int {
	if !c.initialized {
		c.Initialize()
	}
	total := 0
	for _, a := range c.matchedStorages {
		total += a.table.Length()
	}
	c.Reset()
	return total
}
