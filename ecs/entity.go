package ecs

import "strconv"

// Entity packs a 32-bit id and a 32-bit generation into one handle.
type Entity uint64

type entityID uint32
type generation uint32

const entityIDBits = 32

// InvalidEntity is the zero handle; it never refers to a live entity.
const InvalidEntity = Entity(0)

func makeEntity(id entityID, gen generation) Entity {
	return Entity(uint64(gen)<<entityIDBits | uint64(id))
}

func (e Entity) id() entityID {
	return entityID(uint32(e))
}

func (e Entity) generation() generation {
	return generation(uint32(uint64(e) >> entityIDBits))
}

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

func (e Entity) Valid() bool {
	return e > 0
}

// EntityMap remaps serialized entity handles onto a live world. Handles
// without an explicit mapping pass through unchanged, which supports loading
// into an empty world as well as merging into a renumbered one.
type EntityMap map[Entity]Entity

func (m EntityMap) Get(e Entity) Entity {
	if m == nil {
		return e
	}
	if mapped, ok := m[e]; ok {
		return mapped
	}
	return e
}
