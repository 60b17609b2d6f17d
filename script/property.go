package script

import "github.com/cespare/xxhash/v2"

// PropertyType tags externally-set script properties. Values are stable; they
// are written to saved worlds.
type PropertyType uint32

const (
	PropertyBoolean PropertyType = iota
	PropertyFloat
	PropertyInt
	PropertyEntity
	PropertyResource
	PropertyString
	PropertyColor
	PropertyAny
)

// Property is a name-hashed, type-tagged value attached to a script instance.
// Values are stored textually regardless of the declared type, so they
// survive save/load even when the underlying script does not (yet) declare
// them.
type Property struct {
	NameHash     uint64
	Type         PropertyType
	ResourceType string
	StoredValue  string
}

// HashPropertyName computes the stable hash properties are keyed by.
func HashPropertyName(name string) uint64 {
	return xxhash.Sum64String(name)
}
