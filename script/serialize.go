package script

import (
	"fmt"
	"sort"

	"github.com/milk9111/scripthost/ecs"
	"github.com/milk9111/scripthost/wire"
)

// Version gates the serialized layout of the script world section.
type Version uint32

const (
	// VersionHash64 switched property name hashes to 64 bits.
	VersionHash64 Version = iota
	// VersionInlineScript added the inline-script block.
	VersionInlineScript

	VersionLatest = VersionInlineScript
)

// Serialize writes the module's full state: inline scripts first, then script
// components with their slots and properties. Entities are written in sorted
// order so equal worlds produce equal bytes.
func (m *Module) Serialize(w *wire.Writer) {
	w.WriteU32(uint32(VersionLatest))

	inlineEntities := sortedEntities(m.inline)
	w.WriteU32(uint32(len(inlineEntities)))
	for _, e := range inlineEntities {
		w.WriteU64(uint64(e))
		w.WriteString(m.inline[e].Source())
	}

	scriptEntities := sortedEntities(m.scripts)
	w.WriteU32(uint32(len(scriptEntities)))
	for _, e := range scriptEntities {
		cmp := m.scripts[e]
		w.WriteU64(uint64(e))
		w.WriteU32(uint32(len(cmp.instances)))
		for _, inst := range cmp.instances {
			w.WriteString(inst.Path())
			w.WriteU32(uint32(inst.flags))
			w.WriteU32(uint32(len(inst.properties)))
			for _, p := range inst.properties {
				w.WriteU64(p.NameHash)
				w.WriteU32(uint32(p.Type))
				w.WriteString(p.StoredValue)
			}
		}
	}
}

// Deserialize restores a serialized section into this module, remapping
// entity ids through entityMap before insertion. Newer versions than this
// build understands are rejected. The loaded flag is never restored from the
// stream; it is earned again by a successful build.
func (m *Module) Deserialize(r *wire.Reader, entityMap ecs.EntityMap) error {
	rawVersion, err := r.ReadU32()
	if err != nil {
		return fmt.Errorf("script section: version: %w", err)
	}
	version := Version(rawVersion)
	if version > VersionLatest {
		return fmt.Errorf("script section: %w: %d", wire.ErrInvalidVersion, rawVersion)
	}

	if version >= VersionInlineScript {
		numInline, err := r.ReadCount(9)
		if err != nil {
			return fmt.Errorf("script section: inline count: %w", err)
		}
		for i := uint32(0); i < numInline; i++ {
			rawEntity, err := r.ReadU64()
			if err != nil {
				return fmt.Errorf("script section: inline entity: %w", err)
			}
			source, err := r.ReadString()
			if err != nil {
				return fmt.Errorf("script section: inline source: %w", err)
			}
			entity := entityMap.Get(ecs.Entity(rawEntity))
			m.CreateInlineScript(entity).SetSource(source)
		}
	}

	numComponents, err := r.ReadCount(12)
	if err != nil {
		return fmt.Errorf("script section: component count: %w", err)
	}
	for i := uint32(0); i < numComponents; i++ {
		rawEntity, err := r.ReadU64()
		if err != nil {
			return fmt.Errorf("script section: entity: %w", err)
		}
		entity := entityMap.Get(ecs.Entity(rawEntity))
		cmp := m.CreateScriptComponent(entity)

		numSlots, err := r.ReadCount(9)
		if err != nil {
			return fmt.Errorf("script section: slot count: %w", err)
		}
		for j := uint32(0); j < numSlots; j++ {
			path, err := r.ReadString()
			if err != nil {
				return fmt.Errorf("script section: slot path: %w", err)
			}
			rawFlags, err := r.ReadU32()
			if err != nil {
				return fmt.Errorf("script section: slot flags: %w", err)
			}
			numProps, err := r.ReadCount(13)
			if err != nil {
				return fmt.Errorf("script section: property count: %w", err)
			}

			inst := newInstance(cmp)
			inst.flags = InstanceFlags(rawFlags) &^ FlagLoaded
			for k := uint32(0); k < numProps; k++ {
				hash, err := r.ReadU64()
				if err != nil {
					return fmt.Errorf("script section: property hash: %w", err)
				}
				rawType, err := r.ReadU32()
				if err != nil {
					return fmt.Errorf("script section: property type: %w", err)
				}
				value, err := r.ReadString()
				if err != nil {
					return fmt.Errorf("script section: property value: %w", err)
				}
				inst.properties = append(inst.properties, &Property{
					NameHash:    hash,
					Type:        PropertyType(rawType),
					StoredValue: value,
				})
			}
			cmp.instances = append(cmp.instances, inst)
			if path != "" {
				m.setPath(inst, path)
			}
		}
	}
	return nil
}

func sortedEntities[V any](set map[ecs.Entity]V) []ecs.Entity {
	out := make([]ecs.Entity, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
