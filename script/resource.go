// Package script binds the scripting VM to a live entity-component world:
// per-entity script instances with hot-reload, a generic property store, a
// begin/add/end function-call protocol, and world-section serialization.
package script

import (
	"fmt"

	"github.com/milk9111/scripthost/resource"
	"github.com/milk9111/scripthost/wire"
)

// Source is the script resource asset: compiled-from-source blob holding a
// dependency header followed by raw source text. Dependencies are strong
// references acquired at load and released at unload.
type Source struct {
	path string
	mgr  *resource.Manager

	source string
	deps   []*resource.Resource
}

// SourceFactory builds Source assets for a resource manager.
func SourceFactory(path string, m *resource.Manager) resource.Asset {
	return &Source{path: path, mgr: m}
}

// Load parses the blob: u32 dependency count, that many null-terminated
// dependency paths (each recursively loaded through the manager), then the
// remaining bytes as source text. Malformed headers are rejected.
func (s *Source) Load(data []byte) error {
	r := wire.NewReader(data)
	numDeps, err := r.ReadCount(1)
	if err != nil {
		return fmt.Errorf("script %s: dependency header: %w", s.path, err)
	}
	for i := uint32(0); i < numDeps; i++ {
		depPath, err := r.ReadString()
		if err != nil {
			return fmt.Errorf("script %s: dependency %d: %w", s.path, i, err)
		}
		s.deps = append(s.deps, s.mgr.Load(depPath))
	}
	s.source = string(r.Tail())
	return nil
}

// Unload releases all dependency references and clears the source text.
func (s *Source) Unload() {
	for _, dep := range s.deps {
		s.mgr.Release(dep)
	}
	s.deps = nil
	s.source = ""
}

// SourceCode returns the script text. Empty exactly when unloaded.
func (s *Source) SourceCode() string {
	return s.source
}

// Dependencies returns the currently held dependency references.
func (s *Source) Dependencies() []*resource.Resource {
	return s.deps
}
