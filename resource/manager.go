package resource

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReadFunc fetches raw bytes for a path. The default reads from disk; tests
// and embedded deployments supply their own.
type ReadFunc func(path string) ([]byte, error)

// Factory builds the typed asset for a path. The manager is passed through so
// assets can load their own dependencies.
type Factory func(path string, m *Manager) Asset

type loadResult struct {
	path string
	data []byte
	err  error
}

// Manager owns all resources of one type, deduped by path.
type Manager struct {
	log     *zap.Logger
	read    ReadFunc
	factory Factory

	entries map[string]*Resource

	mu        sync.Mutex
	completed []loadResult
	group     errgroup.Group
}

// NewManager creates a manager. read may be nil, in which case os.ReadFile is
// used.
func NewManager(factory Factory, read ReadFunc, log *zap.Logger) *Manager {
	if read == nil {
		read = os.ReadFile
	}
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		log:     log,
		read:    read,
		factory: factory,
		entries: map[string]*Resource{},
	}
	m.group.SetLimit(4)
	return m
}

// Load acquires a reference to the resource at path, starting an async read
// on first acquisition. Repeated loads of the same path return the same entry
// regardless of its state, which is what makes cyclic dependency chains
// terminate.
func (m *Manager) Load(path string) *Resource {
	if res, ok := m.entries[path]; ok {
		res.refs++
		return res
	}
	res := &Resource{path: path, refs: 1}
	res.asset = m.factory(path, m)
	m.entries[path] = res
	m.startRead(res)
	return res
}

// Get returns the existing entry for path without acquiring a reference.
func (m *Manager) Get(path string) *Resource {
	return m.entries[path]
}

// Release drops one reference. The last release unloads the asset and removes
// the entry.
func (m *Manager) Release(res *Resource) {
	if res == nil {
		return
	}
	res.refs--
	if res.refs > 0 {
		return
	}
	m.unload(res)
	delete(m.entries, res.path)
}

// Reload drops current data and re-reads the path, notifying observers of the
// Ready -> Empty -> Ready cycle. A reload of an unknown path is an error; a
// reload while a read is already in flight is ignored.
func (m *Manager) Reload(path string) error {
	res, ok := m.entries[path]
	if !ok {
		return ErrUnknownResource
	}
	if res.state == StateLoading {
		return nil
	}
	m.unload(res)
	m.startRead(res)
	return nil
}

// Poll delivers completed reads: parses data, transitions state, and fires
// observers, all on the calling thread. Call once per update cycle.
func (m *Manager) Poll() {
	m.mu.Lock()
	done := m.completed
	m.completed = nil
	m.mu.Unlock()

	for _, r := range done {
		res, ok := m.entries[r.path]
		if !ok || res.state != StateLoading {
			continue // released or reloaded while the read was in flight
		}
		if r.err == nil {
			r.err = res.asset.Load(r.data)
		}
		if r.err != nil {
			res.failure = r.err
			m.log.Error("resource load failed", zap.String("path", r.path), zap.Error(r.err))
			res.setState(StateFailed)
			continue
		}
		res.failure = nil
		res.setState(StateReady)
	}
}

// Flush waits for all in-flight reads and polls once. Intended for tests and
// for synchronous startup paths.
func (m *Manager) Flush() {
	_ = m.group.Wait()
	m.Poll()
}

func (m *Manager) startRead(res *Resource) {
	res.setState(StateLoading)
	path := res.path
	m.group.Go(func() error {
		data, err := m.read(path)
		m.mu.Lock()
		m.completed = append(m.completed, loadResult{path: path, data: data, err: err})
		m.mu.Unlock()
		return nil
	})
}

func (m *Manager) unload(res *Resource) {
	if res.state == StateReady || res.state == StateFailed {
		res.asset.Unload()
	}
	res.setState(StateEmpty)
}
