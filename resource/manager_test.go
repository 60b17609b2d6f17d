package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAsset records load/unload calls and optionally loads a dependency
// through the manager, mimicking how script resources pull in includes.
type fakeAsset struct {
	path    string
	mgr     *Manager
	depPath string
	dep     *Resource
	data    []byte
	loadErr error
	unloads int
}

func (a *fakeAsset) Load(data []byte) error {
	if a.loadErr != nil {
		return a.loadErr
	}
	a.data = data
	if a.depPath != "" {
		a.dep = a.mgr.Load(a.depPath)
	}
	return nil
}

func (a *fakeAsset) Unload() {
	a.data = nil
	a.unloads++
	if a.dep != nil {
		a.mgr.Release(a.dep)
		a.dep = nil
	}
}

func newTestManager(files map[string][]byte, deps map[string]string) (*Manager, map[string]*fakeAsset) {
	assets := map[string]*fakeAsset{}
	read := func(path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, errors.New("no such file")
		}
		return data, nil
	}
	var m *Manager
	m = NewManager(func(path string, mgr *Manager) Asset {
		a := &fakeAsset{path: path, mgr: mgr, depPath: deps[path]}
		assets[path] = a
		return a
	}, read, zap.NewNop())
	return m, assets
}

func TestLoadDedupeAndRefCount(t *testing.T) {
	m, assets := newTestManager(map[string][]byte{"a.tengo": []byte("x")}, nil)

	r1 := m.Load("a.tengo")
	r2 := m.Load("a.tengo")
	require.Same(t, r1, r2)
	require.Equal(t, StateLoading, r1.State())

	m.Flush()
	require.Equal(t, StateReady, r1.State())
	require.Equal(t, []byte("x"), assets["a.tengo"].data)

	m.Release(r1)
	require.NotNil(t, m.Get("a.tengo"), "still referenced")
	m.Release(r2)
	require.Nil(t, m.Get("a.tengo"))
	require.Equal(t, 1, assets["a.tengo"].unloads)
}

func TestObserversAndReload(t *testing.T) {
	m, _ := newTestManager(map[string][]byte{"a.tengo": []byte("x")}, nil)

	r := m.Load("a.tengo")
	var transitions []State
	id := r.Subscribe(func(old, new State, res *Resource) {
		transitions = append(transitions, new)
	})

	m.Flush()
	require.Equal(t, []State{StateReady}, transitions)

	require.NoError(t, m.Reload("a.tengo"))
	m.Flush()
	require.Equal(t, []State{StateReady, StateEmpty, StateLoading, StateReady}, transitions)

	r.Unsubscribe(id)
	require.NoError(t, m.Reload("a.tengo"))
	m.Flush()
	require.Len(t, transitions, 4, "unsubscribed observer stays silent")

	require.ErrorIs(t, m.Reload("missing.tengo"), ErrUnknownResource)
}

func TestLoadFailure(t *testing.T) {
	m, _ := newTestManager(map[string][]byte{}, nil)

	r := m.Load("missing.tengo")
	m.Flush()
	require.Equal(t, StateFailed, r.State())
	require.Error(t, r.Failure())
}

func TestDependencyChainAndSelfCycle(t *testing.T) {
	t.Run("chain", func(t *testing.T) {
		m, _ := newTestManager(
			map[string][]byte{"a.tengo": []byte("a"), "b.tengo": []byte("b")},
			map[string]string{"a.tengo": "b.tengo"},
		)
		r := m.Load("a.tengo")
		m.Flush() // parses a, which loads b
		m.Flush() // parses b
		require.Equal(t, StateReady, r.State())
		require.Equal(t, StateReady, m.Get("b.tengo").State())

		m.Release(r)
		require.Nil(t, m.Get("b.tengo"), "dependency released with owner")
	})

	t.Run("self_cycle_terminates", func(t *testing.T) {
		m, _ := newTestManager(
			map[string][]byte{"cyclic.tengo": []byte("c")},
			map[string]string{"cyclic.tengo": "cyclic.tengo"},
		)
		r := m.Load("cyclic.tengo")
		m.Flush()
		require.Equal(t, StateReady, r.State())
		require.Same(t, r, m.Get("cyclic.tengo"), "dedupe yields a single entry")
	})
}
