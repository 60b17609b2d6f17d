package ecs

import (
	"testing"

	"github.com/milk9111/scripthost/ecs/component"
	"github.com/stretchr/testify/require"
)

func TestEntityLifecycle(t *testing.T) {
	cases := []struct {
		name         string
		create       int
		destroyIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_create_destroy_middle", 3, 1},
		{"none_destroy", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := NewWorld()
			ents := make([]Entity, 0, c.create)
			for i := 0; i < c.create; i++ {
				ents = append(ents, w.CreateEntity())
			}
			for _, e := range ents {
				require.True(t, w.IsAlive(e))
			}
			if c.destroyIndex >= 0 {
				require.True(t, w.DestroyEntity(ents[c.destroyIndex]))
				require.False(t, w.IsAlive(ents[c.destroyIndex]))
				require.False(t, w.DestroyEntity(ents[c.destroyIndex]), "double destroy should fail")
			}
		})
	}
}

func TestGenerationReuse(t *testing.T) {
	w := NewWorld()
	e1 := w.CreateEntity()
	require.True(t, w.DestroyEntity(e1))
	e2 := w.CreateEntity()
	require.NotEqual(t, e1, e2, "recycled id must carry a new generation")
	require.False(t, w.IsAlive(e1))
	require.True(t, w.IsAlive(e2))
}

func TestComponentsAndNames(t *testing.T) {
	w := NewWorld()
	h := component.NewComponent[int]()

	e1 := w.CreateEntity()
	e2 := w.CreateEntity()

	require.NoError(t, Add(w, e1, h, 10))
	require.NoError(t, Add(w, e2, h, 20))

	v, ok := Get(w, e1, h)
	require.True(t, ok)
	require.Equal(t, 10, v)

	require.True(t, Mutate(w, e1, h, func(p *int) { *p = 11 }))
	v, _ = Get(w, e1, h)
	require.Equal(t, 11, v)

	require.True(t, Remove(w, e1, h))
	require.False(t, Has(w, e1, h))
	require.True(t, Has(w, e2, h))

	dead := w.CreateEntity()
	w.DestroyEntity(dead)
	require.ErrorIs(t, Add(w, dead, h, 1), component.ErrEntityNotAlive)

	w.SetName(e1, "player")
	require.Equal(t, "player", w.Name(e1))
	require.Equal(t, e1, w.FindByName("player"))
	require.Equal(t, InvalidEntity, w.FindByName("missing"))

	w.DestroyEntity(e2)
	require.False(t, Has(w, e2, h), "components removed with entity")
}

func TestEntityMap(t *testing.T) {
	var m EntityMap
	require.Equal(t, Entity(7), m.Get(7), "nil map is identity")

	m = EntityMap{Entity(7): Entity(9)}
	require.Equal(t, Entity(9), m.Get(7))
	require.Equal(t, Entity(3), m.Get(3))
}
