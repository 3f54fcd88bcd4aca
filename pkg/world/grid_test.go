package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonst719/exult-sub000/pkg/world"
)

func TestGridBlocked(t *testing.T) {
	objs := world.NewObjects()
	g := world.NewGrid(6, 4, objs)
	g.AddWall(2, 0, 2, 2)

	for y := 0; y <= 2; y++ {
		assert.True(t, g.IsWall(2, y), "wall at 2,%d", y)
	}
	assert.False(t, g.IsWall(2, 3))
	assert.True(t, g.Blocked(world.Tile{X: -1}), "outside of the map")
	assert.True(t, g.Blocked(world.Tile{X: 6, Y: 1}), "outside of the map")

	rock := world.NewItem("rock", 300, 1, world.Tile{X: 4, Y: 3})
	objs.Add(rock)
	assert.False(t, g.Blocked(rock.Tile()), "non-solid items do not block")
	rock.SetSolid(true)
	assert.True(t, g.Blocked(rock.Tile()))
	objs.Remove(rock.ID())
	assert.False(t, g.Blocked(rock.Tile()))
}

func TestGridFindSpot(t *testing.T) {
	objs := world.NewObjects()
	g := world.NewGrid(5, 5, objs)

	at := world.Tile{X: 2, Y: 2}
	spot, ok := g.FindSpot(at, 0)
	require.True(t, ok)
	assert.Equal(t, at, spot)

	g.AddWall(2, 2, 2, 2)
	spot, ok = g.FindSpot(at, 0)
	assert.False(t, ok)
	assert.Equal(t, world.NoTile, spot)

	// The first ring is scanned row by row.
	spot, ok = g.FindSpot(at, 1)
	require.True(t, ok)
	assert.Equal(t, world.Tile{X: 1, Y: 1}, spot)
}

func TestRecorder(t *testing.T) {
	objs := world.NewObjects()
	lamp := world.NewItem("lamp", 338, 2, world.Tile{X: 1, Y: 1})
	objs.Add(lamp)

	var calls int
	r := &world.Recorder{OnCall: func(fun int, item world.Object, ev world.Event) {
		calls++
		assert.Equal(t, world.DoubleClick, ev)
		objs.Remove(item.ID())
	}}
	r.Say(lamp, "hello")
	r.Call(0x401, lamp, world.DoubleClick)
	r.Sfx(12, nil)

	assert.Equal(t, 1, calls)
	assert.Nil(t, objs.Lookup(lamp.ID()))
	assert.True(t, r.SfxPlaying(12))
	r.StopSfx(12)
	assert.False(t, r.SfxPlaying(12))

	assert.Equal(t, []string{
		`lamp says "hello"`,
		"call 0x401 on lamp (double_click)",
		"sfx 12 at <nil>",
	}, r.Drain())
	assert.Empty(t, r.Drain())
}

func TestTableArmory(t *testing.T) {
	arm := world.TableArmory{
		599: {Name: "sword", Damage: 4},
		597: {Name: "bow", Damage: 3, Range: 8, AmmoFamily: 722},
	}
	sword, ok := arm.Weapon(599)
	require.True(t, ok)
	assert.False(t, sword.Ranged())
	assert.Equal(t, 1, sword.EffectiveRange())

	bow, ok := arm.Weapon(597)
	require.True(t, ok)
	assert.True(t, bow.Ranged())
	assert.Equal(t, 8, bow.EffectiveRange())

	_, ok = arm.Weapon(1)
	assert.False(t, ok)
}
