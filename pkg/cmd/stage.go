package cmd

import (
	"context"
	"fmt"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/schedule"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// Screen size around the camera.
const screenW, screenH = 20, 15

// stage is the simulated world built from a scenario.
type stage struct {
	cfg   *config
	objs  *world.Objects
	grid  *world.Grid
	rec   *world.Recorder
	env   *npc.Env
	maker *schedule.Maker

	// cast is in definition order.
	cast   []*npc.Actor
	byName map[string]*npc.Actor
	stats  map[string]*actorStats

	// pending are the trace events of the current tick.
	pending []traceEvent
}

// actorStats are the running totals reported at the end.
type actorStats struct {
	switches  int
	strikes   int
	hits      int
	misses    int
	flees     int
	gaveUp    int
	died      int
	talks     int
	schedules map[string]int
}

// buildStage creates the world, the actors and their schedules.
func buildStage(ctx context.Context, cfg *config, seed int64) (*stage, error) {
	ws := cfg.world
	st := &stage{
		cfg:    cfg,
		objs:   world.NewObjects(),
		rec:    &world.Recorder{},
		maker:  cfg.newMaker(),
		byName: make(map[string]*npc.Actor),
		stats:  make(map[string]*actorStats),
	}
	st.grid = world.NewGrid(ws.w, ws.h, st.objs)
	for _, wl := range ws.walls {
		st.grid.AddWall(wl[0], wl[1], wl[2], wl[3])
	}
	if ws.loaded != nil {
		st.grid.SetLoaded(*ws.loaded)
	}
	if ws.camera != nil {
		st.grid.SetCamera(*ws.camera, screenW, screenH)
	}
	for _, is := range ws.items {
		it := world.NewItem(is.name, is.shape, is.nframes, is.at)
		it.SetFrame(is.frame)
		it.SetQuality(is.quality)
		st.objs.Add(it)
	}

	st.env = npc.NewEnv(ctx, st.objs, npc.Options{
		Map:         st.grid,
		Paths:       &world.AStar{M: st.grid, Objs: st.objs},
		Armory:      ws.armory(),
		Usecode:     st.rec,
		Media:       st.rec,
		Seed:        seed,
		StdDelay:    cfg.stdDelay,
		StartHour:   cfg.startHour,
		KilledBarks: true,
	})
	st.env.Trace = st.trace
	st.maker.Install(st.env)

	for _, an := range cfg.actorNames {
		as := cfg.actors[an]
		a := npc.NewActor(st.env, as.name, as.shape, as.at)
		a.SetProps(as.props)
		a.SetTraits(as.traits)
		a.SetAlignment(as.alignment)
		a.SetAttackMode(as.attack)
		a.SetFlag(as.flags)
		if as.party {
			a.SetFlag(npc.InParty)
		}
		for _, w := range as.spare {
			a.AddWeapon(w)
		}
		if as.weapon >= 0 {
			a.AddWeapon(as.weapon)
			a.SetWeapon(as.weapon)
		}
		a.SetAmmo(as.ammo)
		if as.post != nil {
			a.SetPost(*as.post)
		}
		if as.avatar {
			st.env.Avatar = world.RefTo(a)
		}
		st.cast = append(st.cast, a)
		st.byName[an] = a
		st.stats[an] = &actorStats{schedules: make(map[string]int)}
	}
	for _, an := range cfg.actorNames {
		if l := cfg.actors[an].leader; l != "" {
			st.byName[an].SetLeader(st.byName[l])
		}
	}

	// Schedules start once the whole cast is in place, so that they
	// can see each other.
	for _, a := range st.cast {
		t, ok := st.maker.Lookup(cfg.actors[a.Name()].schedName)
		if !ok {
			return nil, errors.AssertionFailedf("schedule %q not resolved", cfg.actors[a.Name()].schedName)
		}
		actx := logtags.AddTag(ctx, "npc", a.Name())
		log.VEventf(actx, 2, "starting with %s at %s", t, a.Tile())
		a.SetScheduleType(t)
	}
	return st, nil
}

// trace receives the transitions reported by actors and schedules.
func (st *stage) trace(a *npc.Actor, what, detail string) {
	st.pending = append(st.pending, traceEvent{
		at: st.env.Now(), actor: a.Name(), what: what, detail: detail,
	})
	s, ok := st.stats[a.Name()]
	if !ok {
		// Summoned creatures are not part of the cast.
		return
	}
	switch what {
	case "schedule":
		s.switches++
		s.schedules[st.scheduleName(a.ScheduleType())]++
	case "strike":
		s.strikes++
	case "hit":
		s.hits++
	case "miss":
		s.misses++
	case "flee":
		s.flees++
	case "give_up":
		s.gaveUp++
	case "died":
		s.died++
	case "talk":
		s.talks++
	}
}

// object finds an actor or an item by name.
func (st *stage) object(name string) world.Object {
	if a, ok := st.byName[name]; ok {
		return a
	}
	return st.objs.ByName(name)
}

// observe takes the observation of the current tick and forgets the
// pending events.
func (st *stage) observe() *observation {
	obs := &observation{
		at:     st.env.Now(),
		hour:   st.env.Hour(),
		paused: st.maker.CombatPaused(),
		actors: make([]actorObs, 0, len(st.cast)),
		events: st.pending,
	}
	st.pending = nil
	for _, a := range st.cast {
		o := actorObs{
			name:      a.Name(),
			schedule:  st.scheduleName(a.ScheduleType()),
			state:     "-",
			health:    a.Health(),
			tile:      a.Tile(),
			dead:      a.IsDead(),
			asleep:    a.Flag(npc.Asleep),
			paralyzed: a.Flag(npc.Paralyzed),
		}
		if c, ok := a.Schedule().(*schedule.Combat); ok {
			o.state = c.State()
		}
		if s := st.stats[a.Name()]; s != nil {
			o.strikes = s.strikes
			o.switches = s.switches
		}
		obs.actors = append(obs.actors, o)
	}
	return obs
}

// scheduleName names behavior classes by their scenario name.
func (st *stage) scheduleName(t npc.ScheduleType) string {
	if n, ok := st.maker.Scripted[t]; ok {
		return n
	}
	return t.String()
}

func (s *actorStats) String() string {
	return fmt.Sprintf("%d switches, %d strikes (%d hits, %d misses), %d flights",
		s.switches, s.strikes, s.hits, s.misses, s.flees)
}
