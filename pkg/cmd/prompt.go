package cmd

import (
	"context"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
)

// errStopCue is returned by prompt when a stop cue is reached.
var errStopCue = errors.New("stop cue")

// prompt applies every cue due at or before now, starting at cue
// index next. It returns the index of the first cue not yet due.
func (ap *app) prompt(ctx context.Context, now tqueue.Time, next int) (int, error) {
	for ; next < len(ap.cfg.cues); next++ {
		c := ap.cfg.cues[next]
		if c.at > now {
			break
		}
		cueCtx := logtags.AddTag(ctx, "cue", next+1)
		ap.narrate(I, "🎬", "%s", c)
		if err := ap.applyCue(cueCtx, c); err != nil {
			if errors.Is(err, errStopCue) {
				return next + 1, err
			}
			return next, errors.WithContextTags(errors.Wrapf(err, "%s", c), cueCtx)
		}
	}
	return next, nil
}

func (ap *app) applyCue(ctx context.Context, c *cue) error {
	st := ap.st
	switch c.verb {
	case cuePause:
		st.maker.PauseCombat(ctx, st.env)
		return nil
	case cueResume:
		st.maker.ResumeCombat(ctx, st.env)
		return nil
	case cueStop:
		return errStopCue
	case cueStart:
		sc := ap.cfg.scripts[c.subject]
		obj := st.object(sc.obj)
		if obj == nil {
			log.Infof(ctx, "%s is gone, not starting %s", sc.obj, c.subject)
			return nil
		}
		st.env.Run(obj, 0, sc.code)
		return nil
	case cueRemove:
		obj := st.object(c.subject)
		if obj == nil {
			log.Infof(ctx, "%s already gone", c.subject)
			return nil
		}
		st.env.Remove(obj)
		return nil
	}

	a := st.byName[c.subject]
	if a == nil {
		return errors.AssertionFailedf("unknown actor %s", c.subject)
	}
	if !a.Live() {
		// Removed actors ignore their cues.
		log.Infof(ctx, "%s is no longer in the world", a.Name())
		return nil
	}
	switch c.verb {
	case cueSchedule:
		a.SetScheduleType(c.schedType)
	case cueWalk:
		a.SetScheduleAndLoc(c.schedType, c.tile, 0)
	case cueTarget:
		obj := st.object(c.arg)
		if obj == nil {
			log.Infof(ctx, "target %s is gone", c.arg)
			return nil
		}
		a.SetTarget(obj, true)
	case cueHealth:
		a.SetHealth(c.n)
	case cueFlag:
		a.SetFlag(c.flag)
	case cueUnflag:
		a.ClearFlag(c.flag)
	case cueMove:
		a.Move(c.tile)
	case cueSay:
		a.Say(c.arg)
	default:
		return errors.AssertionFailedf("unhandled cue %d", c.verb)
	}
	return nil
}

// liveActors counts the cast members still in the world.
func liveActors(cast []*npc.Actor) int {
	n := 0
	for _, a := range cast {
		if a.Live() && !a.IsDead() {
			n++
		}
	}
	return n
}
