package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/cockroach/pkg/util/timeutil"
	"github.com/cockroachdb/errors"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
	"github.com/wonst719/exult-sub000/pkg/world"
)

// observation is the state of the cast after one tick. Observations
// are shared read-only between the collector and the audition.
type observation struct {
	at     tqueue.Time
	hour   int
	paused bool
	actors []actorObs
	// events are the transitions reported by the actors during the tick.
	events []traceEvent
}

type actorObs struct {
	name     string
	schedule string
	// state is the combat state, or "-" outside of combat.
	state     string
	health    int
	tile      world.Tile
	dead      bool
	asleep    bool
	paralyzed bool
	// strikes and switches are running totals.
	strikes  int
	switches int
}

type traceEvent struct {
	at     tqueue.Time
	actor  string
	what   string
	detail string
}

// vars presents the observation to audience expressions.
func (o *observation) vars() map[string]interface{} {
	vars := map[string]interface{}{
		"t":      float64(o.at),
		"hour":   float64(o.hour),
		"paused": o.paused,
	}
	for i := range o.actors {
		a := &o.actors[i]
		p := a.name + " "
		vars[p+"schedule"] = a.schedule
		vars[p+"state"] = a.state
		vars[p+"health"] = float64(a.health)
		vars[p+"x"] = float64(a.tile.X)
		vars[p+"y"] = float64(a.tile.Y)
		vars[p+"z"] = float64(a.tile.Z)
		vars[p+"dead"] = a.dead
		vars[p+"asleep"] = a.asleep
		vars[p+"paralyzed"] = a.paralyzed
		vars[p+"strikes"] = float64(a.strikes)
		vars[p+"switches"] = float64(a.switches)
	}
	return vars
}

const (
	traceFileName  = "trace.csv"
	eventsFileName = "events.csv"
)

// collect writes the observations to the trace files in the output
// directory until obsCh is closed.
func (ap *app) collect(
	ctx context.Context, dataLogger *log.SecondaryLogger, obsCh <-chan *observation,
) (resErr error) {
	of := newOutputFiles(ap.cfg.dataDir)
	defer func() {
		if err := of.CloseAll(); err != nil && resErr == nil {
			resErr = err
		}
	}()

	traceW, err := of.getWriter(traceFileName)
	if err != nil {
		return errors.Wrap(err, "opening the trace")
	}
	fmt.Fprintln(traceW, "t,actor,schedule,state,health,x,y,z,dead,asleep")
	eventsW, err := of.getWriter(eventsFileName)
	if err != nil {
		return errors.Wrap(err, "opening the event log")
	}
	fmt.Fprintln(eventsW, "t,actor,event,detail")

	t := timeutil.NewTimer()
	defer t.Stop()
	t.Reset(time.Second)

	for {
		select {
		case <-ap.stopper.ShouldQuiesce():
			log.Info(ctx, "interrupted")
			return nil

		case <-ctx.Done():
			log.Info(ctx, "canceled")
			return wrapCtxErr(ctx)

		case <-t.C:
			t.Read = true
			t.Reset(time.Second)
			of.Flush()

		case obs, ok := <-obsCh:
			if !ok {
				return nil
			}
			for _, a := range obs.actors {
				fmt.Fprintf(traceW, "%d,%s,%s,%s,%d,%d,%d,%d,%t,%t\n",
					obs.at, a.name, a.schedule, a.state, a.health,
					a.tile.X, a.tile.Y, a.tile.Z, a.dead, a.asleep)
			}
			for _, ev := range obs.events {
				fmt.Fprintf(eventsW, "%d,%s,%s,%q\n", ev.at, ev.actor, ev.what, ev.detail)
				dataLogger.Logf(ctx, "%d %s %s %s", ev.at, ev.actor, ev.what, ev.detail)
			}
		}
	}
}

// audit feeds the observations to the audition until obsCh is
// closed. With early exit, the first violation is reported on errCh.
func (ap *app) audit(
	ctx context.Context, obsCh <-chan *observation, errCh chan<- error,
) error {
	for {
		select {
		case <-ap.stopper.ShouldQuiesce():
			log.Info(ctx, "interrupted")
			return nil

		case <-ctx.Done():
			log.Info(ctx, "canceled")
			return wrapCtxErr(ctx)

		case obs, ok := <-obsCh:
			if !ok {
				return nil
			}
			if err := ap.au.observe(ctx, obs); err != nil {
				if errors.Is(err, errAuditViolation) {
					// Stop the simulation; the violation is reported at the end.
					select {
					case errCh <- err:
					default:
					}
					continue
				}
				return err
			}
		}
	}
}
