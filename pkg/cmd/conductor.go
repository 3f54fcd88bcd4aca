package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/cockroach/pkg/util/timeutil"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
)

// obsBuffer is the number of observations that can be in flight
// towards each worker.
const obsBuffer = 64

// conduct runs the simulation.
func (ap *app) conduct(ctx context.Context) (err error) {
	// The trace events and audit transitions go to secondary loggers.
	dataLogger := log.NewSecondaryLogger(ctx, nil, "collector", true /*enableGc*/, false /*forceSyncWrite*/)
	auditLogger := log.NewSecondaryLogger(ctx, nil, "audit", true /*enableGc*/, false /*forceSyncWrite*/)
	defer func() { log.Flush() }()
	ap.au.logger = auditLogger

	st, err := buildStage(logtags.AddTag(ctx, "stage", nil), ap.cfg, ap.cfg.seed)
	if err != nil {
		return err
	}
	ap.st = st

	errCh := make(chan error, 3)
	defer func() {
		close(errCh)
		err = collectErrors(ctx, errCh, "simulation")
	}()

	// Every observation goes to both the collector and the audition.
	colCh := make(chan *observation, obsBuffer)
	audCh := make(chan *observation, obsBuffer)
	violCh := make(chan error, 1)

	var wg sync.WaitGroup
	ap.startWorker(ctx, &wg, "collector", errCh, func(ctx context.Context) error {
		return ap.collect(ctx, dataLogger, colCh)
	})
	ap.startWorker(ctx, &wg, "audit", errCh, func(ctx context.Context) error {
		return ap.audit(ctx, audCh, violCh)
	})
	defer func() {
		log.Info(ctx, "requesting the workers to exit")
		close(colCh)
		close(audCh)
		wg.Wait()
	}()

	simCtx := logtags.AddTag(ctx, "sim", nil)
	log.Info(simCtx, "<start>")
	if err := ap.simulate(simCtx, []chan<- *observation{colCh, audCh}, violCh); err != nil {
		errCh <- errors.Wrap(err, "simulation")
	}
	log.Info(simCtx, "<end>")

	// errors are collected by the defer above.
	return nil
}

// startWorker runs fn in the background until it returns.
func (ap *app) startWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	name string,
	errCh chan<- error,
	fn func(context.Context) error,
) {
	wCtx := logtags.AddTag(ctx, name, nil)
	wg.Add(1)
	runWorker(wCtx, ap.stopper, func(ctx context.Context) {
		defer wg.Done()
		log.Info(ctx, "<intrat>")
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- errors.Wrap(err, name)
		}
		log.Info(ctx, "<exit>")
	})
}

// simulate advances the game clock tick by tick until the end of the
// requested duration, a stop cue or an audit violation with early
// exit.
func (ap *app) simulate(
	ctx context.Context, obsChs []chan<- *observation, violCh <-chan error,
) error {
	st := ap.st
	step := tqueue.Time(ap.cfg.stdDelay)
	end := tqueue.Time(ap.cfg.duration / time.Millisecond)

	tm := timeutil.NewTimer()
	defer tm.Stop()
	wallStart := timeutil.Now()

	nextCue := 0
	for now := tqueue.Time(0); ; now += step {
		var err error
		nextCue, err = ap.prompt(ctx, now, nextCue)
		stopCue := errors.Is(err, errStopCue)
		if err != nil && !stopCue {
			return err
		}

		st.env.Queue.Activate(now)
		for _, l := range st.rec.Drain() {
			ap.witness(ctx, "%d: %s", now, l)
		}
		obs := st.observe()
		for _, ev := range obs.events {
			switch ev.what {
			case "died", "resurrected", "removed":
				ap.narrate(W, "⚰️", "%d: %s %s", ev.at, ev.actor, ev.what)
			}
		}
		for _, ch := range obsChs {
			select {
			case <-ap.stopper.ShouldQuiesce():
				log.Info(ctx, "interrupted")
				return nil
			case <-ctx.Done():
				return wrapCtxErr(ctx)
			case ch <- obs:
			}
		}
		ap.stopAt = int64(now)

		switch {
		case stopCue:
			log.Infof(ctx, "stopped by cue at %d", now)
			return nil
		case now >= end:
			return nil
		case liveActors(st.cast) == 0:
			ap.narrate(I, "🕯", "%d: nobody is left standing", now)
			return nil
		}

		// Pace the simulation according to the tempo. With no tempo,
		// only check for interruptions.
		var wait <-chan time.Time
		if ap.cfg.tempo > 0 {
			due := wallStart.Add(time.Duration(now+step) * ap.cfg.tempo / time.Duration(1000))
			tm.Reset(due.Sub(timeutil.Now()))
			wait = tm.C
		} else {
			c := make(chan time.Time, 1)
			c <- time.Time{}
			wait = c
		}
		select {
		case <-ap.stopper.ShouldQuiesce():
			log.Info(ctx, "interrupted")
			return nil
		case <-ctx.Done():
			return wrapCtxErr(ctx)
		case err := <-violCh:
			ap.woops(ctx, "%d: stopping at the first audit violation", now)
			log.Infof(ctx, "early exit: %v", err)
			return nil
		case <-wait:
			if ap.cfg.tempo > 0 {
				tm.Read = true
			}
		}
	}
}

// collectErrors drains errCh, which must be closed by the caller, and
// combines the errors received.
func collectErrors(ctx context.Context, errCh <-chan error, prefix string) error {
	var err error
	numErr := 0
	for stErr := range errCh {
		if stErr == nil {
			continue
		}
		log.Errorf(ctx, "complaint during %s: %+v", prefix, stErr)
		err = combineErrors(err, stErr)
		numErr++
	}
	if numErr > 1 {
		return errors.Wrapf(err, "%d %s errors", numErr, prefix)
	}
	return err
}
