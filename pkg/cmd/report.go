package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

const reportFileName = "report.txt"

// printReport summarizes the state of the cast and the verdict of the
// audience at the end of the simulation.
func (ap *app) printReport(w io.Writer) {
	st := ap.st
	fmt.Fprintf(w, "simulation stopped at %d (hour %d)\n", ap.stopAt, st.env.Hour())

	fmt.Fprintln(w, "cast:")
	for _, a := range st.cast {
		s := st.stats[a.Name()]
		var status string
		switch {
		case !a.Live():
			status = "removed"
		case a.IsDead():
			status = "dead"
		default:
			status = fmt.Sprintf("%s at %s, health %d", st.scheduleName(a.ScheduleType()), a.Tile(), a.Health())
		}
		fmt.Fprintf(w, "  %s: %s\n", a.Name(), status)
		fmt.Fprintf(w, "    %s\n", s)
		if s.died > 0 || s.gaveUp > 0 || s.talks > 0 {
			fmt.Fprintf(w, "    %d deaths, %d pursuits abandoned, %d conversations\n", s.died, s.gaveUp, s.talks)
		}
		if len(s.schedules) > 0 {
			names := make([]string, 0, len(s.schedules))
			for n := range s.schedules {
				names = append(names, n)
			}
			sort.Strings(names)
			var parts []string
			for _, n := range names {
				parts = append(parts, fmt.Sprintf("%s:%d", n, s.schedules[n]))
			}
			fmt.Fprintf(w, "    schedules: %s\n", strings.Join(parts, " "))
		}
	}

	if len(ap.cfg.audienceNames) == 0 {
		return
	}
	fmt.Fprintln(w, "audience:")
	for _, an := range ap.cfg.audienceNames {
		fmt.Fprintf(w, "  %s: %s\n", an, ap.au.verdict(an))
	}
	if len(ap.au.violations) == 0 {
		return
	}
	fmt.Fprintln(w, "violations:")
	for _, v := range ap.au.violations {
		final := ""
		if v.final {
			final = ", at the end of the audit period"
		}
		fmt.Fprintf(w, "  %d: %s dissatisfied (was %s%s)\n", v.at, v.auditorName, v.state, final)
	}
}

// writeReport writes the report to the output directory, and to the
// narration unless quiet.
func (ap *app) writeReport(ctx context.Context) error {
	if ap.st == nil {
		// The stage was never built.
		return nil
	}
	of := newOutputFiles(ap.cfg.dataDir)
	w, err := of.getWriter(reportFileName)
	if err != nil {
		return err
	}
	ap.printReport(w)
	if err := of.CloseAll(); err != nil {
		return err
	}
	if !ap.cfg.quiet {
		ap.out.Lock()
		ap.printReport(ap.out.w)
		ap.out.Unlock()
	}
	if !ap.cfg.avoidTimeProgress {
		ap.narrate(I, "📄", "report: %s", of.path(reportFileName))
	}
	return nil
}
