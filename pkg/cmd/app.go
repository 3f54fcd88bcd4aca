package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/cockroach/pkg/util/stop"
	"github.com/cockroachdb/cockroach/pkg/util/timeutil"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/ttycolor"
	"github.com/mattn/go-isatty"
	"golang.org/x/crypto/ssh/terminal"
)

type app struct {
	cfg     *config
	stopper *stop.Stopper

	st *stage
	au *audition

	// epoch is the wall time at the start of the simulation.
	epoch time.Time

	// stopAt is the time at which the simulation stopped, set by the
	// conductor.
	stopAt int64

	out struct {
		sync.Mutex
		w io.Writer
		// tty is set when w is a terminal; narration is then colored
		// and the witness column is aligned to the terminal width.
		tty bool
	}
}

func newApp(cfg *config) *app {
	ap := &app{
		cfg:   cfg,
		au:    newAudition(cfg),
		epoch: timeutil.Now(),
	}
	ap.out.w = cfg.narration
	if ap.out.w == nil {
		ap.out.w = os.Stdout
	}
	if f, ok := ap.out.w.(*os.File); ok {
		ap.out.tty = !cfg.asciiOnly && isatty.IsTerminal(f.Fd())
	}
	return ap
}

// severity of narration messages.
type severity int

const (
	// I is informational.
	I severity = iota
	// W is a warning.
	W
	// E is an error.
	E
)

func (s severity) color() ttycolor.Code {
	switch s {
	case W:
		return ttycolor.Yellow
	case E:
		return ttycolor.Red
	}
	return ttycolor.Cyan
}

var narratorCtx = logtags.AddTag(context.Background(), "narrator", nil)

// narrate reports a simulation milestone to the user.
func (ap *app) narrate(sev severity, symbol, format string, args ...interface{}) {
	switch sev {
	case E:
		log.Errorf(narratorCtx, format, args...)
	case W:
		log.Warningf(narratorCtx, format, args...)
	default:
		log.Infof(narratorCtx, format, args...)
	}
	if ap.cfg.quiet {
		return
	}
	if ap.cfg.asciiOnly {
		symbol = "--"
	}
	s := fmt.Sprintf(format, args...)
	ap.out.Lock()
	defer ap.out.Unlock()
	if ap.out.tty {
		fmt.Fprintf(ap.out.w, "%s %s%s%s\n", symbol,
			ttycolor.StdoutProfile[sev.color()], s, ttycolor.StdoutProfile[ttycolor.Reset])
		return
	}
	fmt.Fprintf(ap.out.w, "%s %s\n", symbol, s)
}

// witness reports what happens in the world: speech and script calls.
func (ap *app) witness(ctx context.Context, format string, args ...interface{}) {
	log.Infof(ctx, format, args...)
	if ap.cfg.quiet {
		return
	}
	ap.column(1, 2, "👀", fmt.Sprintf(format, args...))
}

// woops reports an anomaly observed by the audience.
func (ap *app) woops(ctx context.Context, format string, args ...interface{}) {
	log.Infof(ctx, format, args...)
	if ap.cfg.quiet {
		return
	}
	ap.column(2, 1, "😞", fmt.Sprintf(format, args...))
}

// column prints s indented by num/3 of the terminal width, truncated
// to the remaining width/3 columns. Outside of a terminal the text is
// printed as-is.
func (ap *app) column(indent, span int, symbol, s string) {
	ap.out.Lock()
	defer ap.out.Unlock()
	if !ap.out.tty {
		if ap.cfg.asciiOnly {
			fmt.Fprintf(ap.out.w, "  %s\n", s)
		} else {
			fmt.Fprintf(ap.out.w, "  %s %s\n", symbol, s)
		}
		return
	}
	width, _, err := terminal.GetSize(int(os.Stdout.Fd()))
	if width == 0 || err != nil {
		fmt.Fprintf(ap.out.w, "%s %s\n", symbol, s)
		return
	}
	if max := span*width/3 - 3; max > 0 && len(s) > max {
		s = s[:max] + "..."
	}
	fmt.Fprintf(ap.out.w, "%*s%s%s\n", indent*width/3-2, " ", symbol, s)
}

func (ap *app) intro() {
	var behaviors string
	if n := len(ap.cfg.behaviorNames); n > 0 {
		behaviors = fmt.Sprintf(" and %d behavior classes", n)
	}
	ap.narrate(I, "🏰", "welcome to a world of %dx%d tiles, with %d actors%s",
		ap.cfg.world.w, ap.cfg.world.h, len(ap.cfg.actorNames), behaviors)
	var watch []string
	if n := len(ap.cfg.audienceNames); n > 0 {
		watch = append(watch, fmt.Sprintf("%d auditors", n))
	}
	if n := len(ap.cfg.cues); n > 0 {
		watch = append(watch, fmt.Sprintf("%d cues", n))
	}
	extra := ""
	if len(watch) > 0 {
		extra = " with " + strings.Join(watch, " and ")
	}
	ap.narrate(I, "⏳", "the day starts at %d:00; simulating %s of game time%s",
		ap.cfg.startHour, ap.cfg.duration, extra)
}
