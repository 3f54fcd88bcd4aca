package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/cockroach/pkg/util/log/logflags"
	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/wonst719/exult-sub000/pkg/npc"
	"github.com/wonst719/exult-sub000/pkg/schedule"
)

// versionName is overridden at link time.
var versionName = "dev"

type config struct {
	// The output directory for the trace and the logs.
	dataDir string
	// Whether to print out the parsed scenario upon init.
	doPrint bool
	// Whether to stop after parsing and checking the scenario.
	parseOnly bool
	// Whether to stop upon the first audit violation.
	earlyExit bool
	// Whether to silence narration.
	quiet bool
	// Whether to avoid emojis and colors.
	asciiOnly bool
	// Disables reporting of wall time, to make the output deterministic
	// (used in tests).
	avoidTimeProgress bool
	// Where to write the narration messages.
	narration io.Writer
	// Where to copy the output directory after the simulation.
	uploadURL string
	// The shell used to run the upload command.
	shellPath string

	// The list of directories to search for includes.
	includePath []string
	// Additional lines of scenario, processed at end.
	extraScript []string
	// Preprocessing parameter definitions.
	defines []string
	// Preprocessing variables.
	pVars     map[string]string
	pVarNames []string

	// seed initializes the random source of the simulation.
	seed int64
	// duration is how much game time to simulate.
	duration time.Duration
	// tempo is the wall time spent per game second. Zero runs
	// as fast as possible.
	tempo time.Duration
	// stdDelay is the length of a tick in game milliseconds.
	stdDelay int
	// startHour is the hour of the game day at time zero.
	startHour int

	// world is the map and its furniture.
	world *worldSpec

	// actors is the cast, in definition order.
	actors     map[string]*actorSpec
	actorNames []string

	// behaviors are the scripted schedule classes.
	behaviors     map[string]*schedule.Behavior
	behaviorNames []string

	// scripts are the named scripts started by cues.
	scripts     map[string]*scriptSpec
	scriptNames []string

	// cues are the timed interventions, sorted by time after check().
	cues []*cue

	// audience is the set of auditors.
	audience      map[string]*audienceMember
	audienceNames []string
}

// newConfig creates a config with defaults.
func newConfig() *config {
	return &config{
		narration: os.Stdout,
		shellPath: "/bin/sh",
		pVars:     make(map[string]string),
		duration:  time.Minute,
		stdDelay:  npc.DefaultStdDelay,
		startHour: 6,
		actors:    make(map[string]*actorSpec),
		behaviors: make(map[string]*schedule.Behavior),
		scripts:   make(map[string]*scriptSpec),
		audience:  make(map[string]*audienceMember),
	}
}

func (cfg *config) initArgs(ctx context.Context) error {
	pflag.StringVarP(&cfg.dataDir, "output-dir", "o", ".", "output data directory")
	pflag.BoolVarP(&cfg.doPrint, "print-cfg", "p", false, "print out the parsed scenario")
	pflag.BoolVarP(&cfg.parseOnly, "dry-run", "n", false, "do not simulate anything, just check the scenario")
	pflag.BoolVarP(&cfg.quiet, "quiet", "q", false, "do not narrate the simulation")
	pflag.BoolVarP(&cfg.earlyExit, "stop-at-first-violation", "S", false, "terminate the simulation as soon as an auditor is dissatisfied")
	pflag.StringSliceVarP(&cfg.includePath, "search-dir", "I", []string{}, "add this directory to the search path for include directives")
	pflag.StringVarP(&cfg.uploadURL, "upload-url", "u", "", "upload the output directory to this URL (s3:, gs: or scp://)")
	pflag.StringVar(&cfg.shellPath, "shell", cfg.shellPath, "path to the shell used to run the upload command")
	pflag.BoolVar(&cfg.asciiOnly, "ascii-only", false, "do not display unicode emojis nor colors")
	pflag.Int64Var(&cfg.seed, "seed", 0, "random seed (0: derive from the clock)")
	pflag.DurationVarP(&cfg.duration, "duration", "d", cfg.duration, "game time to simulate")
	pflag.DurationVar(&cfg.tempo, "tempo", 0, "wall time per game second (0: as fast as possible)")
	var showVersion bool
	pflag.BoolVar(&showVersion, "version", false, "show version information and exit")
	pflag.StringSliceVarP(&cfg.extraScript, "extra-script", "s", []string{}, "additional lines of scenario, processed at end")
	pflag.StringSliceVarP(&cfg.defines, "define", "D", []string{}, "preprocessing variable definition (eg -Dfoo=bar)")

	// Load the go flag settings from the log package into pflag.
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	// We'll revisit this value in setupLogging().
	pflag.Lookup(logflags.LogToStderrName).NoOptDefVal = log.Severity_DEFAULT.String()

	pflag.Parse()

	if showVersion {
		fmt.Println("npcsim", versionName)
		os.Exit(0)
	}

	if cfg.duration <= 0 {
		return errors.Newf("invalid duration: %s", cfg.duration)
	}
	if cfg.tempo < 0 {
		return errors.Newf("invalid tempo: %s", cfg.tempo)
	}

	if err := cfg.parseDefines(); err != nil {
		return err
	}

	// Ensure the include path contains the current directory.
	if !hasLocalDir(cfg.includePath) {
		cfg.includePath = append(cfg.includePath, ".")
	}
	return nil
}

func (cfg *config) parseDefines() error {
	for _, d := range cfg.defines {
		dname, dval := d, ""
		if idx := strings.IndexByte(d, '='); idx >= 0 {
			dname, dval = d[:idx], d[idx+1:]
		}
		if err := checkIdent(dname); err != nil {
			return errors.Wrapf(err, "-D%s", d)
		}
		if _, ok := cfg.pVars[dname]; ok {
			// The first definition wins.
			continue
		}
		cfg.pVars[dname] = dval
		cfg.pVarNames = append(cfg.pVarNames, dname)
	}
	return nil
}

var pVarRe = regexp.MustCompile(`\$(?:\{([^}]*)\}|([\p{L}_][\p{L}\p{N}_]*))`)

// preprocReplace substitutes $name and ${name} by the value
// given with --define.
func (cfg *config) preprocReplace(line string) (string, error) {
	var err error
	res := pVarRe.ReplaceAllStringFunc(line, func(m string) string {
		sub := pVarRe.FindStringSubmatch(m)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		v, ok := cfg.pVars[name]
		if !ok && err == nil {
			err = explainAlternativesList(
				errors.Newf("undefined variable: $%s", name),
				"variables", cfg.pVarNames...)
		}
		return v
	})
	return res, err
}

// printCfg prints the scenario in its canonical form.
func (cfg *config) printCfg(w io.Writer, skipComments bool) {
	if !skipComments {
		fmt.Fprintln(w, "# scenario parsed by npcsim", versionName)
	}
	if cfg.world == nil {
		if !skipComments {
			fmt.Fprintln(w, "# no world defined")
		}
	} else {
		cfg.world.print(w)
	}

	for _, an := range cfg.actorNames {
		cfg.actors[an].print(w)
	}

	for _, bn := range cfg.behaviorNames {
		b := cfg.behaviors[bn]
		fmt.Fprintf(w, "behavior %s\n", b.Name)
		for _, r := range b.Rules {
			fmt.Fprintf(w, "  when %s then %s\n", r.Cond, r.Then)
		}
		if b.Otherwise.Kind != schedule.StepNone {
			fmt.Fprintf(w, "  otherwise %s\n", b.Otherwise)
		}
		fmt.Fprintf(w, "  poll %d\n", b.Poll)
		fmt.Fprintln(w, "end")
	}

	for _, sn := range cfg.scriptNames {
		sc := cfg.scripts[sn]
		fmt.Fprintf(w, "script %s on %s\n", sc.name, sc.obj)
		fmt.Fprintf(w, "  %s\n", sc.disassemble())
		fmt.Fprintln(w, "end")
	}

	if len(cfg.cues) == 0 {
		if !skipComments {
			fmt.Fprintln(w, "# no cues defined")
		}
	} else {
		fmt.Fprintln(w, "cues")
		for _, c := range cfg.cues {
			fmt.Fprintf(w, "  %s\n", c)
		}
		fmt.Fprintln(w, "end")
	}

	if len(cfg.audience) == 0 {
		if !skipComments {
			fmt.Fprintln(w, "# no audience defined")
		}
		return
	}
	fmt.Fprintln(w, "audience")
	for _, an := range cfg.audienceNames {
		a := cfg.audience[an]
		if a.activeCond.src != "" {
			fmt.Fprintf(w, "  %s audits only while %s\n", a.name, a.activeCond.src)
		}
		fmt.Fprintf(w, "  %s expects %s: %s\n", a.name, a.expectFsm.name, a.expectExpr.src)
		if !skipComments {
			deps := make([]string, 0, len(a.expectExpr.deps))
			for v := range a.expectExpr.deps {
				deps = append(deps, v.String())
			}
			sort.Strings(deps)
			fmt.Fprintf(w, "  # %s watches %s\n", a.name, strings.Join(deps, ", "))
		}
	}
	fmt.Fprintln(w, "end")
}
