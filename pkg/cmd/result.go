package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Result is the machine-readable summary of a simulation.
type Result struct {
	// npcsim version used to produce the result.
	Version string

	// The random seed, to reproduce the run.
	Seed int64

	// Whether an audit violation or an error was detected.
	Foul bool

	// The rendered error object.
	Error string

	// The wall time at the start of the simulation in standard format.
	Timestamp string

	// The game time and hour when the simulation stopped.
	StopTime int64
	StopHour int

	// The canonical scenario.
	Config string

	// The config hash (FNV 32-bit).
	ConfigHash uint32

	// The config hash in a human-friendly form (easy to read aloud).
	ConfigName string

	Cast []CastResult

	// Verdicts maps auditors to their final state.
	Verdicts map[string]string

	Violations []string

	// Artifacts.
	Artifacts []Artifact
}

// CastResult summarizes one actor.
type CastResult struct {
	Name      string
	Status    string
	Schedule  string
	Health    int
	Switches  int
	Strikes   int
	Hits      int
	Misses    int
	Flights   int
	Deaths    int
	Schedules map[string]int
}

type Artifact struct {
	// Note: the JSON tags are chosen to match the requirements
	// from jsTree.
	FileName    string `json:"text"`
	Path        string
	Icon        string `json:"icon"`
	IsDir       bool
	ContentType string
	Children    []Artifact `json:"children,omitempty"`
}

func (ap *app) assemble(ctx context.Context, foundErr error) *Result {
	st := ap.st
	r := &Result{
		Version:   versionName,
		Seed:      ap.cfg.seed,
		Foul:      foundErr != nil,
		Timestamp: ap.epoch.Format(time.RFC3339),
		StopTime:  ap.stopAt,
		StopHour:  st.env.Hour(),
		Verdicts:  make(map[string]string, len(ap.cfg.audienceNames)),
	}

	var buf bytes.Buffer
	ap.cfg.printCfg(&buf, true /*skipComments*/)
	r.Config = buf.String()
	h := fnv.New32()
	h.Write(buf.Bytes())
	r.ConfigHash = h.Sum32()
	r.ConfigName = GenName(int64(r.ConfigHash))

	if foundErr != nil {
		buf.Reset()
		RenderError(&buf, foundErr)
		r.Error = buf.String()
	}

	for _, a := range st.cast {
		s := st.stats[a.Name()]
		cr := CastResult{
			Name:      a.Name(),
			Status:    "active",
			Schedule:  st.scheduleName(a.ScheduleType()),
			Health:    a.Health(),
			Switches:  s.switches,
			Strikes:   s.strikes,
			Hits:      s.hits,
			Misses:    s.misses,
			Flights:   s.flees,
			Deaths:    s.died,
			Schedules: s.schedules,
		}
		switch {
		case !a.Live():
			cr.Status = "removed"
		case a.IsDead():
			cr.Status = "dead"
		}
		r.Cast = append(r.Cast, cr)
	}

	for _, an := range ap.cfg.audienceNames {
		r.Verdicts[an] = ap.au.verdict(an)
	}
	for _, v := range ap.au.violations {
		r.Violations = append(r.Violations,
			fmt.Sprintf("%d: %s dissatisfied (was %s)", v.at, v.auditorName, v.state))
	}
	return r
}

func (ap *app) collectArtifacts(r *Result) {
	a := ap.collectArtifactsRec(ap.cfg.dataDir)
	r.Artifacts = append(r.Artifacts, a.Children...)
}

func (ap *app) collectArtifactsRec(dir string) Artifact {
	a := Artifact{
		FileName: filepath.Base(dir),
		IsDir:    true,
		Icon:     "📁",
	}
	a.Path, _ = filepath.Rel(ap.cfg.dataDir, dir)
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		name := filepath.Base(path)
		if (strings.HasPrefix(name, "#") && strings.HasSuffix(name, "#")) || strings.HasSuffix(name, "~") {
			// Editor temp files. Ignore.
			return nil
		}
		if info.IsDir() {
			subA := ap.collectArtifactsRec(path)
			if len(subA.Children) > 0 {
				a.Children = append(a.Children, subA)
			}
			return filepath.SkipDir
		}
		subA := Artifact{FileName: name}
		subA.Path, _ = filepath.Rel(ap.cfg.dataDir, path)
		subA.ContentType, subA.Icon = detectType(path)
		a.Children = append(a.Children, subA)
		return nil
	})
	return a
}

func detectType(path string) (string, string) {
	switch filepath.Ext(path) {
	case ".csv":
		return "text/csv", "📈"
	case ".json":
		return "application/json", "📜"
	case ".log", ".txt":
		return "text/plain", "📄"
	}
	return "application/octet-stream", "👾"
}

const resultFileName = "result.json"

func (ap *app) writeResult(ctx context.Context, res *Result) error {
	fName := filepath.Join(ap.cfg.dataDir, resultFileName)
	res.Artifacts = append(res.Artifacts, Artifact{
		FileName:    resultFileName,
		Path:        resultFileName,
		ContentType: "application/json",
		Icon:        "📜",
	})
	j, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.Create(fName)
	if err != nil {
		return err
	}
	defer f.Close()
	if !ap.cfg.avoidTimeProgress {
		ap.narrate(I, "📜", "result JSON: %s", fName)
	}
	_, err = f.Write(j)
	return err
}
