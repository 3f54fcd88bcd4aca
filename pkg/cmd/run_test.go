package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach/pkg/util/leaktest"
	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/cockroach/pkg/util/timeutil"
	"github.com/cockroachdb/datadriven"
)

func TestRun(t *testing.T) {
	includePath := []string{filepath.Join("testdata", "include"), ""}
	datadriven.Walk(t, filepath.Join("testdata", "run"), func(t *testing.T, path string) {
		if strings.HasSuffix(path, "~") ||
			strings.HasPrefix(path, ".#") ||
			strings.HasSuffix(path, ".cfg") {
			return
		}
		includePath[1] = filepath.Dir(path)
		datadriven.RunTest(t, path, func(d *datadriven.TestData) string {
			defer leaktest.AfterTest(t)()

			// Prepare a log scope for the test.
			sc := log.Scope(t)
			defer sc.Close(t)

			rd, err := newReaderFromString("<testdata>", d.Input)
			if err != nil {
				t.Fatal(err)
			}
			rd.includePath = includePath
			defer rd.close()
			cfg := newConfig()

			// Make the report go to a separate directory for this test.
			workDir, err := ioutil.TempDir("", "npcsim-test")
			if err != nil {
				t.Fatal(err)
			}
			defer func() {
				if !t.Failed() {
					if err := os.RemoveAll(workDir); err != nil {
						t.Error(err)
					}
				} else {
					t.Logf("report and logs to be found in: %s", workDir)
				}
			}()
			cfg.dataDir = workDir

			if err := cfg.parseCfg(context.TODO(), rd); err != nil {
				t.Fatalf("parse error: %s\n", renderError(err))
			}

			expectError := false
			for _, arg := range d.CmdArgs {
				switch arg.Key {
				case "error":
					expectError = true
				case "duration":
					dur, err := time.ParseDuration(arg.Vals[0])
					if err != nil {
						t.Fatal(err)
					}
					cfg.duration = dur
				}
			}

			// Disable non-determistic narration output.
			cfg.avoidTimeProgress = true
			cfg.asciiOnly = true
			cfg.seed = 1

			// Ensure the test terminates in a timely manner.
			ctx, bye := context.WithDeadline(context.TODO(), timeutil.Now().Add(5*time.Second))
			defer bye()

			// Write the narration in memory.
			var out bytes.Buffer
			cfg.narration = &out

			err = cfg.simulate(ctx)

			if expectError {
				if err == nil {
					t.Errorf("test:\n  %s\nexpected error, got success",
						strings.ReplaceAll(d.Input, "\n", "\n  "),
					)
				} else {
					fmt.Fprintf(&out, "run error: %v\n", err)
				}
			} else if err != nil {
				t.Errorf("expected success, got error: %+v", err)
			}

			if _, err := os.Stat(filepath.Join(workDir, reportFileName)); err != nil {
				t.Errorf("report not written: %v", err)
			}

			return out.String()
		})
	})
}
