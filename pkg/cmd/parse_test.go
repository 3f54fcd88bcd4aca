package cmd

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/wonst719/exult-sub000/pkg/tqueue"
)

func TestParse(t *testing.T) {
	includePath := []string{filepath.Join("testdata", "include")}
	datadriven.Walk(t, filepath.Join("testdata", "parse"), func(t *testing.T, path string) {
		if strings.HasSuffix(path, "~") || strings.HasPrefix(path, ".#") {
			return
		}
		datadriven.RunTest(t, path, func(d *datadriven.TestData) string {
			// First round of parse.
			rd, err := newReaderFromString("<testdata>", d.Input)
			if err != nil {
				t.Fatal(err)
			}
			rd.includePath = includePath
			defer rd.close()
			cfg := newConfig()
			if err := cfg.parseCfg(context.TODO(), rd); err != nil {
				return fmt.Sprintf("parse error: %s\n", renderError(err))
			}
			var out bytes.Buffer
			cfg.printCfg(&out, false)

			if out.String() != d.Expected {
				// Shortcut, don't even bother parsing a second time.
				return out.String()
			}

			// Second round of parse.
			rd2, err := newReaderFromString("<testdata-reparse>", out.String())
			if err != nil {
				t.Fatal(err)
			}
			rd2.includePath = includePath
			cfg = newConfig()
			if err := cfg.parseCfg(context.TODO(), rd2); err != nil {
				t.Fatalf("reparse error: %s\n", renderError(err))
			}
			var out2 bytes.Buffer
			cfg.printCfg(&out2, false)

			if out.String() != out2.String() {
				t.Errorf("parse/print is not idempotent; got:\n  %s\nexpected:\n  %s",
					strings.ReplaceAll(out2.String(), "\n", "\n  "),
					strings.ReplaceAll(out.String(), "\n", "\n  "),
				)
			}
			return out.String()
		})
	})
}

func renderError(err error) string {
	var buf bytes.Buffer
	RenderError(&buf, err)
	return buf.String()
}

func TestPreprocReplace(t *testing.T) {
	cfg := newConfig()
	cfg.defines = []string{"who=bob", "hp=12", "who=ann", "empty"}
	if err := cfg.parseDefines(); err != nil {
		t.Fatal(err)
	}

	testData := []struct {
		in, out string
		err     string
	}{
		{"actor $who", "actor bob", ""},
		{"stats hp ${hp}0", "stats hp 120", ""},
		{"x${empty}y", "xy", ""},
		{"no vars here", "no vars here", ""},
		{"$nope", "", `undefined variable: $nope`},
	}
	for _, test := range testData {
		t.Run(test.in, func(t *testing.T) {
			res, err := cfg.preprocReplace(test.in)
			if test.err != "" {
				if err == nil || err.Error() != test.err {
					t.Fatalf("expected error %q, got %v", test.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res != test.out {
				t.Errorf("expected %q, got %q", test.out, res)
			}
		})
	}
}

func TestParseGameTime(t *testing.T) {
	testData := []struct {
		in  string
		exp tqueue.Time
		ok  bool
	}{
		{"0", 0, true},
		{"1500", 1500, true},
		{"1.5s", 1500, true},
		{"2m", 120000, true},
		{"-1", 0, false},
		{"-1s", 0, false},
		{"soon", 0, false},
	}
	for _, test := range testData {
		t.Run(test.in, func(t *testing.T) {
			v, err := parseGameTime(test.in)
			if (err == nil) != test.ok {
				t.Fatalf("expected ok=%v, got %v", test.ok, err)
			}
			if v != test.exp {
				t.Errorf("expected %d, got %d", test.exp, v)
			}
		})
	}
}

func TestCheckIdent(t *testing.T) {
	testData := []struct {
		in   string
		hint string
	}{
		{"bob", ""},
		{"_x1", ""},
		{"été", ""},
		{"", ""},
		{"a-b", "try this instead: a_b"},
		{"1st", "try this instead: _1st"},
	}
	for _, test := range testData {
		t.Run(test.in, func(t *testing.T) {
			err := checkIdent(test.in)
			switch {
			case test.in == "":
				if err == nil {
					t.Fatal("expected error")
				}
			case test.hint == "":
				if err != nil {
					t.Fatal(err)
				}
			default:
				if err == nil {
					t.Fatal("expected error")
				}
				if r := renderError(err); !strings.HasSuffix(r, "HINT: "+test.hint) {
					t.Errorf("expected hint %q, got:\n%s", test.hint, r)
				}
			}
		})
	}
}
