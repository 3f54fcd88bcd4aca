package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/cockroach/pkg/util/log"
	"github.com/cockroachdb/errors"
)

// maxIncludeDepth bounds nested include directives.
const maxIncludeDepth = 10

// reader produces the logical lines of a scenario, following
// include directives.
type reader struct {
	// readers is the stack of open inputs, innermost last.
	readers []*subreader
	// includePath is searched for included files.
	includePath []string
	// preproc, when set, is applied to every logical line.
	preproc func(string) (string, error)
}

type subreader struct {
	rd *bufio.Reader
	// f is nil when reading from stdin or a string.
	f *os.File
	// file and lineno are used for position reporting.
	file   string
	lineno int
	// lines holds every physical line read so far.
	lines []string
	// parent is the input that included this one.
	parent *subreader
}

func newReader(ctx context.Context, file string, includePath []string) (*reader, error) {
	r, err := openSubReader(ctx, file, includePath)
	if err != nil {
		return nil, err
	}
	return &reader{readers: []*subreader{r}, includePath: includePath}, nil
}

func newReaderFromString(file string, data string) (*reader, error) {
	sr := &subreader{
		lineno: 1,
		file:   file,
		rd:     bufio.NewReader(strings.NewReader(data)),
	}
	return &reader{readers: []*subreader{sr}}, nil
}

func hasLocalDir(includePath []string) bool {
	for _, i := range includePath {
		if i == "." {
			return true
		}
	}
	return false
}

func openSubReader(ctx context.Context, file string, includePath []string) (*subreader, error) {
	r := &subreader{lineno: 1, file: file}
	if file == "-" {
		r.file = "<stdin>"
		r.rd = bufio.NewReader(os.Stdin)
		return r, nil
	}
	for _, p := range includePath {
		fName := filepath.Join(p, file)
		f, err := os.Open(fName)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		r.f = f
		r.file = fName
		r.rd = bufio.NewReader(f)
		log.Infof(ctx, "reading scenario from %s", r.file)
		return r, nil
	}
	err := errors.Wrap(os.ErrNotExist, file)
	return nil, errors.WithDetailf(err, "include search path: %+v", includePath)
}

func (r *reader) close() {
	for _, sr := range r.readers {
		sr.close()
	}
}

func (r *subreader) close() {
	if r.f != nil {
		_ = r.f.Close()
	}
}

type pos struct {
	lineno int
	r      *subreader
}

// contextLines is how many lines around an error are shown.
const contextLines = 2

// wrapErr annotates err with the position and the surrounding input.
func (p *pos) wrapErr(err error) error {
	err = errors.WrapWithDepthf(1, err, "%s:%d", p.r.file, p.lineno)

	cur := p.lineno - 1
	if cur >= len(p.r.lines) {
		cur = len(p.r.lines) - 1
	}
	if cur < 0 {
		return err
	}
	from, to := cur-contextLines, cur+contextLines
	if from < 0 {
		from = 0
	}
	if to >= len(p.r.lines) {
		to = len(p.r.lines) - 1
	}
	var buf strings.Builder
	buf.WriteString("while parsing:")
	for i := from; i <= to; i++ {
		mark := "  "
		if i == cur {
			mark = "> "
		}
		fmt.Fprintf(&buf, "\n%s:%-3d %s%s", p.r.file, i+1, mark, strings.TrimSuffix(p.r.lines[i], "\n"))
	}
	err = errors.WithDetail(err, buf.String())

	if p.r.parent != nil {
		buf.Reset()
		buf.WriteString("in file included from:")
		for r := p.r.parent; r != nil; r = r.parent {
			fmt.Fprintf(&buf, "\n%s:%d <- here", r.file, r.lineno-1)
		}
		err = errors.WithDetail(err, buf.String())
	}
	return err
}

// readLine returns the next logical line. skip is set for lines that
// carry nothing for the caller (blanks, comments, includes); stop is
// set at the end of the input.
func (r *reader) readLine(ctx context.Context) (line string, p pos, stop, skip bool, err error) {
	sr := r.readers[len(r.readers)-1]
	line, p, eof, err := sr.readLogical()
	if err != nil {
		return "", p, true, false, err
	}

	if ignoreLine(line) {
		if !eof {
			return "", p, false, true, nil
		}
		if len(r.readers) > 1 {
			// Back to the including file.
			r.readers = r.readers[:len(r.readers)-1]
			sr.close()
			return "", p, false, true, nil
		}
		return "", p, true, false, nil
	}

	if strings.HasPrefix(line, "include ") {
		if len(r.readers) >= maxIncludeDepth {
			return "", p, true, false, p.wrapErr(errors.New("include depth limit exceeded"))
		}
		fName := strings.TrimSpace(strings.TrimPrefix(line, "include "))
		// Includes are searched first next to the including file.
		includePath := append([]string{filepath.Dir(sr.file)}, r.includePath...)
		inc, err := openSubReader(ctx, fName, includePath)
		if err != nil {
			return "", p, true, false, p.wrapErr(err)
		}
		inc.parent = sr
		r.readers = append(r.readers, inc)
		return "", p, false, true, nil
	}

	if r.preproc != nil {
		line, err = r.preproc(line)
		if err != nil {
			return "", p, true, false, p.wrapErr(err)
		}
	}
	if eof && len(r.readers) > 1 {
		r.readers = r.readers[:len(r.readers)-1]
		sr.close()
	}
	return line, p, false, false, nil
}

// readLogical joins physical lines ending with a backslash.
func (r *subreader) readLogical() (line string, p pos, eof bool, err error) {
	p = pos{lineno: r.lineno, r: r}
	var buf strings.Builder
	for {
		oneline, err := r.rd.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", p, true, p.wrapErr(err)
		}
		eof = err == io.EOF
		if oneline != "" || !eof {
			r.lines = append(r.lines, oneline)
			r.lineno++
		}
		if strings.HasSuffix(oneline, "\\\n") {
			buf.WriteString(strings.TrimSuffix(oneline, "\\\n"))
			buf.WriteByte('\n')
			continue
		}
		buf.WriteString(strings.TrimSuffix(oneline, "\n"))
		if eof && strings.HasSuffix(oneline, "\\") {
			return "", p, true, p.wrapErr(errors.New("EOF encountered while expecting line continuation"))
		}
		break
	}
	return strings.TrimSpace(buf.String()), p, eof, nil
}

// Empty lines and comment lines are ignored.
func ignoreLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "#")
}
