package cmd

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// outputFiles manages the buffered files written to the output
// directory.
type outputFiles struct {
	dir     string
	files   map[string]*os.File
	writers map[string]*bufio.Writer
}

func newOutputFiles(dir string) *outputFiles {
	return &outputFiles{
		dir:     dir,
		files:   make(map[string]*os.File),
		writers: make(map[string]*bufio.Writer),
	}
}

// CloseAll flushes and closes every file. It returns the first error
// encountered.
func (o *outputFiles) CloseAll() error {
	var res error
	for name, f := range o.files {
		if err := o.writers[name].Flush(); err != nil && res == nil {
			res = errors.Wrapf(err, "writing %s", name)
		}
		if err := f.Close(); err != nil && res == nil {
			res = errors.Wrapf(err, "closing %s", name)
		}
	}
	o.files = nil
	o.writers = nil
	return res
}

func (o *outputFiles) Flush() {
	for _, w := range o.writers {
		_ = w.Flush()
	}
}

// path is where name is written.
func (o *outputFiles) path(name string) string { return filepath.Join(o.dir, name) }

// getWriter opens name in the output directory, truncating it the
// first time.
func (o *outputFiles) getWriter(name string) (*bufio.Writer, error) {
	w, ok := o.writers[name]
	if !ok {
		f, err := os.OpenFile(o.path(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", name)
		}
		o.files[name] = f
		w = bufio.NewWriter(f)
		o.writers[name] = w
	}
	return w, nil
}
