package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
)

// errorCollection is the combination of the errors encountered by
// the different stages of a run. The last error is considered the
// cause.
type errorCollection struct {
	errs []error
}

var _ error = (*errorCollection)(nil)
var _ fmt.Formatter = (*errorCollection)(nil)

func combineErrors(err1, err2 error) error {
	if err1 == nil {
		return err2
	}
	if err2 == nil {
		return err1
	}
	var errs []error
	for _, err := range []error{err1, err2} {
		if c, ok := err.(*errorCollection); ok {
			errs = append(errs, c.errs...)
		} else {
			errs = append(errs, err)
		}
	}
	return &errorCollection{errs: errs}
}

func (e *errorCollection) Error() string {
	var buf bytes.Buffer
	e.render(&buf, "", func(w io.Writer, err error) { RenderError(w, err) })
	return buf.String()
}

// render prints the numbered list of errors, with each entry's
// continuation lines aligned under its first line.
func (e *errorCollection) render(w io.Writer, indent string, fn func(io.Writer, error)) {
	fmt.Fprintf(w, "%d errors:", len(e.errs))
	for i, err := range e.errs {
		var eb bytes.Buffer
		fn(&eb, err)
		s := strings.Replace(eb.String(), "\n", "\n"+indent+"    ", -1)
		fmt.Fprintf(w, "\n%s(%d) %s", indent, i+1, s)
	}
}

func (e *errorCollection) Cause() error  { return e.errs[len(e.errs)-1] }
func (e *errorCollection) Unwrap() error { return e.errs[len(e.errs)-1] }

func (e *errorCollection) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		e.render(s, "", func(w io.Writer, err error) {
			fmt.Fprintf(w, "%+v", err)
		})
		return
	}
	io.WriteString(s, e.Error())
}

// wrapCtxErr reports the cancellation of ctx at the caller's position.
func wrapCtxErr(ctx context.Context) error {
	return errors.WithContextTags(errors.WithStackDepth(ctx.Err(), 1), ctx)
}

// RenderError prints err for the user: its message followed by its
// context tags, details and hints.
func RenderError(w io.Writer, err error) {
	if c, ok := err.(*errorCollection); ok {
		io.WriteString(w, c.Error())
		return
	}
	fmt.Fprintf(w, "%v", err)
	if bufs := errors.GetContextTags(err); len(bufs) > 0 {
		var buf *logtags.Buffer
		for _, b := range bufs {
			buf = buf.Merge(b)
		}
		fmt.Fprintf(w, "\n--\n(context of error: %s)", buf)
	}
	if d := errors.FlattenDetails(err); d != "" {
		fmt.Fprintf(w, "\n--\n%s", d)
	}
	if d := errors.FlattenHints(err); d != "" {
		fmt.Fprintf(w, "\nHINT: %s", d)
	}
}
