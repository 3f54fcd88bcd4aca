package cmd

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/testutils"
)

func TestFormatError(t *testing.T) {
	tt := testutils.T{T: t}

	coll := errorCollection{
		errs: []error{
			errors.WithHint(errors.New("waa"), "woo"),
			errors.New("woo"),
		},
	}

	ref := `2 errors:
(1) waa
    HINT: woo
(2) woo`
	tt.CheckEqual(coll.Error(), ref)
	tt.CheckEqual(renderError(&coll), ref)
}

func TestCombineErrors(t *testing.T) {
	tt := testutils.T{T: t}

	e1 := errors.New("a")
	e2 := errors.New("b")
	e3 := errors.New("c")

	tt.Check(combineErrors(nil, nil) == nil)
	tt.Check(combineErrors(e1, nil) == e1)
	tt.Check(combineErrors(nil, e2) == e2)

	c := combineErrors(combineErrors(e1, e2), combineErrors(nil, e3))
	coll, ok := c.(*errorCollection)
	tt.Assert(ok)
	tt.CheckEqual(len(coll.errs), 3)

	// The last error is the cause.
	tt.Check(errors.Is(c, e3))
	tt.Check(errors.Is(errors.Wrap(c, "outer"), e3))

	c = combineErrors(e1, errAuditViolation)
	tt.Check(errors.Is(c, errAuditViolation))
}
