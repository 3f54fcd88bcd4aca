package cmd

import (
	"math"

	"github.com/Knetic/govaluate"
	"github.com/cockroachdb/errors"
)

// evalFunctions are available to audience expressions.
var evalFunctions = map[string]govaluate.ExpressionFunction{
	// Normalized difference of two scalars.
	// ndiff(x, y) = N  means "the value x differs from y by +/- N%"
	// The second scalar is the reference value.
	"ndiff": func(args ...interface{}) (interface{}, error) {
		x, err := numArgs("ndiff", 2, args)
		if err != nil {
			return nil, err
		}
		diff := math.Abs(x[0] - x[1])
		ref := math.Abs(x[1])
		return diff / ref, nil
	},

	// Absolute value.
	"abs": func(args ...interface{}) (interface{}, error) {
		x, err := numArgs("abs", 1, args)
		if err != nil {
			return nil, err
		}
		return math.Abs(x[0]), nil
	},

	// dist(x1, y1, x2, y2) counts king moves between two tiles.
	"dist": func(args ...interface{}) (interface{}, error) {
		x, err := numArgs("dist", 4, args)
		if err != nil {
			return nil, err
		}
		return math.Max(math.Abs(x[0]-x[2]), math.Abs(x[1]-x[3])), nil
	},

	"min": func(args ...interface{}) (interface{}, error) {
		x, err := numArgs("min", 2, args)
		if err != nil {
			return nil, err
		}
		return math.Min(x[0], x[1]), nil
	},

	"max": func(args ...interface{}) (interface{}, error) {
		x, err := numArgs("max", 2, args)
		if err != nil {
			return nil, err
		}
		return math.Max(x[0], x[1]), nil
	},
}

// numArgs checks the arity of a function call and converts its
// arguments to scalars.
func numArgs(name string, n int, args []interface{}) ([]float64, error) {
	if len(args) != n {
		return nil, errors.Newf("%s: expected %d arguments, got %d", name, n, len(args))
	}
	res := make([]float64, n)
	for i, a := range args {
		x, ok := scalarConv(a)
		if !ok {
			return nil, errors.Newf("%s: expected scalar, got: %T", name, a)
		}
		res[i] = x
	}
	return res, nil
}

// scalarConv accepts numbers and booleans.
func scalarConv(x interface{}) (float64, bool) {
	switch t := x.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case float64:
		return t, true
	}
	return 0, false
}
