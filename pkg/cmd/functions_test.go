package cmd

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/Knetic/govaluate"
)

func TestFunctions(t *testing.T) {
	testData := []struct {
		x    interface{}
		y    interface{}
		expr string
		res  interface{}
	}{
		{x: 120., y: 100., expr: "ndiff(x,y)", res: .20},
		{x: -120., expr: "abs(x)", res: 120.},
		{x: true, expr: "abs(x)", res: 1.},
		{x: 3., y: 7., expr: "min(x,y)", res: 3.},
		{x: 3., y: 7., expr: "max(x,y)", res: 7.},
		{x: 2., y: 5., expr: "dist(x,y,4,1)", res: 4.},
		{x: 2., y: 5., expr: "dist(x,y,x,y)", res: 0.},
	}

	for _, test := range testData {
		t.Run(fmt.Sprintf("%v/%v", test.expr, test.x), func(t *testing.T) {
			compiledExp, err := govaluate.NewEvaluableExpressionWithFunctions(test.expr, evalFunctions)
			if err != nil {
				t.Fatal(err)
			}

			vars := map[string]interface{}{
				"x": test.x,
				"y": test.y,
			}
			res, err := compiledExp.Eval(govaluate.MapParameters(vars))
			if err != nil {
				t.Fatal(err)
			}

			if !reflect.DeepEqual(res, test.res) {
				t.Errorf("expected %+v, got %+v", test.res, res)
			}
		})
	}
}

func TestFunctionErrors(t *testing.T) {
	testData := []struct {
		expr string
		err  string
	}{
		{"abs(1, 2)", "abs: expected 1 arguments, got 2"},
		{"min(1)", "min: expected 2 arguments, got 1"},
		{`abs("x")`, "abs: expected scalar, got: string"},
	}

	for _, test := range testData {
		t.Run(test.expr, func(t *testing.T) {
			compiledExp, err := govaluate.NewEvaluableExpressionWithFunctions(test.expr, evalFunctions)
			if err != nil {
				t.Fatal(err)
			}
			_, err = compiledExp.Evaluate(nil)
			if err == nil || err.Error() != test.err {
				t.Errorf("expected error %q, got %v", test.err, err)
			}
		})
	}
}
