// Package script evaluates user-supplied Starlark code against pipeline
// data. Evaluation is hermetic: the only name in scope is data, there are no
// filesystem, network, or host bindings, and compilation failures surface
// before any conversion I/O happens.
package script

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/rowbridge/rowbridge/internal/pipeline"
)

var fileOpts = &syntax.FileOptions{}

// Evaluator compiles expressions and transform scripts. It holds no state
// between calls; it exists so call sites share one entry point and so tests
// can stub it.
type Evaluator struct{}

// NewEvaluator returns a ready evaluator.
func NewEvaluator() *Evaluator { return &Evaluator{} }

// Expr is a compiled single expression taking one data argument. Compile
// once per rule invocation, evaluate once per record.
type Expr struct {
	name string
	fn   starlark.Value
}

// CompileExpr validates and compiles a Starlark expression. The expression
// is wrapped in a lambda so the data binding is supplied per evaluation.
// A syntax error is a validation failure, caught before anything runs.
func (ev *Evaluator) CompileExpr(name, src string) (*Expr, error) {
	if _, err := syntax.ParseExpr(name, src, 0); err != nil {
		return nil, &pipeline.ValidationError{Msg: fmt.Sprintf("invalid expression %q", src), Err: err}
	}
	outer, err := starlark.ExprFuncOptions(fileOpts, name, "lambda data: ("+src+")", starlark.StringDict{})
	if err != nil {
		return nil, &pipeline.ValidationError{Msg: fmt.Sprintf("invalid expression %q", src), Err: err}
	}
	fn, err := starlark.Call(newThread(name), outer, nil, nil)
	if err != nil {
		return nil, &pipeline.ValidationError{Msg: fmt.Sprintf("invalid expression %q", src), Err: err}
	}
	return &Expr{name: name, fn: fn}, nil
}

// Eval runs the expression with data bound to the given value and converts
// the result back to the pipeline's Go shape.
func (e *Expr) Eval(data any) (any, error) {
	v, err := e.call(data)
	if err != nil {
		return nil, err
	}
	return fromStarlark(v)
}

// EvalTruth runs the expression and reports Starlark truthiness, for filter
// conditions.
func (e *Expr) EvalTruth(data any) (bool, error) {
	v, err := e.call(data)
	if err != nil {
		return false, err
	}
	return bool(v.Truth()), nil
}

func (e *Expr) call(data any) (starlark.Value, error) {
	arg, err := toStarlark(data)
	if err != nil {
		return nil, err
	}
	return starlark.Call(newThread(e.name), e.fn, starlark.Tuple{arg}, nil)
}

// Transform is a compiled whole-dataset script. The source must define a
// function transform(data) returning the new value.
type Transform struct {
	name string
	fn   *starlark.Function
}

// CompileTransform executes the script source in an empty module and looks
// up its transform function. Both syntax and load-time errors surface here,
// before any file I/O of the conversion itself.
func (ev *Evaluator) CompileTransform(name, src string) (*Transform, error) {
	globals, err := starlark.ExecFileOptions(fileOpts, newThread(name), name, src, starlark.StringDict{})
	if err != nil {
		return nil, &pipeline.ValidationError{Msg: "invalid transform script", Err: err}
	}
	fn, ok := globals["transform"].(*starlark.Function)
	if !ok {
		return nil, &pipeline.ValidationError{Msg: "transform script must define a function transform(data)"}
	}
	return &Transform{name: name, fn: fn}, nil
}

// Run applies the transform to data. A runtime failure is reported as a
// transform error; by then any converted file has already been written and
// is left untouched.
func (t *Transform) Run(data any) (any, error) {
	arg, err := toStarlark(data)
	if err != nil {
		return nil, &pipeline.TransformError{Stage: "custom transformation failed", Err: err}
	}
	res, err := starlark.Call(newThread(t.name), t.fn, starlark.Tuple{arg}, nil)
	if err != nil {
		return nil, &pipeline.TransformError{Stage: "custom transformation failed", Err: err}
	}
	out, err := fromStarlark(res)
	if err != nil {
		return nil, &pipeline.TransformError{Stage: "custom transformation failed", Err: err}
	}
	return out, nil
}

func newThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, _ string) {
			// Sandboxed code has no output channel.
		},
	}
}
