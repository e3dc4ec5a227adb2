package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowbridge/rowbridge/internal/pipeline"
)

func TestCompileExprSyntaxError(t *testing.T) {
	ev := NewEvaluator()
	_, err := ev.CompileExpr("bad", "data.name ===")
	require.Error(t, err)
	var verr *pipeline.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestExprEval(t *testing.T) {
	ev := NewEvaluator()
	expr, err := ev.CompileExpr("calc", `"User: " + data.name`)
	require.NoError(t, err)

	v, err := expr.Eval(map[string]any{"name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "User: Alice", v)
}

func TestExprAttributeAndIndexAccess(t *testing.T) {
	ev := NewEvaluator()
	rec := map[string]any{"user": map[string]any{"name": "Bob"}}

	attr, err := ev.CompileExpr("attr", `data.user.name`)
	require.NoError(t, err)
	v, err := attr.Eval(rec)
	require.NoError(t, err)
	assert.Equal(t, "Bob", v)

	idx, err := ev.CompileExpr("idx", `data["user"]["name"]`)
	require.NoError(t, err)
	v, err = idx.Eval(rec)
	require.NoError(t, err)
	assert.Equal(t, "Bob", v)
}

func TestExprEvalTruth(t *testing.T) {
	ev := NewEvaluator()
	expr, err := ev.CompileExpr("filter", `data.active == True`)
	require.NoError(t, err)

	keep, err := expr.EvalTruth(map[string]any{"active": true})
	require.NoError(t, err)
	assert.True(t, keep)

	keep, err = expr.EvalTruth(map[string]any{"active": false})
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestExprRuntimeError(t *testing.T) {
	ev := NewEvaluator()
	expr, err := ev.CompileExpr("boom", `data.missing + 1`)
	require.NoError(t, err)

	_, err = expr.Eval(map[string]any{"present": 1})
	require.Error(t, err)
}

func TestExprNumericResult(t *testing.T) {
	ev := NewEvaluator()
	expr, err := ev.CompileExpr("sum", `data.a + data.b`)
	require.NoError(t, err)

	v, err := expr.Eval(map[string]any{"a": float64(2), "b": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, float64(5), v)
}

func TestCompileTransformRequiresFunction(t *testing.T) {
	ev := NewEvaluator()
	_, err := ev.CompileTransform("t", `x = 1`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transform script must define a function transform(data)")
}

func TestCompileTransformSyntaxError(t *testing.T) {
	ev := NewEvaluator()
	_, err := ev.CompileTransform("t", `def transform(data`)
	require.Error(t, err)
	var verr *pipeline.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestTransformRun(t *testing.T) {
	ev := NewEvaluator()
	tr, err := ev.CompileTransform("t", `
def transform(data):
    return [row for row in data if row["keep"]]
`)
	require.NoError(t, err)

	out, err := tr.Run([]any{
		map[string]any{"keep": true, "id": float64(1)},
		map[string]any{"keep": false, "id": float64(2)},
	})
	require.NoError(t, err)

	rows, ok := out.([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(1), rows[0].(map[string]any)["id"])
}

func TestTransformRuntimeErrorWrapped(t *testing.T) {
	ev := NewEvaluator()
	tr, err := ev.CompileTransform("t", `
def transform(data):
    return data["nope"]
`)
	require.NoError(t, err)

	_, err = tr.Run(map[string]any{"a": 1})
	require.Error(t, err)
	var terr *pipeline.TransformError
	require.True(t, errors.As(err, &terr))
	assert.Contains(t, err.Error(), "custom transformation failed")
}

func TestTransformStringInput(t *testing.T) {
	ev := NewEvaluator()
	tr, err := ev.CompileTransform("t", `
def transform(data):
    return data.upper()
`)
	require.NoError(t, err)

	out, err := tr.Run("a,b\n1,2\n")
	require.NoError(t, err)
	assert.Equal(t, "A,B\n1,2\n", out)
}

func TestRoundTripConversions(t *testing.T) {
	in := map[string]any{
		"s": "x",
		"f": 1.5,
		"b": true,
		"n": nil,
		"l": []any{float64(1), "two"},
		"m": map[string]any{"inner": "v"},
	}

	sv, err := toStarlark(in)
	require.NoError(t, err)
	out, err := fromStarlark(sv)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFromStarlarkIntBecomesInt64(t *testing.T) {
	ev := NewEvaluator()
	expr, err := ev.CompileExpr("int", `1 + 2`)
	require.NoError(t, err)

	v, err := expr.Eval(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}
