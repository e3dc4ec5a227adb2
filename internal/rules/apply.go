package rules

import (
	"fmt"

	"github.com/rowbridge/rowbridge/internal/pipeline"
	"github.com/rowbridge/rowbridge/internal/script"
)

// Apply folds the document's rules over data in document order. Each rule
// sees the cumulative output of all prior enabled rules; disabled rules are
// skipped entirely. Data is either a []any of records or a single
// map[string]any object. The input is never mutated.
//
// Any expression failure aborts the whole call: a half-applied rule set is
// never returned.
func Apply(data any, doc *Document, ev *script.Evaluator) (any, error) {
	result := data
	for i := range doc.Transformations {
		rule := &doc.Transformations[i]
		if !rule.IsEnabled() {
			continue
		}
		var err error
		switch rule.Kind {
		case KindFilter:
			result, err = applyFilter(ev, rule, result)
		case KindMap:
			result, err = applyMap(rule, result)
		case KindCalculate:
			result, err = applyCalculate(ev, rule, result)
		default:
			err = &pipeline.ValidationError{Msg: fmt.Sprintf("unknown rule kind %q", rule.Kind)}
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// applyFilter drops records the condition evaluates falsy for. Filtering is
// a no-op on non-collection input.
func applyFilter(ev *script.Evaluator, rule *Rule, data any) (any, error) {
	rows, ok := data.([]any)
	if !ok {
		return data, nil
	}
	expr, err := ev.CompileExpr(rule.label(), rule.Condition)
	if err != nil {
		return nil, wrapRuleErr(rule, err)
	}
	kept := make([]any, 0, len(rows))
	for _, row := range rows {
		keep, err := expr.EvalTruth(row)
		if err != nil {
			return nil, wrapRuleErr(rule, err)
		}
		if keep {
			kept = append(kept, row)
		}
	}
	return kept, nil
}

// applyMap adds, for every record where the source field is present, the new
// field with the source's value. The source field is retained and a missing
// source never raises.
func applyMap(rule *Rule, data any) (any, error) {
	switch v := data.(type) {
	case []any:
		out := make([]any, len(v))
		for i, row := range v {
			if rec, ok := row.(map[string]any); ok {
				out[i] = mapRecord(rule, rec)
			} else {
				out[i] = row
			}
		}
		return out, nil
	case map[string]any:
		return mapRecord(rule, v), nil
	default:
		return data, nil
	}
}

func mapRecord(rule *Rule, rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec)+len(rule.Mapping))
	for k, val := range rec {
		out[k] = val
	}
	for newField, srcField := range rule.Mapping {
		if v, ok := rec[srcField]; ok {
			out[newField] = v
		}
	}
	return out
}

// applyCalculate evaluates the expression per record, with data bound to the
// record (or, for a bare object input, the object itself), and stores the
// result under the rule's field.
func applyCalculate(ev *script.Evaluator, rule *Rule, data any) (any, error) {
	expr, err := ev.CompileExpr(rule.label(), rule.Expression)
	if err != nil {
		return nil, wrapRuleErr(rule, err)
	}
	calc := func(rec map[string]any) (map[string]any, error) {
		v, err := expr.Eval(rec)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(rec)+1)
		for k, val := range rec {
			out[k] = val
		}
		out[rule.Field] = v
		return out, nil
	}

	switch v := data.(type) {
	case []any:
		out := make([]any, len(v))
		for i, row := range v {
			rec, ok := row.(map[string]any)
			if !ok {
				out[i] = row
				continue
			}
			calced, err := calc(rec)
			if err != nil {
				return nil, wrapRuleErr(rule, err)
			}
			out[i] = calced
		}
		return out, nil
	case map[string]any:
		calced, err := calc(v)
		if err != nil {
			return nil, wrapRuleErr(rule, err)
		}
		return calced, nil
	default:
		return data, nil
	}
}

func wrapRuleErr(rule *Rule, err error) error {
	return &pipeline.TransformError{
		Stage: fmt.Sprintf("failed to apply %s rule %q", rule.Kind, rule.label()),
		Err:   err,
	}
}
