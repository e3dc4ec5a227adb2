// Package engine orchestrates conversions between tabular formats: it pairs
// the right codecs for a source/target combination, enforces the skip and
// overwrite policy, and applies post-conversion transformations.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rowbridge/rowbridge/internal/codec"
	"github.com/rowbridge/rowbridge/internal/flatten"
	"github.com/rowbridge/rowbridge/internal/pipeline"
	"github.com/rowbridge/rowbridge/internal/record"
	"github.com/rowbridge/rowbridge/internal/rules"
	"github.com/rowbridge/rowbridge/internal/script"
)

// Options configures a single conversion unit.
type Options struct {
	// TargetFormat is the output format: csv, json, or excel.
	TargetFormat codec.Format
	// PreserveTypes enables numeric/boolean inference on decode.
	PreserveTypes bool
	// Overwrite allows replacing an existing destination file. When false, a
	// destination collision makes the unit skipped, not failed.
	Overwrite bool
	// Delimiter is the CSV field delimiter. Zero means ','.
	Delimiter rune
	// Indent is the JSON pretty-print width in spaces.
	Indent int
	// FlattenPaths explodes nested objects into dotted-path columns when
	// flattening JSON for row-oriented output.
	FlattenPaths bool
	// SheetName labels the sheet written on excel output. Empty means Sheet1.
	SheetName string
	// AllSheets makes excel-to-json conversion emit every sheet keyed by
	// sheet name instead of just the first sheet's rows.
	AllSheets bool

	// RulesPath points at a declarative rule document, applied to the
	// written output when the target is json. Mutually exclusive with
	// ScriptSource.
	RulesPath string
	// ScriptSource is a Starlark transform script applied to the written
	// output for any target except excel. Mutually exclusive with RulesPath.
	ScriptSource string
}

// Status classifies the outcome of one conversion unit.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result describes the outcome of one conversion unit.
type Result struct {
	Source string
	Output string
	Status Status
	// Reason explains a skip in human terms.
	Reason string
	Err    error
}

// Engine runs conversion units. It holds no cross-call state; every unit is
// a pure function of its inputs plus the filesystem.
type Engine struct {
	logger *slog.Logger
	eval   *script.Evaluator
}

// New creates an engine. A nil logger discards.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger, eval: script.NewEvaluator()}
}

// OutputPath derives the destination path by replacing the source extension
// with the canonical extension for the target format.
func OutputPath(source string, target codec.Format) string {
	idx := strings.LastIndex(source, ".")
	if idx < 0 {
		return source + target.Ext()
	}
	return source[:idx] + target.Ext()
}

// Convert runs one conversion unit. Policy outcomes the caller should expect
// (identical formats, destination collision without overwrite) come back as
// skipped results; everything else that goes wrong is a failure.
func (e *Engine) Convert(ctx context.Context, source string, opts Options) Result {
	res := Result{Source: source}

	fail := func(err error) Result {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("failed to convert %s: %w", source, err)
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	srcFormat := codec.Detect(source)
	if srcFormat == codec.FormatUnknown {
		return fail(&pipeline.FormatError{Msg: fmt.Sprintf("unsupported file type %q", source)})
	}
	target := opts.TargetFormat
	if target != codec.FormatCSV && target != codec.FormatJSON && target != codec.FormatExcel {
		return fail(&pipeline.FormatError{Msg: fmt.Sprintf("unsupported target format %q", target.String())})
	}

	if srcFormat == target {
		res.Status = StatusSkipped
		res.Reason = "source and target formats are identical"
		return res
	}

	if opts.RulesPath != "" && opts.ScriptSource != "" {
		return fail(&pipeline.ValidationError{Msg: "rules file and transform script are mutually exclusive"})
	}
	if target == codec.FormatExcel && (opts.RulesPath != "" || opts.ScriptSource != "") {
		return fail(&pipeline.FormatError{Msg: "transformations are not supported for excel output"})
	}
	if opts.RulesPath != "" && target != codec.FormatJSON {
		return fail(&pipeline.ValidationError{Msg: "rule transformations require a json target"})
	}

	// Compile the transform and load the rule document up front, so a bad
	// script or rule file rejects the unit before any conversion I/O.
	var tr *script.Transform
	if opts.ScriptSource != "" {
		var err error
		tr, err = e.eval.CompileTransform(source, opts.ScriptSource)
		if err != nil {
			return fail(err)
		}
	}
	var doc *rules.Document
	if opts.RulesPath != "" {
		var err error
		doc, err = rules.Load(opts.RulesPath)
		if err != nil {
			return fail(err)
		}
	}

	outPath := OutputPath(source, target)
	res.Output = outPath
	if !opts.Overwrite {
		if _, err := os.Stat(outPath); err == nil {
			res.Status = StatusSkipped
			res.Reason = fmt.Sprintf("destination %s already exists", outPath)
			return res
		}
	}

	out, err := e.transcode(source, srcFormat, target, opts)
	if err != nil {
		return fail(err)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fail(&pipeline.IOError{Op: "write", Path: outPath, Err: err})
	}
	e.logger.Debug("wrote converted output", "source", source, "output", outPath, "target", target.String())

	// The transform step is strictly after the conversion write. A failing
	// transform leaves the converted file in place.
	if doc != nil {
		if err := e.applyRulesFile(outPath, doc, opts); err != nil {
			return fail(err)
		}
	}
	if tr != nil {
		if err := e.applyScript(outPath, target, tr, opts); err != nil {
			return fail(err)
		}
	}

	res.Status = StatusConverted
	return res
}

// transcode decodes the source and encodes it for the target, wholly in
// memory.
func (e *Engine) transcode(source string, from, to codec.Format, opts Options) ([]byte, error) {
	raw, err := os.ReadFile(source)
	if err != nil {
		return nil, &pipeline.IOError{Op: "read", Path: source, Err: err}
	}

	csvOpts := codec.CSVOptions{Comma: opts.Delimiter, DynamicTyping: opts.PreserveTypes}
	var buf bytes.Buffer

	switch from {
	case codec.FormatCSV:
		set, err := codec.DecodeCSV(bytes.NewReader(raw), csvOpts)
		if err != nil {
			return nil, err
		}
		switch to {
		case codec.FormatJSON:
			err = codec.EncodeJSON(&buf, set, opts.Indent)
		case codec.FormatExcel:
			err = codec.EncodeWorkbook(&buf, singleSheet(set, opts.SheetName))
		}
		if err != nil {
			return nil, err
		}

	case codec.FormatJSON:
		set, err := flatten.Flatten(raw, flatten.Options{Paths: opts.FlattenPaths})
		if err != nil {
			return nil, err
		}
		switch to {
		case codec.FormatCSV:
			err = codec.EncodeCSV(&buf, set, csvOpts)
		case codec.FormatExcel:
			err = codec.EncodeWorkbook(&buf, singleSheet(set, opts.SheetName))
		}
		if err != nil {
			return nil, err
		}

	case codec.FormatExcel:
		wb, err := codec.DecodeWorkbook(bytes.NewReader(raw), codec.WorkbookOptions{DynamicTyping: opts.PreserveTypes})
		if err != nil {
			return nil, err
		}
		switch to {
		case codec.FormatCSV:
			err = codec.EncodeCSV(&buf, firstSheetSet(wb), csvOpts)
		case codec.FormatJSON:
			if opts.AllSheets {
				err = codec.EncodeJSON(&buf, sheetsByName(wb), opts.Indent)
			} else {
				err = codec.EncodeJSON(&buf, firstSheetSet(wb), opts.Indent)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func singleSheet(set *record.Set, name string) *record.Workbook {
	if name == "" {
		name = codec.DefaultSheetName
	}
	return &record.Workbook{Sheets: []record.Sheet{{Name: name, Set: set}}}
}

func firstSheetSet(wb *record.Workbook) *record.Set {
	if s := wb.First(); s != nil {
		return s.Set
	}
	return record.NewSet()
}

func sheetsByName(wb *record.Workbook) map[string]*record.Set {
	out := make(map[string]*record.Set, len(wb.Sheets))
	for _, sheet := range wb.Sheets {
		out[sheet.Name] = sheet.Set
	}
	return out
}

// applyRulesFile re-reads the just-written JSON, folds the rule document
// over it, and rewrites the file.
func (e *Engine) applyRulesFile(outPath string, doc *rules.Document, opts Options) error {
	raw, err := os.ReadFile(outPath)
	if err != nil {
		return &pipeline.IOError{Op: "read", Path: outPath, Err: err}
	}
	data, err := codec.DecodeJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	transformed, err := rules.Apply(data, doc, e.eval)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := codec.EncodeJSON(&buf, transformed, opts.Indent); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return &pipeline.IOError{Op: "write", Path: outPath, Err: err}
	}
	e.logger.Debug("applied rule transformations", "output", outPath, "rules", len(doc.Transformations))
	return nil
}

// applyScript applies the compiled transform to the written output: parsed
// and re-serialized for json, raw text for csv.
func (e *Engine) applyScript(outPath string, target codec.Format, tr *script.Transform, opts Options) error {
	raw, err := os.ReadFile(outPath)
	if err != nil {
		return &pipeline.IOError{Op: "read", Path: outPath, Err: err}
	}

	var result []byte
	switch target {
	case codec.FormatJSON:
		data, err := codec.DecodeJSON(bytes.NewReader(raw))
		if err != nil {
			return err
		}
		transformed, err := tr.Run(data)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := codec.EncodeJSON(&buf, transformed, opts.Indent); err != nil {
			return err
		}
		result = buf.Bytes()
	case codec.FormatCSV:
		transformed, err := tr.Run(string(raw))
		if err != nil {
			return err
		}
		text, ok := transformed.(string)
		if !ok {
			return &pipeline.TransformError{
				Stage: "custom transformation failed",
				Err:   fmt.Errorf("transform of csv output must return a string, got %T", transformed),
			}
		}
		result = []byte(text)
	default:
		return &pipeline.FormatError{Msg: fmt.Sprintf("transformations are not supported for %s output", target.String())}
	}

	if err := os.WriteFile(outPath, result, 0o644); err != nil {
		return &pipeline.IOError{Op: "write", Path: outPath, Err: err}
	}
	e.logger.Debug("applied transform script", "output", outPath)
	return nil
}
