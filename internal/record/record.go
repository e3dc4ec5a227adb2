// Package record defines the in-memory data model shared by every codec and
// pipeline stage: Records, ordered RecordSets, and multi-sheet Workbooks.
//
// Go maps carry no key order, so the first-seen column order that grid
// formats depend on is modeled explicitly on the Set rather than recovered
// from map iteration.
package record

import "encoding/json"

// Record is a single row of data flowing through the pipeline. Values are
// restricted to the JSON-compatible set: string, float64, bool, nil,
// map[string]any, and []any (int64 may appear after expression evaluation).
type Record map[string]any

// Clone returns a shallow copy of the record. Pipeline stages that add or
// overwrite fields clone first so callers never observe mutation.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Set is an ordered sequence of Records together with the union of their
// column names in first-seen order. A record lacking a column is rendered as
// empty/null by the grid codecs.
type Set struct {
	Columns []string
	Records []Record

	seen map[string]bool
}

// NewSet returns an empty record set.
func NewSet() *Set {
	return &Set{seen: make(map[string]bool)}
}

// AddColumns appends each name that has not been seen yet, preserving
// first-seen order.
func (s *Set) AddColumns(names ...string) {
	if s.seen == nil {
		s.seen = make(map[string]bool, len(s.Columns)+len(names))
		for _, c := range s.Columns {
			s.seen[c] = true
		}
	}
	for _, n := range names {
		if !s.seen[n] {
			s.seen[n] = true
			s.Columns = append(s.Columns, n)
		}
	}
}

// HasColumn reports whether the column is part of the set's column universe.
func (s *Set) HasColumn(name string) bool {
	if s.seen != nil {
		return s.seen[name]
	}
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds records to the set. Column registration is the caller's
// responsibility: codecs know the authoritative key order (CSV header, JSON
// token order), the records themselves do not.
func (s *Set) Append(recs ...Record) {
	s.Records = append(s.Records, recs...)
}

// Len returns the number of records.
func (s *Set) Len() int { return len(s.Records) }

// Rows returns the records as a []any of map[string]any, the shape consumed
// by the rule engine and scripted transforms. Records are cloned so the set
// stays immutable from the caller's perspective.
func (s *Set) Rows() []any {
	rows := make([]any, len(s.Records))
	for i, r := range s.Records {
		rows[i] = map[string]any(r.Clone())
	}
	return rows
}

// MarshalJSON encodes the set as an array of objects with keys emitted in
// column order. Columns absent from a record are emitted as null.
func (s *Set) MarshalJSON() ([]byte, error) {
	buf := []byte{'['}
	for i, rec := range s.Records {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '{')
		first := true
		for _, col := range s.Columns {
			v, ok := rec[col]
			if !ok {
				v = nil
			}
			key, err := json.Marshal(col)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			if !first {
				buf = append(buf, ',')
			}
			first = false
			buf = append(buf, key...)
			buf = append(buf, ':')
			buf = append(buf, val...)
		}
		buf = append(buf, '}')
	}
	return append(buf, ']'), nil
}

// Sheet is a named record set inside a workbook.
type Sheet struct {
	Name string
	Set  *Set
}

// Workbook is an ordered sequence of uniquely named sheets.
type Workbook struct {
	Sheets []Sheet
}

// First returns the first sheet by position, or nil for an empty workbook.
// Single-sheet conversions always operate on the first sheet.
func (w *Workbook) First() *Sheet {
	if len(w.Sheets) == 0 {
		return nil
	}
	return &w.Sheets[0]
}

// Sheet returns the sheet with the given name, or nil if absent.
func (w *Workbook) Sheet(name string) *Sheet {
	for i := range w.Sheets {
		if w.Sheets[i].Name == name {
			return &w.Sheets[i]
		}
	}
	return nil
}
