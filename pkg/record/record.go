// Package record implements the flat record tables and the correlation
// merges used to stitch per-layer trace instances into end-to-end rows.
//
// A Record is one row: column name -> integer value. Timestamps are
// nanoseconds, everything else (handles, message addresses, flags) fits the
// same representation, which keeps the merge engine free of type dispatch.
package record

import "sort"

// Record is a single correlated row. Columns are sparse: a row only carries
// the columns that were actually observed for it.
type Record struct {
	values map[string]uint64
}

// New creates a record from the given column values. The map is copied.
func New(values map[string]uint64) *Record {
	r := &Record{values: make(map[string]uint64, len(values))}
	for k, v := range values {
		r.values[k] = v
	}
	return r
}

// Get returns the value of the named column.
func (r *Record) Get(column string) (uint64, bool) {
	v, ok := r.values[column]
	return v, ok
}

// MustGet returns the value of the named column, or 0 if absent.
func (r *Record) MustGet(column string) uint64 {
	return r.values[column]
}

// Has reports whether the record carries the named column.
func (r *Record) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

// Set stores a column value.
func (r *Record) Set(column string, value uint64) {
	r.values[column] = value
}

// Drop removes a column if present.
func (r *Record) Drop(column string) {
	delete(r.values, column)
}

// Rename moves a column value to a new name. A missing source column is a
// no-op.
func (r *Record) Rename(from, to string) {
	if v, ok := r.values[from]; ok {
		delete(r.values, from)
		r.values[to] = v
	}
}

// Len returns the number of populated columns.
func (r *Record) Len() int {
	return len(r.values)
}

// Columns returns the populated column names in sorted order.
func (r *Record) Columns() []string {
	cols := make([]string, 0, len(r.values))
	for k := range r.values {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Merge folds other into r. Columns from other win on conflict.
func (r *Record) Merge(other *Record) {
	for k, v := range other.values {
		r.values[k] = v
	}
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	return New(r.values)
}

// Equal reports whether both records carry exactly the same columns and
// values.
func (r *Record) Equal(other *Record) bool {
	if len(r.values) != len(other.values) {
		return false
	}
	for k, v := range r.values {
		ov, ok := other.values[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}
