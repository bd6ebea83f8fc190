package record

import "sort"

// Records is an ordered table of records plus the set of columns the table
// is declared to have. The column set can be wider than what any single row
// carries, since lossy correlation leaves holes.
type Records struct {
	items   []*Record
	columns map[string]struct{}
}

// NewRecords creates a table from the given rows. The declared column set is
// the union of the rows' columns.
func NewRecords(items ...*Record) *Records {
	rs := &Records{columns: map[string]struct{}{}}
	for _, r := range items {
		rs.Append(r)
	}
	return rs
}

// Append adds a row and widens the declared column set.
func (rs *Records) Append(r *Record) {
	rs.items = append(rs.items, r)
	for _, c := range r.Columns() {
		rs.columns[c] = struct{}{}
	}
}

// Concat appends all rows of other.
func (rs *Records) Concat(other *Records) {
	for _, r := range other.items {
		rs.Append(r)
	}
}

// Len returns the number of rows.
func (rs *Records) Len() int {
	return len(rs.items)
}

// At returns the i-th row.
func (rs *Records) At(i int) *Record {
	return rs.items[i]
}

// Items returns the underlying row slice. Callers must not reorder it.
func (rs *Records) Items() []*Record {
	return rs.items
}

// Columns returns the declared column names in sorted order.
func (rs *Records) Columns() []string {
	cols := make([]string, 0, len(rs.columns))
	for c := range rs.columns {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// HasColumn reports whether the table declares the named column.
func (rs *Records) HasColumn(column string) bool {
	_, ok := rs.columns[column]
	return ok
}

// SetColumns replaces the declared column set.
func (rs *Records) SetColumns(columns ...string) {
	rs.columns = make(map[string]struct{}, len(columns))
	for _, c := range columns {
		rs.columns[c] = struct{}{}
	}
}

// Clone returns a deep copy of the table.
func (rs *Records) Clone() *Records {
	c := &Records{
		items:   make([]*Record, 0, len(rs.items)),
		columns: make(map[string]struct{}, len(rs.columns)),
	}
	for _, r := range rs.items {
		c.items = append(c.items, r.Clone())
	}
	for col := range rs.columns {
		c.columns[col] = struct{}{}
	}
	return c
}

// Filter returns a new table holding deep copies of the rows f accepts. The
// declared column set is preserved even when every row is dropped.
func (rs *Records) Filter(f func(*Record) bool) *Records {
	out := &Records{columns: make(map[string]struct{}, len(rs.columns))}
	for col := range rs.columns {
		out.columns[col] = struct{}{}
	}
	for _, r := range rs.items {
		if f(r) {
			out.items = append(out.items, r.Clone())
		}
	}
	return out
}

// DropColumns returns a new table without the named columns.
func (rs *Records) DropColumns(columns ...string) *Records {
	out := rs.Clone()
	for _, col := range columns {
		delete(out.columns, col)
		for _, r := range out.items {
			r.Drop(col)
		}
	}
	return out
}

// RenameColumns returns a new table with columns renamed per the mapping.
func (rs *Records) RenameColumns(columns map[string]string) *Records {
	out := rs.Clone()
	for from, to := range columns {
		if _, ok := out.columns[from]; ok {
			delete(out.columns, from)
			out.columns[to] = struct{}{}
		}
		for _, r := range out.items {
			r.Rename(from, to)
		}
	}
	return out
}

// SortByColumn stable-sorts the rows in ascending order of the named column.
// Rows missing the column sort first.
func (rs *Records) SortByColumn(column string) {
	sort.SliceStable(rs.items, func(i, j int) bool {
		vi, oki := rs.items[i].Get(column)
		vj, okj := rs.items[j].Get(column)
		if oki != okj {
			return !oki
		}
		return vi < vj
	})
}

// Equal reports whether both tables hold equal rows in the same order.
func (rs *Records) Equal(other *Records) bool {
	if len(rs.items) != len(other.items) {
		return false
	}
	for i, r := range rs.items {
		if !r.Equal(other.items[i]) {
			return false
		}
	}
	return true
}
