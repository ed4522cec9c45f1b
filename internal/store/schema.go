package store

import "sort"

// ColumnKind classifies a declared model column for the purposes of
// DataMount's write-permission mapping (spec §4.E "Column classification").
type ColumnKind int

const (
	// ColumnRegular is a normal writable user column (mode 0o644).
	ColumnRegular ColumnKind = iota
	// ColumnID is the record's id column: read-only (mode 0o444), never changes.
	ColumnID
	// ColumnTimestamp is one of created_at/updated_at/trashed_at/deleted_at: read-only.
	ColumnTimestamp
	// ColumnACL is one of the four ACL columns: read-only through the VFS.
	ColumnACL
)

// ColumnSpec describes one declared column of a model.
type ColumnSpec struct {
	Name string
	Kind ColumnKind
	// Type is the introspected SQL data type, surfaced verbatim in schema
	// documents (DescribeMount). Stringification on read does not use it;
	// it switches on the Go type of the stored value.
	Type string
}

// ReadOnly reports whether this column is read-only through the VFS.
func (c ColumnSpec) ReadOnly() bool {
	return c.Kind != ColumnRegular
}

// timestampColumns are the four lifecycle columns every model carries
// (spec §3 "Record lifecycle"). deleted_at is never exposed by any mount,
// but it is still a read-only column should a caller probe it directly.
var timestampColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"trashed_at": true,
	"deleted_at": true,
}

// aclColumns are the four ACL columns managed through dedicated APIs,
// read-only through DataMount/DescribeMount (spec §4.E).
var aclColumns = map[string]bool{
	"access_read": true,
	"access_edit": true,
	"access_full": true,
	"access_deny": true,
}

// ClassifyColumn derives a ColumnKind from a bare column name.
func ClassifyColumn(name string) ColumnKind {
	switch {
	case name == "id":
		return ColumnID
	case timestampColumns[name]:
		return ColumnTimestamp
	case aclColumns[name]:
		return ColumnACL
	default:
		return ColumnRegular
	}
}

// ModelSchema is the full declared shape of one data model, as DDL
// introspection would report it.
type ModelSchema struct {
	Name    string
	Columns []ColumnSpec
}

// Column looks up a single column spec by name.
func (m ModelSchema) Column(name string) (ColumnSpec, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// SortedColumnNames returns every column name in stable ascending order,
// satisfying spec §3's "readdir ... returns entries in a stable order
// (name, ascending)" invariant.
func (m ModelSchema) SortedColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names
}

// NewModelSchema builds a ModelSchema from a list of bare column names,
// classifying each automatically.
func NewModelSchema(name string, columnNames ...string) ModelSchema {
	cols := make([]ColumnSpec, len(columnNames))
	for i, n := range columnNames {
		cols[i] = ColumnSpec{Name: n, Kind: ClassifyColumn(n), Type: "text"}
	}
	return ModelSchema{Name: name, Columns: cols}
}
