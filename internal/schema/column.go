// Package schema implements the per-partition index/schema model:
// parsing a TableMeta into the runtime index set, TTL resolution
// order, and InnerIndex grouping.
package schema

import "fmt"

// DataType enumerates the supported column types.
type DataType int

const (
	Bool DataType = iota
	Int16
	Int32
	Int64
	Float
	Double
	String
	Timestamp
	Varchar
	Date
)

func (d DataType) String() string {
	switch d {
	case Bool:
		return "bool"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float:
		return "float"
	case Double:
		return "double"
	case String:
		return "string"
	case Timestamp:
		return "timestamp"
	case Varchar:
		return "varchar"
	case Date:
		return "date"
	default:
		return fmt.Sprintf("DataType(%d)", int(d))
	}
}

// IsValidTsType reports whether a column of this type may be flagged
// as a timestamp column: only 64-bit integer or timestamp columns
// qualify.
func (d DataType) IsValidTsType() bool {
	return d == Int64 || d == Timestamp
}

// IsIndexable reports whether a column of this type may appear in an
// index's key columns. Float and double columns cannot be indexed.
func (d DataType) IsIndexable() bool {
	return d != Float && d != Double
}

// Column is a table column descriptor.
type Column struct {
	Name     string
	ID       uint32
	Type     DataType
	NotNull  bool
	IsTsCol  bool
	TsIdx    int32 // zero-based; -1 if not a timestamp column
	AddTsIdx bool  // legacy add_ts_idx flag
}

// MaxTimestampColumns is the per-table cap on timestamp columns.
const MaxTimestampColumns = 256
