package schema

import (
	"github.com/fedb/tabletd/internal/errs"
	"github.com/fedb/tabletd/internal/ttl"
)

// FormatVersion is the row wire format. Only version 1 (the
// self-describing row format) currently supports projection.
type FormatVersion uint32

const SelfDescribingFormat FormatVersion = 1

// CompressType is the per-table row compression mode.
type CompressType int

const (
	NoCompress CompressType = iota
	SnappyCompress
)

// ColumnKey is the input shape for one requested index, as it would
// arrive from the (external) name-server TableMeta: a set of key column
// names, an optional list of ts column names sharing that key, and
// optional per-ts-name TTL overrides.
type ColumnKey struct {
	IndexName  string
	ColNames   []string
	TsNames    []string // empty means "no ts column for this index"
	TTL        *ttl.St  // explicit ttl on the column_key, highest priority
	TTLPerTs   map[string]ttl.St
	AbsTTLMins map[string]uint64 // explicit abs_ttl on a ts-column, in minutes
	LatTTL     map[string]uint64 // explicit lat_ttl on a ts-column
}

// TableMeta is the node-side mirror of the (externally produced)
// TableMeta the name-server emits: enough of it for C1 to build a
// TableIndex, and enough for C7/C9 to validate format/compat.
type TableMeta struct {
	TID, PID     uint32
	Name, DB     string
	Columns      []Column
	ColumnKeys   []ColumnKey
	TableTTL     ttl.St
	FormatVer    FormatVersion
	Compress     CompressType
	ReplicaNum   uint32
	PartitionNum uint32
}

// ParseFromMeta builds the runtime TableIndex set from a TableMeta,
// applying the index-derivation and TTL-resolution rules below.
func ParseFromMeta(meta *TableMeta) (*TableIndex, error) {
	if err := validateTsColumns(meta); err != nil {
		return nil, err
	}

	ti := newTableIndex()

	if len(meta.ColumnKeys) == 0 {
		// No explicit index: synthesize idx0 inheriting the table TTL,
		// treated as the primary key index.
		idx := NewIndex("idx0", 1, PrimaryKey, defaultKeyColumns(meta), nil, meta.TableTTL)
		idx.InnerPos = 0
		if err := ti.AddIndex(idx); err != nil {
			return nil, err
		}
		ti.finalizeInnerIndexes()
		return ti, nil
	}

	var nextID uint32 = 1
	for _, ck := range meta.ColumnKeys {
		if err := validateColumnKey(meta, ck); err != nil {
			return nil, err
		}

		if len(ck.TsNames) == 0 {
			// No ts columns named: a single index with no ts dimension.
			resolvedTTL := resolveTTL(meta, ck, "")
			idx := NewIndex(indexName(ck, ""), nextID, TimeSeries, ck.ColNames, nil, resolvedTTL)
			nextID++
			if err := ti.AddIndex(idx); err != nil {
				return nil, err
			}
			continue
		}

		// For each of the N ts-names, create N logical indexes sharing
		// (key_columns, inner_pos) but with distinct ts_column.
		for _, tsName := range ck.TsNames {
			tsCol := findColumn(meta, tsName)
			if tsCol == nil {
				return nil, errTsNameNotFound(tsName)
			}
			resolvedTTL := resolveTTL(meta, ck, tsName)
			idx := NewIndex(indexName(ck, tsName), nextID, TimeSeries, ck.ColNames, tsCol, resolvedTTL)
			nextID++
			if err := ti.AddIndex(idx); err != nil {
				return nil, err
			}
		}
	}

	if ti.Size() > MaxIndexCount {
		return nil, errTableMetaIllegal("index count %d exceeds max %d", ti.Size(), MaxIndexCount)
	}

	ti.finalizeInnerIndexes()
	return ti, nil
}

func indexName(ck ColumnKey, tsName string) string {
	if ck.IndexName != "" {
		if tsName != "" && len(ck.TsNames) > 1 {
			return ck.IndexName + "_" + tsName
		}
		return ck.IndexName
	}
	name := ""
	for i, c := range ck.ColNames {
		if i > 0 {
			name += "_"
		}
		name += c
	}
	if tsName != "" {
		name += "_" + tsName
	}
	return name
}

func defaultKeyColumns(meta *TableMeta) []string {
	// No column_key given: fall back to all non-timestamp columns as
	// the implicit primary key.
	var cols []string
	for _, c := range meta.Columns {
		if !c.IsTsCol {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func findColumn(meta *TableMeta, name string) *Column {
	for i := range meta.Columns {
		if meta.Columns[i].Name == name {
			return &meta.Columns[i]
		}
	}
	return nil
}

// validateTsColumns checks table-level timestamp-column invariants:
// valid ts types, no add_ts_idx/is_ts_col overlap, the column cap, and
// ts_name set on every column_key or on none.
func validateTsColumns(meta *TableMeta) error {
	sawSet, sawUnset := false, false
	tsCount := 0
	for _, c := range meta.Columns {
		if c.IsTsCol {
			sawSet = true
			tsCount++
			if !c.Type.IsValidTsType() {
				return errTableMetaIllegal("column %q: timestamp column must be int64 or timestamp type", c.Name)
			}
			if c.AddTsIdx {
				return errTableMetaIllegal("column %q: add_ts_idx and is_ts_col are mutually exclusive", c.Name)
			}
		} else if c.AddTsIdx {
			sawSet = true
		} else {
			sawUnset = true
		}
	}
	// Partial ts_name assignment across column_keys is rejected here.
	withTs := 0
	for _, ck := range meta.ColumnKeys {
		if len(ck.TsNames) > 0 {
			withTs++
		}
	}
	if withTs > 0 && withTs < len(meta.ColumnKeys) {
		return errTableMetaIllegal("ts_name must be set on every column_key or on none")
	}
	_ = sawSet
	_ = sawUnset
	if tsCount > MaxTimestampColumns {
		return errTableMetaIllegal("table has %d timestamp columns, max %d", tsCount, MaxTimestampColumns)
	}
	return nil
}

func validateColumnKey(meta *TableMeta, ck ColumnKey) error {
	for _, col := range ck.ColNames {
		c := findColumn(meta, col)
		if c == nil {
			return errTableMetaIllegal("column_key references unknown column %q", col)
		}
		if !c.Type.IsIndexable() {
			return errTableMetaIllegal("column %q: float/double columns cannot be indexed", col)
		}
	}
	for _, ts := range ck.TsNames {
		c := findColumn(meta, ts)
		if c == nil {
			return errTsNameNotFound(ts)
		}
	}
	return nil
}

// resolveTTL applies the TTL resolution order: explicit ttl on
// column_key > explicit abs_ttl/lat_ttl on ts-column > table-level TTL.
func resolveTTL(meta *TableMeta, ck ColumnKey, tsName string) ttl.St {
	if ck.TTL != nil {
		return *ck.TTL
	}
	if t, ok := ck.TTLPerTs[tsName]; ok {
		return t
	}
	result := meta.TableTTL
	if abs, ok := ck.AbsTTLMins[tsName]; ok {
		result.AbsMs = ttl.AbsMsFromMinutes(abs)
	}
	if lat, ok := ck.LatTTL[tsName]; ok {
		result.LatCount = lat
	}
	return result
}

func errTsNameNotFound(name string) error {
	return errs.New(errs.TsNameNotFound, "ts column %q not found", name)
}
