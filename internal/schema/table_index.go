package schema

import "sync"

// TableIndex is the parsed, queryable runtime index set for one table
// partition. It is rebuilt wholesale by ParseFromMeta; callers that need
// to add/delete one index at a time use AddIndex/MarkDeleting under the
// mutex below.
type TableIndex struct {
	mu           sync.RWMutex
	indexes      []*Index
	byName       map[string]*Index
	innerIndexes []*InnerIndex
	combineToPos map[string]uint32
	maxIndexID   uint32
}

func newTableIndex() *TableIndex {
	return &TableIndex{
		byName:       make(map[string]*Index),
		combineToPos: make(map[string]uint32),
	}
}

// AddIndex registers a new logical index, assigning it to an existing
// InnerIndex group if one already shares its key-column set, or
// creating a new inner position otherwise.
func (ti *TableIndex) AddIndex(idx *Index) error {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	if _, exists := ti.byName[idx.Name]; exists {
		return errTableMetaIllegal("duplicate index name %q", idx.Name)
	}
	if len(ti.indexes) >= MaxIndexCount {
		return errTableMetaIllegal("index count would exceed max %d", MaxIndexCount)
	}

	combine := CombineKeyString(idx.KeyColumns)
	if pos, ok := ti.combineToPos[combine]; ok {
		idx.InnerPos = pos
	} else {
		pos := uint32(len(ti.innerIndexes))
		idx.InnerPos = pos
		ti.combineToPos[combine] = pos
		ti.innerIndexes = append(ti.innerIndexes, &InnerIndex{Pos: pos, CombineKey: combine})
	}

	ti.indexes = append(ti.indexes, idx)
	ti.byName[idx.Name] = idx
	if idx.ID > ti.maxIndexID {
		ti.maxIndexID = idx.ID
	}

	inner := ti.innerIndexes[idx.InnerPos]
	inner.Indexes = append(inner.Indexes, idx)
	if idx.TsColumn != nil {
		inner.TsIdxList = append(inner.TsIdxList, idx.TsColumn.TsIdx)
	}
	return nil
}

// finalizeInnerIndexes is a no-op placeholder kept for readability at
// call sites; InnerIndex grouping is actually maintained incrementally
// by AddIndex so there is nothing left to reconcile once all indexes
// from one ParseFromMeta call have been added.
func (ti *TableIndex) finalizeInnerIndexes() {}

// GetIndex looks up an index by name.
func (ti *TableIndex) GetIndex(name string) (*Index, bool) {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	idx, ok := ti.byName[name]
	return idx, ok
}

// GetIndexByTs looks up the index within the inner-group matching
// `name`'s key-column set that has the given ts column name. Used by
// Get/Scan when a caller names an explicit ts_name on a multi-ts table.
func (ti *TableIndex) GetIndexByTs(name, tsName string) (*Index, bool) {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	base, ok := ti.byName[name]
	if !ok {
		return nil, false
	}
	inner := ti.innerIndexes[base.InnerPos]
	for _, idx := range inner.Indexes {
		if idx.TsColumn != nil && idx.TsColumn.Name == tsName {
			return idx, true
		}
	}
	return nil, false
}

// AllIndexes returns a snapshot slice of every index, in registration order.
func (ti *TableIndex) AllIndexes() []*Index {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	out := make([]*Index, len(ti.indexes))
	copy(out, ti.indexes)
	return out
}

// InnerIndexes returns a snapshot slice of every InnerIndex group.
func (ti *TableIndex) InnerIndexes() []*InnerIndex {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	out := make([]*InnerIndex, len(ti.innerIndexes))
	copy(out, ti.innerIndexes)
	return out
}

// InnerIndexByPos returns one InnerIndex group by its zero-based position.
func (ti *TableIndex) InnerIndexByPos(pos uint32) (*InnerIndex, bool) {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	if int(pos) >= len(ti.innerIndexes) {
		return nil, false
	}
	return ti.innerIndexes[pos], true
}

// Size returns the current number of logical indexes.
func (ti *TableIndex) Size() int {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return len(ti.indexes)
}

// MaxIndexID returns the highest assigned index ID, used to allocate
// the next ID when a later AddIndex call introduces a brand-new index.
func (ti *TableIndex) MaxIndexID() uint32 {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return ti.maxIndexID
}

// PkIndex returns the primary-key-kind index, if any.
func (ti *TableIndex) PkIndex() (*Index, bool) {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	for _, idx := range ti.indexes {
		if idx.Kind == PrimaryKey {
			return idx, true
		}
	}
	return nil, false
}

// MarkDeleting transitions an index to Deleting status in place.
func (ti *TableIndex) MarkDeleting(name string) error {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	idx, ok := ti.byName[name]
	if !ok {
		return errIdxNameNotFound(name)
	}
	idx.SetStatus(Deleting)
	return nil
}
