package schema

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fedb/tabletd/internal/ttl"
)

// IndexStatus is the lifecycle status of a logical index.
type IndexStatus int

const (
	Ready IndexStatus = iota
	Waiting
	Deleting
	Deleted
)

// IndexKind is the index's physical role.
type IndexKind int

const (
	TimeSeries IndexKind = iota
	PrimaryKey
	AutoGen
	Unique
)

// MaxIndexCount is the per-table index cap.
const MaxIndexCount = 200

// Index is a logical index definition. Several Index values sharing
// the same key-column set are grouped into one InnerIndex.
type Index struct {
	Name       string
	ID         uint32
	status     atomic.Int32 // IndexStatus, stored atomically
	Kind       IndexKind
	KeyColumns []string
	TsColumn   *Column // nil if this index has no timestamp dimension
	ttl        atomic.Pointer[ttl.St]
	InnerPos   uint32
}

// NewIndex constructs an Index with the given initial TTL.
func NewIndex(name string, id uint32, kind IndexKind, keyCols []string, tsCol *Column, initialTTL ttl.St) *Index {
	idx := &Index{Name: name, ID: id, Kind: kind, KeyColumns: keyCols, TsColumn: tsCol}
	idx.status.Store(int32(Ready))
	idx.ttl.Store(&initialTTL)
	return idx
}

// Status returns the current index status.
func (i *Index) Status() IndexStatus { return IndexStatus(i.status.Load()) }

// SetStatus atomically transitions the index status.
func (i *Index) SetStatus(s IndexStatus) { i.status.Store(int32(s)) }

// TTL returns the current TTL snapshot. Readers always see a consistent
// immutable value even while a concurrent UpdateTTL is in flight.
func (i *Index) TTL() ttl.St { return *i.ttl.Load() }

// UpdateTTL atomically publishes a new TTL, rejecting a change of TTL
// Type: an index's TTL kind is immutable once created.
func (i *Index) UpdateTTL(newTTL ttl.St) error {
	cur := i.TTL()
	if !ttl.SameType(cur, newTTL) {
		return errTTLTypeMismatch(i.Name)
	}
	i.ttl.Store(&newTTL)
	return nil
}

// CombineKeyString returns the canonical, order-independent grouping
// key for this index's key-column set: sorted, '|'-joined names.
func CombineKeyString(keyColumns []string) string {
	sorted := append([]string(nil), keyColumns...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

// InnerIndex groups logical Indexes that physically share one storage
// position because their key-column sets are equal. TsIdxList collects
// the ts_idx of every grouped index's TsColumn, in index order, so
// MemTable can update every ts-dimension view for one Put.
type InnerIndex struct {
	Pos        uint32
	Indexes    []*Index
	TsIdxList  []int32
	CombineKey string
}

// MaxHeight picks the skiplist max-height for this inner-index group
// based on the TTL kinds present: absolute-only TTLs get a shallower
// height (absMaxHeight), latest-only get a deeper one (latMaxHeight);
// any mix of types picks the deeper.
func (ii *InnerIndex) MaxHeight(absMaxHeight, latMaxHeight uint32) uint32 {
	sawAbs, sawLat := false, false
	for _, idx := range ii.Indexes {
		switch idx.TTL().Type {
		case ttl.Absolute:
			sawAbs = true
		case ttl.Latest:
			sawLat = true
		default: // AbsAndLat, AbsOrLat: behaves like both
			sawAbs, sawLat = true, true
		}
	}
	switch {
	case sawAbs && sawLat:
		if latMaxHeight > absMaxHeight {
			return latMaxHeight
		}
		return absMaxHeight
	case sawLat:
		return latMaxHeight
	default:
		return absMaxHeight
	}
}
