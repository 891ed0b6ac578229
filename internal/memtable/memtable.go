package memtable

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fedb/tabletd/internal/errs"
	"github.com/fedb/tabletd/internal/schema"
	"github.com/fedb/tabletd/internal/ttl"
)

// HeightConfig controls skiplist max-height selection by TTL kind.
type HeightConfig struct {
	AbsMaxHeight uint32
	LatMaxHeight uint32
	SegCnt       uint32
}

func DefaultHeightConfig() HeightConfig {
	return HeightConfig{AbsMaxHeight: 4, LatMaxHeight: 8, SegCnt: DefaultSegCnt}
}

// MemTable is the in-memory store for one table partition: one
// indexGroup per InnerIndex position.
type MemTable struct {
	index  *schema.TableIndex
	groups map[uint32]*indexGroup
	cfg    HeightConfig

	// countCache caches a "safe" (GC-consistent) per-pk record count so
	// Count(filter_expired_data=false) can skip a full chain walk; sized
	// generously since it is just an optimization hint, never a source
	// of truth (the chain itself always wins on disagreement).
	countCache *lru.Cache[string, int]
}

// New builds an empty MemTable for the given parsed index set.
func New(index *schema.TableIndex, cfg HeightConfig) *MemTable {
	mt := &MemTable{index: index, groups: make(map[uint32]*indexGroup), cfg: cfg}
	for _, inner := range index.InnerIndexes() {
		maxHeight := int(inner.MaxHeight(cfg.AbsMaxHeight, cfg.LatMaxHeight))
		mt.groups[inner.Pos] = newIndexGroup(cfg.SegCnt, maxHeight)
	}
	cache, _ := lru.New[string, int](4096)
	mt.countCache = cache
	return mt
}

func (mt *MemTable) groupFor(pos uint32) (*indexGroup, error) {
	g, ok := mt.groups[pos]
	if !ok {
		return nil, errs.New(errs.IdxNameNotFound, "no inner index at pos %d", pos)
	}
	return g, nil
}

// Put implements the single-index default-table contract: put(pk, ts, value).
func (mt *MemTable) Put(indexName string, pk string, ts uint64, value []byte) error {
	idx, ok := mt.index.GetIndex(indexName)
	if !ok {
		return errs.New(errs.IdxNameNotFound, "index %q not found", indexName)
	}
	return mt.putInner(idx.InnerPos, pk, ts, value)
}

// PutDimensions implements put(time, value, dimensions[]): each
// dimension is a (indexName, pk) pair, and every dimension yields one
// index entry at the same ts.
func (mt *MemTable) PutDimensions(ts uint64, value []byte, dimensions map[string]string) error {
	if len(dimensions) == 0 {
		return errs.New(errs.InvalidDimensionParameter, "no dimensions given")
	}
	for idxName, pk := range dimensions {
		if pk == "" {
			return errs.New(errs.InvalidDimensionParameter, "empty key for index %q", idxName)
		}
		if err := mt.Put(idxName, pk, ts, value); err != nil {
			return err
		}
	}
	return nil
}

// TsDimension is one (ts column name, ts value) pair for the
// multiple-ts-column Put form.
type TsDimension struct {
	TsName string
	TS     uint64
}

// PutMultiTs implements put(dimensions[], ts_dimensions[], value): for
// each dimension, within its inner index, every ts_idx in the inner
// group is updated using the matching ts-dimension value.
func (mt *MemTable) PutMultiTs(dimensions map[string]string, tsDims []TsDimension, value []byte) error {
	if len(dimensions) == 0 {
		return errs.New(errs.InvalidDimensionParameter, "no dimensions given")
	}
	tsByName := make(map[string]uint64, len(tsDims))
	for _, d := range tsDims {
		tsByName[d.TsName] = d.TS
	}

	for idxName, pk := range dimensions {
		if pk == "" {
			return errs.New(errs.InvalidDimensionParameter, "empty key for index %q", idxName)
		}
		base, ok := mt.index.GetIndex(idxName)
		if !ok {
			return errs.New(errs.IdxNameNotFound, "index %q not found", idxName)
		}
		inner, ok := mt.index.InnerIndexByPos(base.InnerPos)
		if !ok {
			return errs.New(errs.IdxNameNotFound, "inner index at pos %d not found", base.InnerPos)
		}
		for _, member := range inner.Indexes {
			if member.TsColumn == nil {
				continue
			}
			ts, ok := tsByName[member.TsColumn.Name]
			if !ok {
				continue
			}
			if err := mt.putInner(member.InnerPos, pk, ts, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (mt *MemTable) putInner(innerPos uint32, pk string, ts uint64, value []byte) error {
	if ts == 0 {
		return errs.New(errs.TsMustBeGreaterThanZero, "ts must be > 0")
	}
	g, err := mt.groupFor(innerPos)
	if err != nil {
		return err
	}
	seg := g.segmentFor(pk)
	l := seg.getOrCreate(pk, g.maxHeight)
	l.Insert(ts, value)
	mt.countCache.Remove(countCacheKey(innerPos, pk))
	return nil
}

func countCacheKey(innerPos uint32, pk string) string {
	return string(rune(innerPos)) + "\x00" + pk
}

// Get returns the first record matching the bounds, or ok=false.
func (mt *MemTable) Get(a ScanArgs, indexName string, tsName string) (Record, bool, error) {
	recs, _, err := mt.scan(a, indexName, tsName, 1)
	if err != nil || len(recs) == 0 {
		return Record{}, false, err
	}
	return recs[0], true, nil
}

// Scan returns up to a.Limit records in ts-descending order.
func (mt *MemTable) Scan(a ScanArgs, indexName string, tsName string) ([]Record, error) {
	recs, _, err := mt.scan(a, indexName, tsName, a.Limit)
	return recs, err
}

func (mt *MemTable) scan(a ScanArgs, indexName, tsName string, limit uint32) ([]Record, bool, error) {
	if a.St > 0 && a.St < a.Et {
		return nil, false, errs.New(errs.StLessThanEt, "st=%d < et=%d", a.St, a.Et)
	}
	if a.Atleast > 0 && limit > 0 && a.Atleast > limit {
		return nil, false, errs.New(errs.InvalidParameter, "atleast %d > limit %d", a.Atleast, limit)
	}

	var idx *schema.Index
	var ok bool
	if tsName != "" {
		idx, ok = mt.index.GetIndexByTs(indexName, tsName)
	} else {
		idx, ok = mt.index.GetIndex(indexName)
	}
	if !ok {
		return nil, false, errs.New(errs.IdxNameNotFound, "index %q not found", indexName)
	}

	g, err := mt.groupFor(idx.InnerPos)
	if err != nil {
		return nil, false, err
	}
	seg := g.segmentFor(a.PK)
	l, ok := seg.get(a.PK)
	if !ok {
		return nil, true, nil
	}

	idxTTL := idx.TTL()
	args := a
	if idxTTL.Type == ttl.Absolute || idxTTL.Type == ttl.AbsOrLat {
		args.HasExpireTime = true
		args.ExpireTime = idxTTL.AbsMs
	}
	et, etType := resolveBounds(args)

	var out []Record
	lastTS := uint64(0)
	haveLast := false
	isFinish := true
	l.Walk(func(rank uint64, ts uint64, value []byte) bool {
		if limit > 0 && uint32(len(out)) >= limit {
			isFinish = false
			return false
		}
		if !inRange(ts, a.St, a.StType, et, etType) {
			// Once we've passed below et (descending order), nothing
			// further can match since ts only decreases.
			if ts < et {
				return false
			}
			return true
		}
		if a.RemoveDupTS && haveLast && ts == lastTS {
			return true // first instance already emitted, skip the rest
		}
		lastTS = ts
		haveLast = true
		out = append(out, Record{TS: ts, Value: append([]byte(nil), value...)})
		return true
	})
	return out, isFinish, nil
}

// Count returns the number of live records for pk under the given
// index. If filterExpiredData is false and a cached count is
// available, it is returned without a full chain walk.
func (mt *MemTable) Count(indexName string, pk string, filterExpiredData bool) (int, error) {
	idx, ok := mt.index.GetIndex(indexName)
	if !ok {
		return 0, errs.New(errs.IdxNameNotFound, "index %q not found", indexName)
	}
	g, err := mt.groupFor(idx.InnerPos)
	if err != nil {
		return 0, err
	}
	seg := g.segmentFor(pk)
	l, ok := seg.get(pk)
	if !ok {
		return 0, nil
	}

	if !filterExpiredData {
		if n, ok := mt.countCache.Get(countCacheKey(idx.InnerPos, pk)); ok {
			return n, nil
		}
		n := l.Len()
		mt.countCache.Add(countCacheKey(idx.InnerPos, pk), n)
		return n, nil
	}

	idxTTL := idx.TTL()
	n := 0
	l.Walk(func(rank, ts uint64, _ []byte) bool {
		if !idxTTL.IsExpired(ts, rank) {
			n++
		}
		return true
	})
	return n, nil
}

// TraverseCursor resumes a Traverse call across pages.
type TraverseCursor struct {
	PK string
	TS uint64
}

// TraverseResult is one page of a full-partition traversal.
type TraverseResult struct {
	Records  []TraverseRecord
	Cursor   TraverseCursor
	IsFinish bool
}

// TraverseRecord names the pk alongside its record, since Traverse
// walks the whole partition rather than one pk's chain.
type TraverseRecord struct {
	PK     string
	Record Record
}

// Traverse walks pk-ascending, ts-descending order starting strictly
// after cursor, capped at maxCount.
func (mt *MemTable) Traverse(indexName string, cursor TraverseCursor, maxCount uint32) (TraverseResult, error) {
	idx, ok := mt.index.GetIndex(indexName)
	if !ok {
		return TraverseResult{}, errs.New(errs.IdxNameNotFound, "index %q not found", indexName)
	}
	g, err := mt.groupFor(idx.InnerPos)
	if err != nil {
		return TraverseResult{}, err
	}

	var all []pkEntry
	for _, seg := range g.segments {
		seg.forEach(func(pk string, l *tsList) {
			all = append(all, pkEntry{pk, l})
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].pk < all[j].pk })

	var ordered []TraverseRecord
	for _, e := range all {
		e.l.Walk(func(_ uint64, ts uint64, value []byte) bool {
			ordered = append(ordered, TraverseRecord{PK: e.pk, Record: Record{TS: ts, Value: value}})
			return true
		})
	}

	start := 0
	if cursor.PK != "" {
		for i, r := range ordered {
			if afterCursor(r, cursor) {
				start = i
				break
			}
			start = i + 1
		}
	}

	res := TraverseResult{IsFinish: true}
	end := start + int(maxCount)
	if maxCount == 0 || end >= len(ordered) {
		end = len(ordered)
	} else {
		res.IsFinish = false
	}
	res.Records = ordered[start:end]
	if !res.IsFinish && end > 0 {
		last := ordered[end-1]
		res.Cursor = TraverseCursor{PK: last.PK, TS: last.Record.TS}
	}
	return res, nil
}

// afterCursor reports whether r sorts strictly after cursor in
// pk-ascending, ts-descending traversal order.
func afterCursor(r TraverseRecord, cursor TraverseCursor) bool {
	if r.PK != cursor.PK {
		return r.PK > cursor.PK
	}
	return r.Record.TS < cursor.TS
}

type pkEntry struct {
	pk string
	l  *tsList
}
