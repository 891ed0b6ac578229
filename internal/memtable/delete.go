package memtable

import "github.com/fedb/tabletd/internal/errs"

// Delete removes records for pk within one index's ts-range [st, et):
// st == 0 means no lower bound, et == 0 means no upper bound, and
// st == et == 0 deletes the entire pk chain for that index, matching
// the no-range Delete the original tablet's RPC handler exposes.
func (mt *MemTable) Delete(indexName, tsName, pk string, st, et uint64) (int, error) {
	var innerPos uint32
	if tsName != "" {
		idx, found := mt.index.GetIndexByTs(indexName, tsName)
		if !found {
			return 0, errs.New(errs.TsNameNotFound, "ts name %q not found on index %q", tsName, indexName)
		}
		innerPos = idx.InnerPos
	} else {
		idx, found := mt.index.GetIndex(indexName)
		if !found {
			return 0, errs.New(errs.IdxNameNotFound, "index %q not found", indexName)
		}
		innerPos = idx.InnerPos
	}

	g, err := mt.groupFor(innerPos)
	if err != nil {
		return 0, err
	}
	seg := g.segmentFor(pk)
	l, ok := seg.get(pk)
	if !ok {
		return 0, nil
	}

	removed := l.RemoveWhere(func(_ uint64, ts uint64) bool {
		inRange := (st == 0 || ts >= st) && (et == 0 || ts < et)
		return !inRange
	})
	seg.deletePKIfEmpty(pk, l)
	mt.countCache.Remove(countCacheKey(innerPos, pk))
	return removed, nil
}
