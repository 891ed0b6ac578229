package tablet

import (
	"time"

	"github.com/fedb/tabletd/internal/binlog"
	"github.com/fedb/tabletd/internal/errs"
	"github.com/fedb/tabletd/internal/memtable"
)

// PutRequest is the node-side shape of a Put call, covering all three
// wire forms: single-index (IndexName set), dimensional
// (Dimensions set), and multi-ts (Dimensions + TsDimensions set).
type PutRequest struct {
	IndexName    string
	PK           string
	TS           uint64
	Value        []byte
	Dimensions   map[string]string
	TsDimensions []memtable.TsDimension
}

// Put validates and applies one write: MemTable first, then binlog
// append — the log is the authoritative replication source and is
// appended only after the in-memory commit succeeds. Put itself sends
// nothing to followers.
func (p *Partition) Put(req PutRequest) error {
	start := time.Now()
	if err := p.checkWritable(); err != nil {
		return err
	}
	if err := validatePut(req, p.index.Size()); err != nil {
		return err
	}

	entry := &binlog.Entry{Method: binlog.MethodPut}
	var err error
	switch {
	case len(req.Dimensions) > 0 && len(req.TsDimensions) > 0:
		err = p.mt.PutMultiTs(req.Dimensions, req.TsDimensions, req.Value)
		entry.Dimensions = req.Dimensions
		entry.TsDimensions = tsDimMap(req.TsDimensions)
		entry.Value = req.Value
	case len(req.Dimensions) > 0:
		err = p.mt.PutDimensions(req.TS, req.Value, req.Dimensions)
		entry.Dimensions = req.Dimensions
		entry.StartTs = req.TS
		entry.Value = req.Value
	default:
		err = p.mt.Put(req.IndexName, req.PK, req.TS, req.Value)
		entry.IndexName = req.IndexName
		entry.PK = req.PK
		entry.StartTs = req.TS
		entry.Value = req.Value
	}
	if err != nil {
		return errs.Wrap(errs.PutFailed, err, "put")
	}

	if _, err := p.writer.Append(entry); err != nil {
		return errs.Wrap(errs.WriteDataFailed, err, "append binlog entry")
	}

	p.logSlow("put", time.Since(start), req.PK)
	return nil
}

func tsDimMap(tsDims []memtable.TsDimension) map[string]uint64 {
	out := make(map[string]uint64, len(tsDims))
	for _, d := range tsDims {
		out[d.TsName] = d.TS
	}
	return out
}

// validatePut enforces dimension cardinality <= index count and
// per-dimension non-empty key, alongside the single-index form's own
// non-empty pk requirement.
func validatePut(req PutRequest, indexCount int) error {
	if len(req.Dimensions) == 0 && len(req.TsDimensions) == 0 {
		if req.PK == "" {
			return errs.New(errs.InvalidParameter, "empty primary key")
		}
		if req.TS == 0 {
			return errs.New(errs.TsMustBeGreaterThanZero, "ts must be > 0")
		}
		return nil
	}
	if len(req.Dimensions) > indexCount {
		return errs.New(errs.InvalidDimensionParameter, "%d dimensions for %d indexes", len(req.Dimensions), indexCount)
	}
	for idxName, pk := range req.Dimensions {
		if pk == "" {
			return errs.New(errs.InvalidDimensionParameter, "empty key for dimension %q", idxName)
		}
	}
	return nil
}

// Get returns the record for one (pk, ts-bound) lookup on one index.
func (p *Partition) Get(a memtable.ScanArgs, indexName, tsName string) (memtable.Record, bool, error) {
	start := time.Now()
	if err := p.checkReadable(); err != nil {
		return memtable.Record{}, false, err
	}
	if a.PK == "" {
		return memtable.Record{}, false, errs.New(errs.InvalidParameter, "empty primary key")
	}
	rec, ok, err := p.mt.Get(a, indexName, tsName)
	p.logSlow("get", time.Since(start), a.PK)
	return rec, ok, err
}

// Scan returns up to a.Limit records for one pk on one index.
func (p *Partition) Scan(a memtable.ScanArgs, indexName, tsName string) ([]memtable.Record, error) {
	start := time.Now()
	if err := p.checkReadable(); err != nil {
		return nil, err
	}
	if a.PK == "" {
		return nil, errs.New(errs.InvalidParameter, "empty primary key")
	}
	recs, err := p.mt.Scan(a, indexName, tsName)
	p.logSlow("scan", time.Since(start), a.PK)
	return recs, err
}

// Count returns the number of records for one pk on one index.
func (p *Partition) Count(indexName, pk string, filterExpiredData bool) (int, error) {
	start := time.Now()
	if err := p.checkReadable(); err != nil {
		return 0, err
	}
	n, err := p.mt.Count(indexName, pk, filterExpiredData)
	p.logSlow("count", time.Since(start), pk)
	return n, err
}

// Traverse walks the whole partition in pk-ascending, ts-descending order.
func (p *Partition) Traverse(indexName string, cursor memtable.TraverseCursor, maxCount uint32) (memtable.TraverseResult, error) {
	start := time.Now()
	if err := p.checkReadable(); err != nil {
		return memtable.TraverseResult{}, err
	}
	res, err := p.mt.Traverse(indexName, cursor, maxCount)
	p.logSlow("traverse", time.Since(start), "")
	return res, err
}

// DeleteRequest names a pk-scoped delete on one index, with an
// optional ts-range [St, Et). St == Et == 0 deletes the whole pk chain.
type DeleteRequest struct {
	IndexName string
	TsName    string
	PK        string
	St, Et    uint64
}

// Delete removes records for req.PK and appends a Delete-method binlog
// entry. Follower.AppendEntries and snapshot.Recover skip Delete
// entries, so the deletion is not replayed on followers or on recovery.
func (p *Partition) Delete(req DeleteRequest) (int, error) {
	start := time.Now()
	if err := p.checkWritable(); err != nil {
		return 0, err
	}
	if req.PK == "" {
		return 0, errs.New(errs.InvalidParameter, "empty primary key")
	}

	n, err := p.mt.Delete(req.IndexName, req.TsName, req.PK, req.St, req.Et)
	if err != nil {
		return 0, errs.Wrap(errs.DeleteFailed, err, "delete")
	}

	entry := &binlog.Entry{
		Method:    binlog.MethodDelete,
		IndexName: req.IndexName,
		PK:        req.PK,
		StartTs:   req.St,
		EndTs:     req.Et,
	}
	if _, err := p.writer.Append(entry); err != nil {
		return n, errs.Wrap(errs.WriteDataFailed, err, "append binlog entry")
	}

	p.logSlow("delete", time.Since(start), req.PK)
	return n, nil
}

// logSlow emits a slow-log line when elapsed exceeds the configured
// threshold for op's category (put vs. everything else, which uses the
// query threshold).
func (p *Partition) logSlow(op string, elapsed time.Duration, detail string) {
	if p.onSlowLog == nil {
		return
	}
	threshold := p.querySlowLogThreshold
	if op == "put" || op == "delete" {
		threshold = p.putSlowLogThreshold
	}
	if threshold > 0 && elapsed > threshold {
		p.onSlowLog(op, elapsed, detail)
	}
}
