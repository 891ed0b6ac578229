package tablet

import (
	"encoding/binary"
	"io"

	"github.com/fedb/tabletd/internal/memtable"
)

// ScanResponse carries a Scan/Traverse result as a single io.WriterTo
// payload: a length-prefixed sequence of (pk?, ts, value) records,
// written directly to the RPC response's attachment stream rather than
// marshaled through an intermediate struct, so one large scan doesn't
// round-trip through a second allocation before going on the wire.
type ScanResponse struct {
	// WithPK includes a pk per record (Traverse); Scan callers already
	// know the pk and can leave this false.
	WithPK  bool
	Records []memtable.Record
	PKs     []string // parallel to Records when WithPK is set
}

// WriteTo implements io.WriterTo.
func (r ScanResponse) WriteTo(w io.Writer) (int64, error) {
	var total int64
	var hdr [8]byte

	binary.BigEndian.PutUint32(hdr[:4], uint32(len(r.Records)))
	n, err := w.Write(hdr[:4])
	total += int64(n)
	if err != nil {
		return total, err
	}

	for i, rec := range r.Records {
		if r.WithPK {
			pk := r.PKs[i]
			binary.BigEndian.PutUint32(hdr[:4], uint32(len(pk)))
			if n, err = w.Write(hdr[:4]); total += int64(n); err != nil {
				return total, err
			}
			n, err = io.WriteString(w, pk)
			total += int64(n)
			if err != nil {
				return total, err
			}
		}

		binary.BigEndian.PutUint64(hdr[:8], rec.TS)
		if n, err = w.Write(hdr[:8]); total += int64(n); err != nil {
			return total, err
		}

		binary.BigEndian.PutUint32(hdr[:4], uint32(len(rec.Value)))
		if n, err = w.Write(hdr[:4]); total += int64(n); err != nil {
			return total, err
		}
		n, err = w.Write(rec.Value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ScanResponseFromTraverse adapts a TraverseResult into a ScanResponse
// carrying its per-record pk.
func ScanResponseFromTraverse(res memtable.TraverseResult) ScanResponse {
	pks := make([]string, len(res.Records))
	recs := make([]memtable.Record, len(res.Records))
	for i, r := range res.Records {
		pks[i] = r.PK
		recs[i] = r.Record
	}
	return ScanResponse{WithPK: true, Records: recs, PKs: pks}
}
