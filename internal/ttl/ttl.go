// Package ttl implements the four TTL kinds used by an index and their
// NeedGc/IsExpired truth tables.
package ttl

import "fmt"

// Type is the TTL evaluation strategy for an index.
type Type int

const (
	Absolute Type = iota + 1
	Latest
	AbsAndLat
	AbsOrLat
)

func (t Type) String() string {
	switch t {
	case Absolute:
		return "Absolute"
	case Latest:
		return "Latest"
	case AbsAndLat:
		return "AbsAndLat"
	case AbsOrLat:
		return "AbsOrLat"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// St ("TTL state") is the immutable-by-convention TTL tuple attached to
// an index. AbsMs is milliseconds (already converted from the minutes
// unit used at configuration/RPC input time); LatCount is a record
// count. Callers update a TTL by atomically swapping in a new St, never
// by mutating fields in place — see schema.Index.UpdateTTL.
type St struct {
	AbsMs    uint64
	LatCount uint64
	Type     Type
}

// NeedGc reports whether any component of this TTL is active, i.e.
// garbage collection is worth running at all for this index.
func (t St) NeedGc() bool {
	switch t.Type {
	case Absolute:
		return t.AbsMs != 0
	case Latest:
		return t.LatCount != 0
	case AbsAndLat:
		return t.AbsMs != 0 && t.LatCount != 0
	case AbsOrLat:
		return t.AbsMs != 0 || t.LatCount != 0
	default:
		return true
	}
}

// IsExpired reports whether a record at the given timestamp (ts, in
// milliseconds) and latest-rank (1-based position from the newest
// record for this pk) is expired under this TTL.
//
//   - Absolute:  expired iff ts <= AbsMs and AbsMs > 0.
//   - Latest:    expired iff rank > LatCount and LatCount > 0.
//   - AbsAndLat: expired iff BOTH sides would expire; zero on either
//     side disables GC entirely.
//   - AbsOrLat:  expired iff EITHER side would expire; a zero side is
//     simply not consulted (disabled), not "would expire".
func (t St) IsExpired(ts uint64, rank uint64) bool {
	switch t.Type {
	case Absolute:
		if t.AbsMs == 0 {
			return false
		}
		return ts <= t.AbsMs
	case Latest:
		if t.LatCount == 0 {
			return false
		}
		return rank > t.LatCount
	case AbsAndLat:
		if t.AbsMs == 0 || t.LatCount == 0 {
			return false
		}
		return ts <= t.AbsMs && rank > t.LatCount
	case AbsOrLat:
		switch {
		case t.AbsMs == 0 && t.LatCount == 0:
			return false
		case t.AbsMs == 0:
			return rank > t.LatCount
		case t.LatCount == 0:
			return ts <= t.AbsMs
		default:
			return ts <= t.AbsMs || rank > t.LatCount
		}
	default:
		return true
	}
}

// String renders the TTL for slow-log and admin-CLI display.
func (t St) String() string {
	switch t.Type {
	case Absolute:
		return fmt.Sprintf("%dmin", t.AbsMs/60000)
	case Latest:
		return fmt.Sprintf("%d", t.LatCount)
	case AbsAndLat:
		return fmt.Sprintf("%dmin&&%d", t.AbsMs/60000, t.LatCount)
	case AbsOrLat:
		return fmt.Sprintf("%dmin||%d", t.AbsMs/60000, t.LatCount)
	default:
		return "invalid ttl_type"
	}
}

// SameType reports whether two TTL states share the same Type. The
// type of a TTL is immutable once set; changing it requires dropping
// and recreating the index.
func SameType(a, b St) bool { return a.Type == b.Type }

// AbsMsFromMinutes converts a TTL given in minutes (the external RPC
// unit) into the millisecond unit stored internally.
func AbsMsFromMinutes(minutes uint64) uint64 { return minutes * 60 * 1000 }
