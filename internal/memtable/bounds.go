package memtable

// CompareType is a bound comparison operator for a scan's start/end time.
type CompareType int

// Gt is the zero value, so an unset end bound (Et 0) admits every ts > 0.
const (
	Gt CompareType = iota
	Eq
	Le
	Lt
	Ge
)

// ScanArgs bundles the parameters shared by Get/Scan/Traverse.
type ScanArgs struct {
	PK            string
	St            uint64 // 0 means "from newest"
	StType        CompareType
	Et            uint64
	EtType        CompareType
	Limit         uint32
	Atleast       uint32
	RemoveDupTS   bool
	ExpireTime    uint64 // computed externally for Absolute/AbsOrLat promotion
	HasExpireTime bool
}

// resolveBounds folds the TTL's expiration edge into the requested et
// bound: for Absolute/AbsOrLat TTLs, et is promoted to max(et,
// expireTime), and a Gt bound is demoted to Ge whenever the promotion
// moved et up to expireTime, so the record sitting exactly on the
// boundary is still included rather than dropped by a strict Gt.
func resolveBounds(a ScanArgs) (et uint64, etType CompareType) {
	et, etType = a.Et, a.EtType
	if a.HasExpireTime {
		if et < a.ExpireTime {
			et = a.ExpireTime
		}
		if etType == Gt && a.Et < a.ExpireTime {
			etType = Ge
		}
	}
	return et, etType
}

// inRange reports whether ts satisfies both the st and (resolved) et
// bounds of a ScanArgs, for the descending-ts iteration order used by
// Scan/Get.
func inRange(ts uint64, st uint64, stType CompareType, et uint64, etType CompareType) bool {
	if st != 0 {
		switch stType {
		case Eq:
			if ts != st {
				return false
			}
		case Le:
			if ts > st {
				return false
			}
		case Lt:
			if ts >= st {
				return false
			}
		case Ge:
			if ts < st {
				return false
			}
		case Gt:
			if ts <= st {
				return false
			}
		}
	}
	switch etType {
	case Eq:
		if ts != et {
			return false
		}
	case Le:
		if ts > et {
			return false
		}
	case Lt:
		if ts >= et {
			return false
		}
	case Ge:
		if ts < et {
			return false
		}
	case Gt:
		if ts <= et {
			return false
		}
	}
	return true
}
