package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Procedure is one stored procedure definition plus its compiled plan.
// Compiled is an opaque handle into the (out-of-scope) SQL engine; the
// catalog only decides whether a cached plan can still be reused.
type Procedure struct {
	DB       string
	Name     string
	SQL      string
	Hash     string // sha256 of SQL, used to detect unchanged definitions
	Payload  []byte // snappy-compressed SQL, as stored in the registry
	Compiled any
}

func contentHash(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}

// CompressSQL snappy-compresses a procedure body for registry storage.
func CompressSQL(sql string) []byte {
	return snappy.Encode(nil, []byte(sql))
}

// DecompressSQL reverses CompressSQL.
func DecompressSQL(payload []byte) (string, error) {
	b, err := snappy.Decode(nil, payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ProcedureCache caches compiled procedures keyed by (db, name),
// reusing a cached plan across refreshes as long as the procedure's
// SQL content hash is unchanged and recompiling otherwise.
type ProcedureCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Procedure]
}

func newProcedureCache(size int) (*ProcedureCache, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, *Procedure](size)
	if err != nil {
		return nil, err
	}
	return &ProcedureCache{cache: c}, nil
}

func procKey(db, name string) string { return db + "." + name }

// Get returns the cached procedure for (db, name), if any.
func (pc *ProcedureCache) Get(db, name string) (*Procedure, bool) {
	return pc.cache.Get(procKey(db, name))
}

// Upsert installs sql as the current definition of (db, name). compile
// is called to produce a fresh Compiled plan only when no cached entry
// exists or the cached entry's content hash differs from sql's; compile
// itself decides single-row vs batch mode and is only ever invoked with
// the caller's lock released.
func (pc *ProcedureCache) Upsert(db, name, sql string, compile func(sql string) (any, error)) (*Procedure, error) {
	hash := contentHash(sql)

	pc.mu.Lock()
	if existing, ok := pc.cache.Get(procKey(db, name)); ok && existing.Hash == hash {
		pc.mu.Unlock()
		return existing, nil
	}
	pc.mu.Unlock()

	compiled, err := compile(sql)
	if err != nil {
		return nil, err
	}
	p := &Procedure{
		DB:       db,
		Name:     name,
		SQL:      sql,
		Hash:     hash,
		Payload:  CompressSQL(sql),
		Compiled: compiled,
	}
	pc.cache.Add(procKey(db, name), p)
	return p, nil
}

// Remove drops (db, name) from the cache, e.g. on DropProcedure.
func (pc *ProcedureCache) Remove(db, name string) {
	pc.cache.Remove(procKey(db, name))
}
