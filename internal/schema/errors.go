package schema

import "github.com/fedb/tabletd/internal/errs"

func errTTLTypeMismatch(indexName string) error {
	return errs.New(errs.TtlTypeMismatch, "index %q: cannot change ttl type", indexName)
}

func errTableMetaIllegal(format string, args ...any) error {
	return errs.New(errs.TableMetaIsIllegal, format, args...)
}

func errIdxNameNotFound(name string) error {
	return errs.New(errs.IdxNameNotFound, "index %q not found", name)
}
