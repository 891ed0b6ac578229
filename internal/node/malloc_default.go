//go:build !tcmalloc

package node

func configureMallocReleaseRate(rate float64) {}
