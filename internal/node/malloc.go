package node

// ConfigureMallocReleaseRate tunes how aggressively the allocator
// returns freed memory to the OS. It is a no-op on the default build;
// a cgo build linking tcmalloc overrides this to call
// MallocExtension::SetMemoryReleaseRate.
func ConfigureMallocReleaseRate(rate float64) {
	configureMallocReleaseRate(rate)
}
