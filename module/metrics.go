// Package module defines the small shared interfaces that wire the
// engines to observability and other cross-cutting concerns.
package module

// EngineMetrics instruments the state transitions of the fund engines.
type EngineMetrics interface {
	// TransitionApplied reports a committed state transition of an
	// engine operation.
	TransitionApplied(engine string, operation string)
	// TransitionRejected reports an operation rejected by validation,
	// authorization, lifecycle state or an invariant check.
	TransitionRejected(engine string, operation string)
	// TransferEmitted reports the legs of an outbound transfer batch
	// committed by an engine operation.
	TransferEmitted(engine string, operation string, legs int)
}

// CacheMetrics instruments the storage read caches.
type CacheMetrics interface {
	// CacheEntries reports the total number of cached items.
	CacheEntries(resource string, entries uint)
	// CacheHit reports that a queried item was found in the cache.
	CacheHit(resource string)
	// CacheMiss reports that a queried item was not found in the cache
	// and had to be loaded from the database.
	CacheMiss(resource string)
}
