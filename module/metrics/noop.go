package metrics

// NoopCollector implements all metrics interfaces with no-ops. It is
// used in tests and wherever instrumentation is not wired up.
type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) TransitionApplied(engine string, operation string)       {}
func (nc *NoopCollector) TransitionRejected(engine string, operation string)      {}
func (nc *NoopCollector) TransferEmitted(engine string, operation string, legs int) {}
func (nc *NoopCollector) CacheEntries(resource string, entries uint)              {}
func (nc *NoopCollector) CacheHit(resource string)                                {}
func (nc *NoopCollector) CacheMiss(resource string)                               {}
