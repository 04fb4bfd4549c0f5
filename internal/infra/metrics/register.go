package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register enqueues collectors from each subsystem file's init. Nothing
// touches the default registry until MustRegister runs, so tests that import
// this package never trip duplicate-registration panics.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister installs every enqueued collector exactly once. Called from
// main after config loads; repeat calls are no-ops.
func MustRegister() {
	once.Do(func() {
		if len(collectors) > 0 {
			prometheus.MustRegister(collectors...)
		}
	})
}
