package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values recorded by the configuration manager.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultInvalid = "invalid"
)

var (
	// Reloads counts configuration loads from the backing file, including
	// forced reloads, by result.
	Reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quartz_config_reloads_total",
		Help: "Configuration loads from the backing file, by result.",
	}, []string{"result"})

	// Updates counts full configuration commits, by result.
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quartz_config_updates_total",
		Help: "Full configuration updates written to the backing file, by result.",
	}, []string{"result"})

	// Overlays counts overlay merges, by result.
	Overlays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quartz_config_overlays_total",
		Help: "Overlay documents merged into the configuration, by result.",
	}, []string{"result"})
)
