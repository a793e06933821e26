// Package metrics exposes the state of a service node as Prometheus metrics.
package metrics

import (
	"github.com/mosaicnetworks/servicenode/src/node/state"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "servicenode"
	subsystem = "activation"
)

// SnapshotSource is implemented by node.ActiveNode.
type SnapshotSource interface {
	Snapshot() state.Snapshot
}

// PeerCounter is implemented by peers.ServiceNodeList.
type PeerCounter interface {
	Len() int
}

// Register adds the service node collectors to reg. Every metric reads the
// current snapshot when scraped, so nothing has to be updated from the control
// loop. peers may be nil.
func Register(reg prometheus.Registerer, src SnapshotSource, peers PeerCounter) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "state",
			Help:      "Current activation state (0 INITIAL, 1 SYNC_IN_PROGRESS, 2 INPUT_TOO_NEW, 3 NOT_CAPABLE, 4 STARTED)",
		}, func() float64 {
			return float64(src.Snapshot().State)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pinger_enabled",
			Help:      "1 while the node is sending liveness pings",
		}, func() float64 {
			if src.Snapshot().PingerEnabled {
				return 1
			}
			return 0
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_ping_timestamp_seconds",
			Help:      "Timestamp of the last ping sent",
		}, func() float64 {
			return float64(src.Snapshot().LastPing)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transitions_total",
			Help:      "Number of state changes",
		}, func() float64 {
			return float64(src.Snapshot().Transitions)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pings_sent_total",
			Help:      "Number of liveness pings broadcast",
		}, func() float64 {
			return float64(src.Snapshot().PingsSent)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "announcements_sent_total",
			Help:      "Number of announcements broadcast",
		}, func() float64 {
			return float64(src.Snapshot().AnnouncementsSent)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "broadcast_failures_total",
			Help:      "Number of failed broadcasts",
		}, func() float64 {
			return float64(src.Snapshot().BroadcastFailures)
		}),
	}

	if peers != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "service_nodes",
			Help:      "Number of service nodes heard from",
		}, func() float64 {
			return float64(peers.Len())
		}))
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}
