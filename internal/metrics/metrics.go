// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"Mansoor88-6/activity-hub/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChunksIngested   *prometheus.CounterVec
	BatchesRejected  prometheus.Counter
	CommandsCreated  *prometheus.CounterVec
	CommandsClaimed  *prometheus.CounterVec
	CommandConflicts prometheus.Counter
	Heartbeats       *prometheus.CounterVec
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChunksIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "activityhub_chunks_ingested_total",
			Help: "Ingested activity chunks, partitioned by outcome",
		}, []string{"outcome"}),
		BatchesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "activityhub_ingest_batches_rejected_total",
			Help: "Ingest batches rejected by validation",
		}),
		CommandsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "activityhub_commands_created_total",
			Help: "Commands queued, partitioned by channel",
		}, []string{"channel"}),
		CommandsClaimed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "activityhub_commands_claimed_total",
			Help: "Commands claimed by polling devices, partitioned by channel",
		}, []string{"channel"}),
		CommandConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "activityhub_command_conflicts_total",
			Help: "Command creations rejected because one is already pending",
		}),
		Heartbeats: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "activityhub_heartbeats_total",
			Help: "Device heartbeats, partitioned by channel",
		}, []string{"channel"}),
	}
}

// ObserveIngest records the per-outcome counters of one batch.
func (m *Metrics) ObserveIngest(c models.IngestCounters) {
	m.ChunksIngested.WithLabelValues(string(models.OutcomeInserted)).Add(float64(c.Inserted))
	m.ChunksIngested.WithLabelValues(string(models.OutcomeUpdated)).Add(float64(c.Updated))
	m.ChunksIngested.WithLabelValues(string(models.OutcomeDuplicate)).Add(float64(c.Duplicates))
	m.ChunksIngested.WithLabelValues(string(models.OutcomeFailed)).Add(float64(c.Failed))
}
