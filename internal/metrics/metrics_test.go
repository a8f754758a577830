package metrics

import (
	"testing"

	"Mansoor88-6/activity-hub/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveIngest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveIngest(models.IngestCounters{Inserted: 3, Updated: 1, Failed: 2})
	m.ObserveIngest(models.IngestCounters{Inserted: 1})

	assert.Equal(t, 4.0, testutil.ToFloat64(m.ChunksIngested.WithLabelValues("inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChunksIngested.WithLabelValues("updated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ChunksIngested.WithLabelValues("duplicate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChunksIngested.WithLabelValues("failed")))
}

func TestNew_IsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
