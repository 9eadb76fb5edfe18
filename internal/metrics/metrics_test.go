package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.CacheHit(CacheDocuments)
	m.CacheHit(CacheDocuments)
	m.CacheMiss(CacheDocuments)
	m.CacheAbsent(CacheUsers)
	m.Candidate()
	m.Confirmed(3)
	m.Confirmed(0)
	m.Skipped(SkipDeleted)
	m.Indexed()
	m.ObserveQuery(2 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheDocuments, "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheDocuments, "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheUsers, "absent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.candidates))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.confirmed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues(SkipDeleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.indexedDocuments))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	require.Contains(t, byName, "spinach_query_duration_seconds")
	assert.Equal(t, dto.MetricType_HISTOGRAM, byName["spinach_query_duration_seconds"].GetType())
	assert.Equal(t, uint64(1), byName["spinach_query_duration_seconds"].GetMetric()[0].GetHistogram().GetSampleCount())
	assert.Equal(t, dto.MetricType_COUNTER, byName["spinach_candidates_total"].GetType())
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheHit(CacheUsers)
		m.CacheMiss(CacheUsers)
		m.CacheAbsent(CacheUsers)
		m.Candidate()
		m.Confirmed(1)
		m.Skipped(SkipInvalid)
		m.Indexed()
		m.ObserveQuery(time.Second)
	})
	assert.Nil(t, m.Registry())
}
