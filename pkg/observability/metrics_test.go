package observability

import (
	"context"
	"testing"

	"github.com/aretw0/undolog"
	"github.com/aretw0/undolog/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg, "undolog")
	require.NoError(t, err)

	m := undolog.New(undolog.WithName("s1"), undolog.WithLifecycleHooks(metrics.Hooks()))
	for i := 0; i < 3; i++ {
		r := m.Begin("op")
		require.NoError(t, r.Record(domain.Noop))
		_, err := r.Commit()
		require.NoError(t, err)
	}
	m.Merge(2)
	_, err = m.Undo(1)
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.events.WithLabelValues("commit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.events.WithLabelValues("merge")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.events.WithLabelValues("undo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.depth.WithLabelValues("s1")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.steps))

	metrics.Forget("s1")
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.depth))
}

func TestMetrics_Failures(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg, "")
	require.NoError(t, err)

	hooks := metrics.Hooks()
	hooks.Emit(context.Background(), &domain.TxEvent{
		EventBase: domain.EventBase{Type: domain.EventPurge, Log: "s"},
		Error:     "boom",
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("purge")))
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg, "undolog")
	require.NoError(t, err)

	_, err = NewMetrics(reg, "undolog")
	assert.Error(t, err)
}
