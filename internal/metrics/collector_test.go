package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorDisabledSkipsRegistration(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: false})

	require.NoError(t, err)
	assert.Nil(t, c.registry)
}

func TestNewCollectorDefaultsWhenNilConfig(t *testing.T) {
	c, err := NewCollector(nil)

	require.NoError(t, err)
	assert.Equal(t, "vfsql", c.config.Namespace)
	assert.Equal(t, 9090, c.config.Port)
}

func TestRecordOperationDoesNotPanicWhenDisabled(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: false})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		c.RecordOperation("read", time.Millisecond, true)
		c.RecordCommit()
		c.RecordRollback()
		c.RecordMountInjection()
		c.RecordCacheHit()
		c.RecordCacheMiss()
		c.SetActiveRequests(3)
	})
}

func TestRecordOperationOnNilCollectorIsSafe(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordOperation("read", time.Millisecond, true)
		c.RecordCommit()
		c.RecordRollback()
		c.RecordMountInjection()
		c.RecordCacheHit()
		c.RecordCacheMiss()
		c.SetActiveRequests(1)
	})
}

func TestRecordOperationIncrementsCounters(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: true, Namespace: "test"})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		c.RecordOperation("read", 2*time.Millisecond, true)
		c.RecordOperation("write", time.Millisecond, false)
		c.RecordCommit()
		c.RecordRollback()
		c.RecordMountInjection()
		c.RecordCacheHit()
		c.RecordCacheMiss()
		c.SetActiveRequests(2)
	})

	families, err := c.registry.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			values[mf.GetName()] += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, 2.0, values["test_operations_total"])
	assert.Equal(t, 1.0, values["test_transaction_commits_total"])
	assert.Equal(t, 1.0, values["test_transaction_rollbacks_total"])
	assert.Equal(t, 1.0, values["test_mount_point_injections_total"])
	assert.Equal(t, 2.0, values["test_schema_cache_requests_total"])
	assert.Equal(t, 2.0, values["test_active_requests"])
}
