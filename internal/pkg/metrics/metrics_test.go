package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/samirrijal/questgeo/internal/pkg/metrics"
)

type fakePoolStat struct{ acquired, idle, total int32 }

func (f fakePoolStat) AcquiredConns() int32 { return f.acquired }
func (f fakePoolStat) IdleConns() int32     { return f.idle }
func (f fakePoolStat) TotalConns() int32    { return f.total }

func TestUpdateDBPoolMetrics(t *testing.T) {
	metrics.UpdateDBPoolMetrics(fakePoolStat{acquired: 3, idle: 7, total: 10})

	if got := testutil.ToFloat64(metrics.DBPoolConnsAcquired); got != 3 {
		t.Errorf("acquired = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.DBPoolConnsIdle); got != 7 {
		t.Errorf("idle = %v, want 7", got)
	}
	if got := testutil.ToFloat64(metrics.DBPoolConnsOpen); got != 10 {
		t.Errorf("open = %v, want 10", got)
	}
}

func TestUpdateDBPoolMetrics_IgnoresUnknownStat(t *testing.T) {
	metrics.UpdateDBPoolMetrics(fakePoolStat{total: 4})
	metrics.UpdateDBPoolMetrics("not a pool")

	if got := testutil.ToFloat64(metrics.DBPoolConnsOpen); got != 4 {
		t.Errorf("open = %v, want 4", got)
	}
}
