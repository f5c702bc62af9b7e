package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(httpRequests.WithLabelValues("time"))
	IncHTTP("time")
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("time")))

	okBefore := testutil.ToFloat64(computations.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(computations.WithLabelValues("error"))
	ObserveComputation(5*time.Millisecond, 12, nil)
	ObserveComputation(0, 0, errors.New("boom"))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(computations.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(computations.WithLabelValues("error")))

	hits := testutil.ToFloat64(cacheLookups.WithLabelValues("hit"))
	IncCacheHit()
	IncCacheMiss()
	assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookups.WithLabelValues("hit")))

	reloads := testutil.ToFloat64(configReloads.WithLabelValues("error"))
	IncConfigReload(false)
	assert.Equal(t, reloads+1, testutil.ToFloat64(configReloads.WithLabelValues("error")))
}
