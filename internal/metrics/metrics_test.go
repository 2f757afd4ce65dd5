package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	dto "github.com/prometheus/client_model/go"
)

// testCollector is shared by every test: NewCollector registers its
// metrics on the default Prometheus registry, so a second call panics.
var testCollector = NewCollector()

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestCollectorImplementsDownstreamMetricsInterfaces(t *testing.T) {
	c := testCollector

	c.IncPayloadsOK()
	c.IncPayloadsFailed()
	c.RecordStoreDuration(time.Millisecond)
	c.RecordStreamDuration(time.Millisecond)

	c.IncSessionOpened()
	c.IncSessionClosed()
	c.IncSubscribed()
	c.IncUnsubscribed()
	c.IncDuplicateSubscription()
	c.IncBackpressureDropped()
	c.IncAuthRejected()

	c.IncRequest("blocks")
	c.IncRateLimited()
	c.IncValidationError()
	c.IncServerError()

	assert.Equal(t, float64(1), counterValue(t, c.payloadsOK))
	assert.Equal(t, float64(1), counterValue(t, c.payloadsFailed))
	assert.Equal(t, float64(1), counterValue(t, c.sessionsOpened))
	assert.Equal(t, float64(1), counterValue(t, c.sessionsClosed))
	assert.Equal(t, float64(1), counterValue(t, c.authRejected))
	assert.Equal(t, float64(1), counterValue(t, c.rateLimited))
}

func TestCollectorSampleSetsGauges(t *testing.T) {
	c := testCollector
	c.Sample(42, 128.5, 7.25)

	var m dto.Metric
	require := assert.New(t)
	require.NoError(c.goroutines.Write(&m))
	require.Equal(float64(42), m.GetGauge().GetValue())
}

func TestSystemSamplerReportsNonNegativeValues(t *testing.T) {
	s := NewSystemSampler()
	assert.GreaterOrEqual(t, s.Goroutines(), 1)
	assert.GreaterOrEqual(t, s.MemoryMB(), float64(0))
	assert.GreaterOrEqual(t, s.CPUPercent(), float64(0))
}

func TestCollectorRunStopsOnSignal(t *testing.T) {
	c := testCollector
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		c.Run(stop, time.Millisecond)
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after signal")
	}
}
