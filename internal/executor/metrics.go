package executor

import "time"

// Metrics is the outcome-reporting surface the executor updates after
// each payload (spec §4.G.1, step 4: "update metrics from each
// outcome"). Kept as a small interface local to this package so it does
// not import internal/metrics; metrics.Collector implements it and is
// passed in via WithMetrics.
type Metrics interface {
	IncPayloadsOK()
	IncPayloadsFailed()
	RecordStoreDuration(time.Duration)
	RecordStreamDuration(time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) IncPayloadsOK()                    {}
func (nopMetrics) IncPayloadsFailed()                {}
func (nopMetrics) RecordStoreDuration(time.Duration) {}
func (nopMetrics) RecordStreamDuration(time.Duration) {}
