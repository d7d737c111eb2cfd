package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordLogin(flow string, success bool)         {}
func (n *NoopMetrics) RecordLogout(flow, result string)              {}
func (n *NoopMetrics) RecordTokenRefresh(flow string, success bool)  {}
func (n *NoopMetrics) RecordTokenVerification(policy, result string) {}
func (n *NoopMetrics) RecordHTTPRequest(
	method, path, status string,
	duration time.Duration,
) {
}
