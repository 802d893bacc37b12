package application

// Metrics receives counters from the services. Implementations must be safe
// for concurrent use.
type Metrics interface {
	ExecutionRecorded(periodicity string)
	ExecutionRejected(reason string)
	DueEvaluated(reason string)
	PendingChecklists(userID string, pending int)
}

type noopMetrics struct{}

func (noopMetrics) ExecutionRecorded(string)      {}
func (noopMetrics) ExecutionRejected(string)      {}
func (noopMetrics) DueEvaluated(string)           {}
func (noopMetrics) PendingChecklists(string, int) {}

func defaultMetrics(m Metrics) Metrics {
	if m != nil {
		return m
	}
	return noopMetrics{}
}
