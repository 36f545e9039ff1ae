package recovery

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var outcomeCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ottoai_recovery_outcome_total",
	Help: "Outcomes of recovery item processing passes",
}, []string{"tenant", "outcome"})

// MetricsContainer encapsulates processor-related metrics
type MetricsContainer struct {
	// ProcessedItems is the number of items worked by the due sweep
	ProcessedItems uint64
	// ForcedEscalations is the number of items escalated by the deadline sweep
	ForcedEscalations uint64
	// ContentionSkips is the number of items skipped because another worker held the lock
	ContentionSkips uint64
	// ProcessingErrors is the number of errors encountered while working items
	ProcessingErrors uint64
}

// NewMetricsContainer creates a new metrics container
func NewMetricsContainer() *MetricsContainer {
	return &MetricsContainer{}
}

// IncreaseProcessedItemCount increases the processed item count
func (m *MetricsContainer) IncreaseProcessedItemCount() uint64 {
	return atomic.AddUint64(&m.ProcessedItems, 1)
}

// IncreaseForcedEscalationCount increases the forced escalation count
func (m *MetricsContainer) IncreaseForcedEscalationCount() uint64 {
	return atomic.AddUint64(&m.ForcedEscalations, 1)
}

// IncreaseContentionSkipCount increases the contention skip count
func (m *MetricsContainer) IncreaseContentionSkipCount() uint64 {
	return atomic.AddUint64(&m.ContentionSkips, 1)
}

// IncreaseProcessingErrorCount increases the processing error count
func (m *MetricsContainer) IncreaseProcessingErrorCount() uint64 {
	return atomic.AddUint64(&m.ProcessingErrors, 1)
}
