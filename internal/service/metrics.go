package service

import (
	"sync/atomic"
	"time"
)

// Metrics tracks orchestration outcomes with atomic counters, cheap enough
// to record on every run.
type Metrics struct {
	runs             atomic.Int64
	questsGenerated  atomic.Int64
	outcomesGenerated atomic.Int64
	validationFailed atomic.Int64
	noNeed           atomic.Int64
	errors           atomic.Int64
	totalLatencyNs   atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Record(outcome Outcome, elapsed time.Duration) {
	m.runs.Add(1)
	m.totalLatencyNs.Add(int64(elapsed))
	switch outcome {
	case OutcomeQuestGenerated:
		m.questsGenerated.Add(1)
	case OutcomeOutcomeGenerated:
		m.outcomesGenerated.Add(1)
	case OutcomeValidationFailed:
		m.validationFailed.Add(1)
	case OutcomeNone:
		m.noNeed.Add(1)
	case OutcomeError:
		m.errors.Add(1)
	}
}

// MetricsSnapshot is a point-in-time copy for reporting.
type MetricsSnapshot struct {
	Runs              int64         `json:"runs"`
	QuestsGenerated   int64         `json:"quests_generated"`
	OutcomesGenerated int64         `json:"outcomes_generated"`
	ValidationFailed  int64         `json:"validation_failed"`
	NoNeed            int64         `json:"no_need"`
	Errors            int64         `json:"errors"`
	AvgLatency        time.Duration `json:"avg_latency_ns"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Runs:              m.runs.Load(),
		QuestsGenerated:   m.questsGenerated.Load(),
		OutcomesGenerated: m.outcomesGenerated.Load(),
		ValidationFailed:  m.validationFailed.Load(),
		NoNeed:            m.noNeed.Load(),
		Errors:            m.errors.Load(),
	}
	if snap.Runs > 0 {
		snap.AvgLatency = time.Duration(m.totalLatencyNs.Load() / snap.Runs)
	}
	return snap
}
