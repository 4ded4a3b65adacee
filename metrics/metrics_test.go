package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTurnCompletedCounters(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.TurnCompleted(false, true)
	m.TurnCompleted(true, false)
	m.TurnCompleted(false, false)
	m.TranscriptionDiscarded()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.TurnsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DegradedReplies))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsSynthesized))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TurnsWithoutAudio))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranscriptionsDiscarded))
}
