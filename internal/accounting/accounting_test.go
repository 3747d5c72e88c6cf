package accounting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/contactkeval/oilsim/internal/calendar"
	"github.com/contactkeval/oilsim/internal/contract"
	"github.com/contactkeval/oilsim/internal/eventlog"
)

func openEvt(legID string, day calendar.Day, side contract.Side, premium float64) eventlog.Event {
	return eventlog.Event{
		Timestamp: calendar.Timestamp{Day: day},
		LegID:     legID,
		Kind:      eventlog.PositionOpened,
		Opened:    &eventlog.OpenedPayload{Contract: contract.Contract{Side: side}, Premium: premium},
	}
}

func closeEvt(legID string, day calendar.Day, premium, commission float64) eventlog.Event {
	return eventlog.Event{
		Timestamp: calendar.Timestamp{Day: day},
		LegID:     legID,
		Kind:      eventlog.PositionClosed,
		Closed:    &eventlog.ClosedPayload{Premium: premium, Commission: commission, Reason: "test"},
	}
}

func appendAll(log eventlog.Store, evts ...eventlog.Event) {
	for _, e := range evts {
		log.Append(e)
	}
}

func TestFoldShortWinningTradeCountsAsWin(t *testing.T) {
	log := eventlog.NewMemoryStore()
	appendAll(log,
		openEvt("call1", 0, contract.Short, 5.0),
		closeEvt("call1", 10, 2.0, 0.5),
	)

	s := Fold(log)
	assert.InDelta(t, 5.0-2.0-0.5, s.RealizedPnL, 1e-9)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Opens)
	assert.Equal(t, 1, s.Closes)
}

func TestFoldLongLosingTradeIsNotAWin(t *testing.T) {
	log := eventlog.NewMemoryStore()
	appendAll(log,
		openEvt("put1", 0, contract.Long, 5.0),
		closeEvt("put1", 10, 2.0, 0.0),
	)

	s := Fold(log)
	assert.InDelta(t, 2.0-5.0, s.RealizedPnL, 1e-9)
	assert.Equal(t, 0, s.Wins)
}

func TestFoldCountsRejections(t *testing.T) {
	log := eventlog.NewMemoryStore()
	appendAll(log,
		openEvt("call1", 0, contract.Short, 5.0),
		eventlog.Event{Timestamp: calendar.Timestamp{Day: 3}, LegID: "call1", Kind: eventlog.RollRejected, Rejected: &eventlog.RejectedPayload{Reasons: []string{"cooldown"}}},
		closeEvt("call1", 10, 2.0, 0.0),
	)

	s := Fold(log)
	assert.Equal(t, 1, s.Rejections)
}

func TestAggregateComputesMeanAndPercentiles(t *testing.T) {
	stats := Aggregate([]float64{-10, 0, 10, 20, 30}, []int{50}, 0.95)
	assert.Equal(t, 5, stats.N)
	assert.InDelta(t, 10.0, stats.Mean, 1e-9)
	assert.Contains(t, stats.Percentiles, 50)
}

func TestAggregateEmptyIsZeroValue(t *testing.T) {
	stats := Aggregate(nil, []int{50}, 0.95)
	assert.Equal(t, 0, stats.N)
	assert.Equal(t, 0.0, stats.Mean)
}
