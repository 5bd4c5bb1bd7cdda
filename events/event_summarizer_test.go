package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxflag/go-sdk/eval"
)

func intPtr(n int) *int { return &n }

func evalEvt(key string, creationDate uint64, version, variation *int, value, defaultVal interface{}) EvalEvent {
	return EvalEvent{
		BaseEvent: BaseEvent{CreationDate: creationDate, User: eval.NewUser("user1")},
		Key:       key,
		Version:   version,
		Variation: variation,
		Value:     value,
		Default:   defaultVal,
	}
}

func TestEventSummaryStartsEmpty(t *testing.T) {
	s := newEventSummary()
	assert.True(t, s.isEmpty())
}

func TestEventSummaryIgnoresNonEvalEvents(t *testing.T) {
	s := newEventSummary()
	s.summarizeEvent(NewIdentifyEvent(eval.NewUser("user1")))
	assert.True(t, s.isEmpty())
}

func TestEventSummaryCountsByFlagVersionVariation(t *testing.T) {
	s := newEventSummary()
	s.summarizeEvent(evalEvt("flag1", 100, intPtr(1), intPtr(0), true, false))
	s.summarizeEvent(evalEvt("flag1", 200, intPtr(1), intPtr(0), true, false))
	s.summarizeEvent(evalEvt("flag1", 150, intPtr(1), intPtr(1), false, false))

	require.False(t, s.isEmpty())
	key0 := counterKey{flagKey: "flag1", version: 1, variation: 0}
	key1 := counterKey{flagKey: "flag1", version: 1, variation: 1}
	assert.Equal(t, 2, s.counters[key0].count)
	assert.Equal(t, 1, s.counters[key1].count)
	assert.Equal(t, []counterKey{key0, key1}, s.counterOrder)
}

func TestEventSummaryTracksStartAndEndDate(t *testing.T) {
	s := newEventSummary()
	s.summarizeEvent(evalEvt("flag1", 100, intPtr(1), intPtr(0), true, false))
	s.summarizeEvent(evalEvt("flag1", 50, intPtr(1), intPtr(0), true, false))
	s.summarizeEvent(evalEvt("flag1", 300, intPtr(1), intPtr(0), true, false))

	assert.Equal(t, uint64(50), s.startDate)
	assert.Equal(t, uint64(300), s.endDate)
}

func TestEventSummaryHandlesZeroCreationDate(t *testing.T) {
	s := newEventSummary()
	s.summarizeEvent(evalEvt("flag1", 0, intPtr(1), intPtr(0), true, false))
	s.summarizeEvent(evalEvt("flag1", 10, intPtr(1), intPtr(0), true, false))

	assert.Equal(t, uint64(0), s.startDate)
	assert.Equal(t, uint64(10), s.endDate)
}

func TestEventSummaryRecordsFirstSeenDefault(t *testing.T) {
	s := newEventSummary()
	s.summarizeEvent(evalEvt("flag1", 100, intPtr(1), intPtr(0), true, "first-default"))
	s.summarizeEvent(evalEvt("flag1", 200, intPtr(1), intPtr(0), true, "second-default"))

	assert.Equal(t, "first-default", s.defaults["flag1"])
}

func TestEventSummaryUnsetVersionOrVariationUsesUnsetMarker(t *testing.T) {
	s := newEventSummary()
	s.summarizeEvent(evalEvt("flag1", 100, nil, nil, true, false))

	key := counterKey{flagKey: "flag1", version: unsetCounterField, variation: unsetCounterField}
	require.Contains(t, s.counters, key)
	assert.Equal(t, 1, s.counters[key].count)
}
