package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxflag/go-sdk/eval"
)

func testFormatter(config EventsConfiguration) eventOutputFormatter {
	return eventOutputFormatter{userFilter: newUserFilter(config), config: config}
}

func TestMakeOutputEventsFormatsFeatureEventWithKeyedUser(t *testing.T) {
	f := testFormatter(EventsConfiguration{})
	version := 3
	variation := 1
	evt := EvalEvent{
		BaseEvent: BaseEvent{CreationDate: 1000, User: eval.NewUser("user1")},
		Key:       "flag1",
		Value:     "b",
		Default:   "a",
		Version:   &version,
		Variation: &variation,
		Reason:    eval.NewFallthroughReason(),
	}

	out := f.makeOutputEvents([]Event{evt}, newEventSummary())
	require.Len(t, out, 1)
	feature, ok := out[0].(outputEvalEvent)
	require.True(t, ok)
	assert.Equal(t, "feature", feature.Kind)
	assert.Equal(t, "flag1", feature.Key)
	require.NotNil(t, feature.UserKey)
	assert.Equal(t, "user1", *feature.UserKey)
	assert.Nil(t, feature.User)
}

func TestMakeOutputEventsInlinesUserWhenConfigured(t *testing.T) {
	f := testFormatter(EventsConfiguration{InlineUsersInEvents: true})
	evt := EvalEvent{
		BaseEvent: BaseEvent{CreationDate: 1000, User: eval.NewUser("user1")},
		Key:       "flag1",
		Value:     true,
	}

	out := f.makeOutputEvents([]Event{evt}, newEventSummary())
	require.Len(t, out, 1)
	feature := out[0].(outputEvalEvent)
	require.NotNil(t, feature.User)
	assert.Equal(t, "user1", feature.User.Key)
	assert.Nil(t, feature.UserKey)
}

func TestMakeOutputEventsFormatsDebugEventAsDebugKind(t *testing.T) {
	f := testFormatter(EventsConfiguration{})
	evt := EvalEvent{
		BaseEvent: BaseEvent{CreationDate: 1000, User: eval.NewUser("user1")},
		Key:       "flag1",
		Value:     true,
		Debug:     true,
	}

	out := f.makeOutputEvents([]Event{evt}, newEventSummary())
	require.Len(t, out, 1)
	assert.Equal(t, "debug", out[0].(outputEvalEvent).Kind)
}

func TestMakeOutputEventsFormatsIdentifyEvent(t *testing.T) {
	f := testFormatter(EventsConfiguration{})
	evt := NewIdentifyEvent(eval.NewUser("user1"))

	out := f.makeOutputEvents([]Event{evt}, newEventSummary())
	require.Len(t, out, 1)
	identify := out[0].(outputIdentifyEvent)
	assert.Equal(t, "identify", identify.Kind)
	assert.Equal(t, "user1", identify.Key)
	assert.Equal(t, "user1", identify.User.Key)
}

func TestMakeOutputEventsFormatsCustomEventWithMetric(t *testing.T) {
	f := testFormatter(EventsConfiguration{})
	evt := NewCustomEvent(eval.NewUser("user1"), "purchased", map[string]interface{}{"sku": "x"}, true, 42.5)

	out := f.makeOutputEvents([]Event{evt}, newEventSummary())
	require.Len(t, out, 1)
	custom := out[0].(outputCustomEvent)
	assert.Equal(t, "custom", custom.Kind)
	assert.Equal(t, "purchased", custom.Key)
	require.NotNil(t, custom.MetricValue)
	assert.Equal(t, 42.5, *custom.MetricValue)
}

func TestMakeOutputEventsOmitsMetricValueWhenNoMetric(t *testing.T) {
	f := testFormatter(EventsConfiguration{})
	evt := NewCustomEvent(eval.NewUser("user1"), "purchased", nil, false, 0)

	out := f.makeOutputEvents([]Event{evt}, newEventSummary())
	custom := out[0].(outputCustomEvent)
	assert.Nil(t, custom.MetricValue)
}

func TestMakeOutputEventsFormatsAliasEvent(t *testing.T) {
	f := testFormatter(EventsConfiguration{})
	evt := NewAliasEvent("newKey", "user", "oldKey", "anonymousUser")

	out := f.makeOutputEvents([]Event{evt}, newEventSummary())
	require.Len(t, out, 1)
	alias := out[0].(outputAliasEvent)
	assert.Equal(t, "alias", alias.Kind)
	assert.Equal(t, "newKey", alias.Key)
	assert.Equal(t, "oldKey", alias.PreviousKey)
	assert.Equal(t, "anonymousUser", alias.PreviousContextKind)
}

func TestMakeOutputEventsFormatsIndexEvent(t *testing.T) {
	f := testFormatter(EventsConfiguration{})
	evt := IndexEvent{BaseEvent: BaseEvent{CreationDate: 1000, User: eval.NewUser("user1")}}

	out := f.makeOutputEvents([]Event{evt}, newEventSummary())
	require.Len(t, out, 1)
	index := out[0].(outputIndexEvent)
	assert.Equal(t, "index", index.Kind)
	assert.Equal(t, "user1", index.User.Key)
}

func TestMakeOutputEventsAppendsSummaryLastWithUnknownMarkers(t *testing.T) {
	f := testFormatter(EventsConfiguration{})
	summary := newEventSummary()
	summary.summarizeEvent(EvalEvent{
		BaseEvent: BaseEvent{CreationDate: 100, User: eval.NewUser("user1")},
		Key:       "flag1",
		Value:     true,
		Default:   false,
	})

	out := f.makeOutputEvents(nil, summary)
	require.Len(t, out, 1)
	s := out[0].(outputSummaryEvent)
	assert.Equal(t, "summary", s.Kind)
	require.Contains(t, s.Features, "flag1")
	require.Len(t, s.Features["flag1"].Counters, 1)
	assert.True(t, s.Features["flag1"].Counters[0].Unknown)
}

func TestMakeOutputEventsOmitsSummaryWhenEmpty(t *testing.T) {
	f := testFormatter(EventsConfiguration{})
	out := f.makeOutputEvents(nil, newEventSummary())
	assert.Empty(t, out)
}

func TestContextKindIsOmittedForNonAnonymousUser(t *testing.T) {
	assert.Nil(t, contextKindFor(eval.NewUser("user1")))
}

func TestContextKindReportsAnonymousUser(t *testing.T) {
	user := eval.NewUserBuilder("user1").Anonymous(true).Build()
	kind := contextKindFor(user)
	require.NotNil(t, kind)
	assert.Equal(t, "anonymousUser", *kind)
}
