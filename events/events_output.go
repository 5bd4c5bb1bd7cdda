package events

import (
	"github.com/fluxflag/go-sdk/eval"
	"github.com/fluxflag/go-sdk/internal/flaglog"
)

// eventsOutbox is the Dispatcher-owned buffer of full events pending the next flush, together with
// the running summary and the dropped-event counter.
type eventsOutbox struct {
	capacity      int
	events        []Event
	summary       eventSummary
	droppedEvents int
	warnedFull    bool
	loggers       flaglog.Loggers
}

func newEventsOutbox(capacity int, loggers flaglog.Loggers) *eventsOutbox {
	return &eventsOutbox{
		capacity: capacity,
		summary:  newEventSummary(),
		loggers:  loggers,
	}
}

func (o *eventsOutbox) addToSummary(evt Event) {
	o.summary.summarizeEvent(evt)
}

// addEvent appends evt to the buffer, dropping it (and counting the drop) if the buffer is already
// at capacity. Only a single warning is logged per overflow episode, until the buffer next drops
// below capacity.
func (o *eventsOutbox) addEvent(evt Event) {
	if o.capacity > 0 && len(o.events) >= o.capacity {
		o.droppedEvents++
		if !o.warnedFull {
			o.warnedFull = true
			o.loggers.Warn("Exceeded event queue capacity. Increase capacity to avoid dropping events.")
		}
		return
	}
	o.events = append(o.events, evt)
}

// getPayload snapshots the buffer into a flushPayload. The caller is expected to call clear
// immediately afterward if the snapshot was successfully handed off to a flush worker.
func (o *eventsOutbox) getPayload() flushPayload {
	return flushPayload{events: o.events, summary: o.summary}
}

// clear resets the buffer to fresh empty containers, an ownership-transfer move: the old event
// slice and summary now belong exclusively to whatever is holding the flushPayload returned by
// getPayload.
func (o *eventsOutbox) clear() {
	o.events = nil
	o.summary = newEventSummary()
	o.warnedFull = false
}

// eventOutputFormatter transforms internal events and summaries into the on-wire JSON shape,
// applying user redaction via userFilter.
type eventOutputFormatter struct {
	userFilter userFilter
	config     EventsConfiguration
}

// makeOutputEvents formats events and, if non-empty, an appended summary event: a JSON array whose
// last element is the summary.
func (f eventOutputFormatter) makeOutputEvents(events []Event, summary eventSummary) []interface{} {
	out := make([]interface{}, 0, len(events)+1)
	for _, evt := range events {
		if formatted := f.formatEvent(evt); formatted != nil {
			out = append(out, formatted)
		}
	}
	if !summary.isEmpty() {
		out = append(out, f.formatSummary(summary))
	}
	return out
}

func (f eventOutputFormatter) formatEvent(evt Event) interface{} {
	switch e := evt.(type) {
	case EvalEvent:
		if e.Debug {
			return f.formatEvalEvent(e, "debug")
		}
		return f.formatEvalEvent(e, "feature")
	case IdentifyEvent:
		return f.formatIdentifyEvent(e)
	case CustomEvent:
		return f.formatCustomEvent(e)
	case AliasEvent:
		return f.formatAliasEvent(e)
	case IndexEvent:
		return f.formatIndexEvent(e)
	default:
		return nil
	}
}

type outputUserRef struct {
	User    *filteredUser `json:"user,omitempty"`
	UserKey *string       `json:"userKey,omitempty"`
}

func (f eventOutputFormatter) userRef(user eval.User) outputUserRef {
	if f.config.InlineUsersInEvents {
		scrubbed := f.userFilter.scrubUser(user)
		return outputUserRef{User: &scrubbed}
	}
	key := user.Key
	return outputUserRef{UserKey: &key}
}

func contextKindFor(user eval.User) *string {
	if !user.Anonymous {
		return nil
	}
	kind := user.ContextKind()
	return &kind
}

type outputEvalEvent struct {
	Kind                 string                  `json:"kind"`
	CreationDate         uint64                  `json:"creationDate"`
	Key                  string                  `json:"key"`
	Value                interface{}             `json:"value"`
	Default              interface{}             `json:"default,omitempty"`
	Variation            *int                    `json:"variation,omitempty"`
	Version              *int                    `json:"version,omitempty"`
	PrereqOf             *string                 `json:"prereqOf,omitempty"`
	ContextKind          *string                 `json:"contextKind,omitempty"`
	User                 *filteredUser           `json:"user,omitempty"`
	UserKey              *string                 `json:"userKey,omitempty"`
	Reason               *eval.EvaluationReason  `json:"reason,omitempty"`
}

func (f eventOutputFormatter) formatEvalEvent(e EvalEvent, kind string) outputEvalEvent {
	ref := f.userRef(e.User)
	out := outputEvalEvent{
		Kind:         kind,
		CreationDate: e.CreationDate,
		Key:          e.Key,
		Value:        e.Value,
		Default:      e.Default,
		Variation:    e.Variation,
		Version:      e.Version,
		PrereqOf:     e.PrereqOf,
		ContextKind:  contextKindFor(e.User),
		User:         ref.User,
		UserKey:      ref.UserKey,
	}
	if e.Reason.Kind != "" {
		reason := e.Reason
		out.Reason = &reason
	}
	return out
}

type outputIdentifyEvent struct {
	Kind         string        `json:"kind"`
	CreationDate uint64        `json:"creationDate"`
	Key          string        `json:"key"`
	User         *filteredUser `json:"user"`
}

func (f eventOutputFormatter) formatIdentifyEvent(e IdentifyEvent) outputIdentifyEvent {
	scrubbed := f.userFilter.scrubUser(e.User)
	return outputIdentifyEvent{
		Kind:         "identify",
		CreationDate: e.CreationDate,
		Key:          e.User.Key,
		User:         &scrubbed,
	}
}

type outputCustomEvent struct {
	Kind         string        `json:"kind"`
	CreationDate uint64        `json:"creationDate"`
	Key          string        `json:"key"`
	Data         interface{}   `json:"data,omitempty"`
	User         *filteredUser `json:"user,omitempty"`
	UserKey      *string       `json:"userKey,omitempty"`
	MetricValue  *float64      `json:"metricValue,omitempty"`
	ContextKind  *string       `json:"contextKind,omitempty"`
}

func (f eventOutputFormatter) formatCustomEvent(e CustomEvent) outputCustomEvent {
	ref := f.userRef(e.User)
	out := outputCustomEvent{
		Kind:         "custom",
		CreationDate: e.CreationDate,
		Key:          e.Key,
		Data:         e.Data,
		User:         ref.User,
		UserKey:      ref.UserKey,
		ContextKind:  contextKindFor(e.User),
	}
	if e.HasMetric {
		mv := e.MetricValue
		out.MetricValue = &mv
	}
	return out
}

type outputAliasEvent struct {
	Kind                 string `json:"kind"`
	CreationDate         uint64 `json:"creationDate"`
	Key                  string `json:"key"`
	ContextKind          string `json:"contextKind"`
	PreviousKey          string `json:"previousKey"`
	PreviousContextKind  string `json:"previousContextKind"`
}

func (f eventOutputFormatter) formatAliasEvent(e AliasEvent) outputAliasEvent {
	return outputAliasEvent{
		Kind:                "alias",
		CreationDate:        e.CreationDate,
		Key:                 e.CurrentKey,
		ContextKind:         e.CurrentKind,
		PreviousKey:         e.PreviousKey,
		PreviousContextKind: e.PreviousKind,
	}
}

type outputIndexEvent struct {
	Kind         string        `json:"kind"`
	CreationDate uint64        `json:"creationDate"`
	User         *filteredUser `json:"user"`
}

func (f eventOutputFormatter) formatIndexEvent(e IndexEvent) outputIndexEvent {
	scrubbed := f.userFilter.scrubUser(e.User)
	return outputIndexEvent{Kind: "index", CreationDate: e.CreationDate, User: &scrubbed}
}

type outputSummaryCounter struct {
	Value     interface{} `json:"value"`
	Count     int         `json:"count"`
	Variation *int        `json:"variation,omitempty"`
	Version   *int        `json:"version,omitempty"`
	Unknown   bool        `json:"unknown,omitempty"`
}

type outputFlagSummary struct {
	Default  interface{}            `json:"default,omitempty"`
	Counters []outputSummaryCounter `json:"counters"`
}

type outputSummaryEvent struct {
	Kind      string                        `json:"kind"`
	StartDate uint64                        `json:"startDate"`
	EndDate   uint64                        `json:"endDate"`
	Features  map[string]outputFlagSummary `json:"features"`
}

func (f eventOutputFormatter) formatSummary(summary eventSummary) outputSummaryEvent {
	features := make(map[string]outputFlagSummary)
	for _, key := range summary.counterOrder {
		counter := summary.counters[key]
		flagSummary := features[key.flagKey]
		if flagSummary.Counters == nil {
			flagSummary.Default = summary.defaults[key.flagKey]
		}
		oc := outputSummaryCounter{Value: counter.value, Count: counter.count}
		if key.version == unsetCounterField {
			oc.Unknown = true
		} else {
			v := key.version
			oc.Version = &v
		}
		if key.variation == unsetCounterField {
			oc.Unknown = true
		} else {
			v := key.variation
			oc.Variation = &v
		}
		flagSummary.Counters = append(flagSummary.Counters, oc)
		features[key.flagKey] = flagSummary
	}
	return outputSummaryEvent{
		Kind:      "summary",
		StartDate: summary.startDate,
		EndDate:   summary.endDate,
		Features:  features,
	}
}
