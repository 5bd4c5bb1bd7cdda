package events

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fluxflag/go-sdk/internal/flaglog"
)

// httpEventSender is the default EventSender implementation, delivering already-formatted event
// payloads to the events service over HTTP.
type httpEventSender struct {
	client        *http.Client
	eventsURI     string
	diagnosticURI string
	headers       http.Header
	loggers       flaglog.Loggers
}

// NewHTTPEventSender creates an EventSender that posts event data to the events service at
// eventsURI (for AnalyticsEventDataKind) or diagnosticURI (for DiagnosticEventDataKind) using
// client. headers are added to every outgoing request, in addition to the standard
// Content-Type/event-schema/payload-ID headers.
func NewHTTPEventSender(
	client *http.Client,
	eventsURI string,
	diagnosticURI string,
	headers http.Header,
	loggers flaglog.Loggers,
) EventSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpEventSender{
		client:        client,
		eventsURI:     eventsURI,
		diagnosticURI: diagnosticURI,
		headers:       headers,
		loggers:       loggers,
	}
}

func (s *httpEventSender) SendEventData(kind EventDataKind, data []byte, eventCount int) EventSenderResult {
	uri := s.eventsURI
	if kind == DiagnosticEventDataKind {
		uri = s.diagnosticURI
	}

	payloadUUID, _ := uuid.NewRandom()
	payloadID := payloadUUID.String() // if NewRandom somehow failed, we'll just proceed with an empty string

	var resp *http.Response
	var respErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			s.loggers.Warn("Will retry posting events after 1 second")
			time.Sleep(1 * time.Second)
		}
		req, reqErr := http.NewRequest("POST", uri, bytes.NewReader(data))
		if reqErr != nil {
			s.loggers.Errorf("Unexpected error while creating event request: %+v", reqErr)
			return EventSenderResult{}
		}

		for k, vv := range s.headers {
			for _, v := range vv {
				req.Header.Add(k, v)
			}
		}
		req.Header.Add("Content-Type", "application/json")
		req.Header.Add(eventSchemaHeader, currentEventSchema)
		req.Header.Add(payloadIDHeader, payloadID)

		resp, respErr = s.client.Do(req)

		if resp != nil && resp.Body != nil {
			_, _ = ioutil.ReadAll(resp.Body)
			_ = resp.Body.Close()
		}

		if respErr != nil {
			s.loggers.Warnf("Unexpected error while sending events: %+v", respErr)
			continue
		} else if resp.StatusCode >= 400 && isHTTPErrorRecoverable(resp.StatusCode) {
			s.loggers.Warnf("Received error status %d when sending events", resp.StatusCode)
			continue
		} else {
			break
		}
	}

	if resp == nil {
		return EventSenderResult{}
	}

	if err := checkForHttpError(resp.StatusCode, uri); err != nil {
		s.loggers.Error(httpErrorMessage(resp.StatusCode, "posting events", "some events were dropped"))
		return EventSenderResult{MustShutDown: !isHTTPErrorRecoverable(resp.StatusCode)}
	}

	result := EventSenderResult{Success: true}
	if dt, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
		result.TimeFromServer = toUnixMillis(dt)
	}
	return result
}
