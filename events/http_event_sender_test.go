package events

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxflag/go-sdk/internal/flaglog"
)

func TestHTTPEventSenderSuccessReportsServerTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, currentEventSchema, r.Header.Get(eventSchemaHeader))
		assert.NotEmpty(t, r.Header.Get(payloadIDHeader))
		w.Header().Set("Date", "Tue, 15 Nov 1994 08:12:31 GMT")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPEventSender(server.Client(), server.URL, server.URL, nil, flaglog.NewDisabledLoggers())
	result := sender.SendEventData(AnalyticsEventDataKind, []byte(`[]`), 0)

	require.True(t, result.Success)
	assert.False(t, result.MustShutDown)
	assert.NotZero(t, result.TimeFromServer)
}

func TestHTTPEventSenderUnauthorizedShutsDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	sender := NewHTTPEventSender(server.Client(), server.URL, server.URL, nil, flaglog.NewDisabledLoggers())
	result := sender.SendEventData(AnalyticsEventDataKind, []byte(`[]`), 0)

	assert.False(t, result.Success)
	assert.True(t, result.MustShutDown)
}

func TestHTTPEventSenderRetriesOnceOnRecoverableError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPEventSender(server.Client(), server.URL, server.URL, nil, flaglog.NewDisabledLoggers())
	result := sender.SendEventData(AnalyticsEventDataKind, []byte(`[]`), 0)

	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.True(t, result.Success)
}

func TestHTTPEventSenderGivesUpAfterTwoRecoverableFailures(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sender := NewHTTPEventSender(server.Client(), server.URL, server.URL, nil, flaglog.NewDisabledLoggers())
	result := sender.SendEventData(AnalyticsEventDataKind, []byte(`[]`), 0)

	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.False(t, result.Success)
	assert.False(t, result.MustShutDown)
}

func TestHTTPEventSenderUsesDiagnosticURIForDiagnosticKind(t *testing.T) {
	var sawDiagnostic, sawAnalytics bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/diagnostic":
			sawDiagnostic = true
		case "/bulk":
			sawAnalytics = true
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPEventSender(server.Client(), server.URL+"/bulk", server.URL+"/diagnostic", nil, flaglog.NewDisabledLoggers())
	sender.SendEventData(DiagnosticEventDataKind, []byte(`{}`), 1)
	sender.SendEventData(AnalyticsEventDataKind, []byte(`[]`), 1)

	assert.True(t, sawDiagnostic)
	assert.True(t, sawAnalytics)
}

func TestHTTPEventSenderCustomHeadersAreSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "my-sdk-key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	headers := http.Header{}
	headers.Set("Authorization", "my-sdk-key")
	sender := NewHTTPEventSender(server.Client(), server.URL, server.URL, headers, flaglog.NewDisabledLoggers())
	result := sender.SendEventData(AnalyticsEventDataKind, []byte(`[]`), 0)

	assert.True(t, result.Success)
}
