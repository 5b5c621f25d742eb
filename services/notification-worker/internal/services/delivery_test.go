package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleEvent() views.BankEvent {
	return views.BankEvent{
		ID:         uuid.New(),
		Type:       pkg.EventTransferCreated,
		UserID:     uuid.New(),
		EntityID:   uuid.New(),
		Title:      "Transfer submitted",
		Message:    "Your transfer of 200.00 USD was submitted.",
		Attributes: map[string]string{"amount": "200.00"},
		TraceID:    "trace-1",
		OccurredAt: time.Now().UTC(),
	}
}

func TestFunctionDeliverer_PostsEvent(t *testing.T) {
	ev := sampleEvent()
	var got EmailRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewFunctionDeliverer(zap.NewNop(), srv.URL, time.Second, time.Second)
	require.NoError(t, d.Deliver(context.Background(), ev))

	assert.Equal(t, ev.ID, got.EventID)
	assert.Equal(t, ev.UserID, got.UserID)
	assert.Equal(t, ev.Title, got.Subject)
	assert.Equal(t, ev.Message, got.Body)
	assert.Equal(t, "200.00", got.Attributes["amount"])
	assert.Equal(t, "trace-1", headers.Get(pkg.HeaderTraceId))
	assert.Equal(t, ev.ID.String(), headers.Get(pkg.HeaderIdempotencyKey))
}

func TestFunctionDeliverer_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewFunctionDeliverer(zap.NewNop(), srv.URL, time.Second, 10*time.Second)
	require.NoError(t, d.Deliver(context.Background(), sampleEvent()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFunctionDeliverer_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewFunctionDeliverer(zap.NewNop(), srv.URL, time.Second, 10*time.Second)
	assert.Error(t, d.Deliver(context.Background(), sampleEvent()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFunctionDeliverer_NoURLIsNoop(t *testing.T) {
	d := NewFunctionDeliverer(zap.NewNop(), "", time.Second, time.Second)
	assert.NoError(t, d.Deliver(context.Background(), sampleEvent()))
}
