package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/events"
)

func TestEvent_JSONShape(t *testing.T) {
	e := events.Event{
		Type:          events.TransactionUpdated,
		UserID:        "user-1",
		TransactionID: "tx-1",
		Year:          "2024",
		Month:         "03",
		Moved:         true,
		Version:       7,
		Timestamp:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	body, err := e.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "transaction.updated",
		"userId": "user-1",
		"transactionId": "tx-1",
		"year": "2024",
		"month": "03",
		"moved": true,
		"version": 7,
		"timestamp": "2024-03-01T12:00:00Z"
	}`, string(body))

	decoded, err := events.FromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, e, decoded)
}

func TestEvent_OmitsEmptyFields(t *testing.T) {
	body, err := events.Event{Type: events.LedgerProvisioned, UserID: "u", Version: 1}.ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(body), "transactionId")
	assert.NotContains(t, string(body), "moved")
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := events.FromJSON([]byte("not json"))
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := &events.Recorder{}
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, events.Event{Type: events.TransactionCreated}))
	r.Err = errors.New("broker down")
	assert.Error(t, r.Publish(ctx, events.Event{Type: events.TransactionDeleted}))

	got := r.Events()
	require.Len(t, got, 2)
	assert.Equal(t, events.TransactionCreated, got[0].Type)
	assert.Equal(t, events.TransactionDeleted, got[1].Type)
}

func TestNop(t *testing.T) {
	assert.NoError(t, events.Nop{}.Publish(context.Background(), events.Event{}))
}
