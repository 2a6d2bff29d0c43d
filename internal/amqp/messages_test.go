package amqp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerEventMessageRoundTrip(t *testing.T) {
	msg := NewLedgerEventMessage(OpUpdated, 42, []int64{1, 3})
	assert.NotEmpty(t, msg.EventID)
	assert.False(t, msg.Timestamp.IsZero())

	body, err := msg.ToJSON()
	require.NoError(t, err)

	got, err := LedgerEventMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, msg.EventID, got.EventID)
	assert.Equal(t, OpUpdated, got.Op)
	assert.Equal(t, int64(42), got.TransactionID)
	assert.Equal(t, []int64{1, 3}, got.AccountIDs)
}

func TestLedgerEventMessageFromJSONInvalid(t *testing.T) {
	_, err := LedgerEventMessageFromJSON([]byte("not json"))
	assert.Error(t, err)
}
