package inventory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_StampsIdentity(t *testing.T) {
	a := NewEvent("p-1", 3)
	b := NewEvent("p-1", 3)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.EmittedAt.IsZero())
}

func TestEvent_WireBody(t *testing.T) {
	body, err := json.Marshal(NewEvent("p-1", -2).Message())
	require.NoError(t, err)
	assert.JSONEq(t, `{"productId":"p-1","quantity":-2}`, string(body))
}

func TestParseMessage(t *testing.T) {
	m, err := ParseMessage([]byte(`{"productId":"p-1","quantity":4}`))
	require.NoError(t, err)
	assert.Equal(t, Message{ProductID: "p-1", Quantity: 4}, m)

	_, err = ParseMessage([]byte(`[]`))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = ParseMessage([]byte(`{"quantity":4}`))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}
