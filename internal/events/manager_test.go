package events

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	userIDs  []string
	payloads [][]byte
}

func (s *captureSink) Send(userID string, data []byte) {
	s.userIDs = append(s.userIDs, userID)
	s.payloads = append(s.payloads, data)
}

func TestEmitForwardsToSink(t *testing.T) {
	sink := &captureSink{}
	m := NewManager(sink, zerolog.Nop())

	m.Emit("user-1", PriceUpdated, map[string]interface{}{"symbol": "VNM", "price": 65400.0})

	require.Len(t, sink.payloads, 1)
	assert.Equal(t, []string{"user-1"}, sink.userIDs)

	var event Event
	require.NoError(t, json.Unmarshal(sink.payloads[0], &event))
	assert.Equal(t, PriceUpdated, event.Type)
	assert.Equal(t, "user-1", event.UserID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEmitWithoutSink(t *testing.T) {
	m := NewManager(nil, zerolog.Nop())
	assert.NotPanics(t, func() {
		m.Emit("user-1", InvestmentCreated, nil)
	})
}
