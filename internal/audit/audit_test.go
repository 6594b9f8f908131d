package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingProducer struct {
	key   []byte
	value []byte
	err   error
}

func (c *capturingProducer) Produce(_ context.Context, key, value []byte) error {
	c.key = key
	c.value = value
	return c.err
}

func TestKafkaPublisher_Emit(t *testing.T) {
	prod := &capturingProducer{}
	pub, err := NewKafkaPublisher(prod)
	require.NoError(t, err)

	event := Event{
		Action:     ActionRegistered,
		Identifier: "IR-WR-BCT-021-114320-BOLT-2024-001234",
		Partition:  "WR:BCT:BOLT:2024",
		Serial:     1234,
		OccurredAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.Emit(context.Background(), event))

	assert.Equal(t, []byte("WR:BCT:BOLT:2024"), prod.key, "records are keyed by partition")

	var decoded Event
	require.NoError(t, json.Unmarshal(prod.value, &decoded))
	assert.Equal(t, event, decoded)
}

func TestNewKafkaPublisher_RequiresProducer(t *testing.T) {
	_, err := NewKafkaPublisher(nil)
	require.Error(t, err)
}

func TestEmit_BestEffort(t *testing.T) {
	prod := &capturingProducer{err: errors.New("broker down")}
	pub, err := NewKafkaPublisher(prod)
	require.NoError(t, err)

	// Must not panic or propagate the failure.
	Emit(context.Background(), slog.Default(), pub, Event{Action: ActionStatusChanged})
}

func TestEmit_StampsOccurredAt(t *testing.T) {
	prod := &capturingProducer{}
	pub, err := NewKafkaPublisher(prod)
	require.NoError(t, err)

	Emit(context.Background(), nil, pub, Event{Action: ActionSerialReserve})

	var decoded Event
	require.NoError(t, json.Unmarshal(prod.value, &decoded))
	assert.False(t, decoded.OccurredAt.IsZero())
}

func TestLogPublisher_Emit(t *testing.T) {
	pub := NewLogPublisher(nil)
	require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionQualityScored}))
}
