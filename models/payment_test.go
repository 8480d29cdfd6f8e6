package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataMerge(t *testing.T) {
	stored := Metadata{
		"stripe_intent_id": "pi_123",
		"stripe_status":    "processing",
	}

	merged := stored.Merge(Metadata{
		"stripe_status":   "succeeded",
		"stripe_event_id": "evt_1",
	})

	assert.Equal(t, "pi_123", merged["stripe_intent_id"], "previously stored fields must survive")
	assert.Equal(t, "succeeded", merged["stripe_status"], "new keys win")
	assert.Equal(t, "evt_1", merged["stripe_event_id"])

	assert.Equal(t, "processing", stored["stripe_status"], "merge must not mutate the receiver")
	assert.Len(t, stored, 2)
}

func TestMetadataMergeIdempotent(t *testing.T) {
	event := Metadata{
		"square_event_id": "ev_9",
		"square_status":   "COMPLETED",
	}

	once := Metadata{}.Merge(event)
	twice := once.Merge(event)

	assert.Equal(t, once, twice, "applying the same event twice must not change the blob")
}

func TestMetadataMergeNilReceiver(t *testing.T) {
	var stored Metadata

	merged := stored.Merge(Metadata{"error": "card declined"})

	require.NotNil(t, merged)
	assert.Equal(t, "card declined", merged["error"])
}

func TestParseMetadata(t *testing.T) {
	m := ParseMetadata(`{"receipt_url":"https://sq.example/r/1"}`)
	assert.Equal(t, "https://sq.example/r/1", m["receipt_url"])

	assert.Empty(t, ParseMetadata(""))
	assert.Empty(t, ParseMetadata("{corrupt"))
}

func TestMetadataSerializeRoundTrip(t *testing.T) {
	m := Metadata{
		"square_payment_id": "sqp_1",
		"receipt_url":       "https://sq.example/r/1",
	}

	assert.Equal(t, m, ParseMetadata(m.Serialize()))
	assert.Equal(t, "{}", Metadata{}.Serialize())
}
