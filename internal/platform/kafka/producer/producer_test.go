package producer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigOptions(t *testing.T) {
	_, err := Config{Brokers: " , "}.options()
	assert.Error(t, err)

	_, err = Config{Brokers: "localhost:9092", Acks: "most"}.options()
	assert.Error(t, err)

	for _, acks := range []string{"", "all", "-1", "0", "1"} {
		opts, err := Config{Brokers: "a:9092,b:9092", Acks: acks}.options()
		require.NoError(t, err, acks)
		assert.NotEmpty(t, opts)
	}
}

func TestMessageRecord(t *testing.T) {
	r := (&Message{
		Topic:   "pixpax.events",
		Key:     []byte("pack-1"),
		Value:   []byte(`{}`),
		Headers: map[string]string{"event_type": "pack.issued"},
	}).record()

	assert.Equal(t, "pixpax.events", r.Topic)
	assert.Equal(t, "pack-1", string(r.Key))
	require.Len(t, r.Headers, 1)
	assert.Equal(t, "event_type", r.Headers[0].Key)
	assert.Equal(t, "pack.issued", string(r.Headers[0].Value))
}
