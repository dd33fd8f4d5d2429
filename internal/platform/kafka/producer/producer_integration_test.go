//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"pixpax/internal/platform/kafka/producer"
	"pixpax/pkg/testutil/containers"
)

func keyIs(key string) func(*kgo.Record) bool {
	return func(r *kgo.Record) bool { return string(r.Key) == key }
}

func TestProducerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	kafka := containers.Kafka(t)
	ctx := context.Background()

	prod, err := producer.New(producer.Config{
		Brokers:         kafka.Brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = prod.Close() })

	t.Run("ping reaches the cluster", func(t *testing.T) {
		assert.NoError(t, prod.Ping(ctx))
	})

	t.Run("key and headers survive the round trip", func(t *testing.T) {
		topic := "pixpax-produce-headers"
		require.NoError(t, kafka.CreateTopic(ctx, topic))
		require.NoError(t, prod.Produce(ctx, &producer.Message{
			Topic:   topic,
			Key:     []byte("code-1"),
			Value:   []byte(`{"codeId":"code-1"}`),
			Headers: map[string]string{"event_type": "code.minted", "event_id": "ev-1"},
		}))

		rec, err := kafka.Await(ctx, topic, 5*time.Second, keyIs("code-1"))
		require.NoError(t, err)
		got := map[string]string{}
		for _, h := range rec.Headers {
			got[h.Key] = string(h.Value)
		}
		assert.Equal(t, map[string]string{"event_type": "code.minted", "event_id": "ev-1"}, got)
		assert.JSONEq(t, `{"codeId":"code-1"}`, string(rec.Value))
	})

	t.Run("batch reports one result per message", func(t *testing.T) {
		topic := "pixpax-produce-batch"
		require.NoError(t, kafka.CreateTopic(ctx, topic))
		errs := prod.ProduceAll(ctx, []*producer.Message{
			{Topic: topic, Key: []byte("p-1"), Value: []byte(`{}`)},
			{Topic: topic, Key: []byte("p-2"), Value: []byte(`{}`)},
		})
		assert.Equal(t, []error{nil, nil}, errs)
		_, err := kafka.Await(ctx, topic, 5*time.Second, keyIs("p-2"))
		assert.NoError(t, err)
	})

	t.Run("closed producer refuses work", func(t *testing.T) {
		p, err := producer.New(producer.Config{Brokers: kafka.Brokers}, nil)
		require.NoError(t, err)
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
		assert.ErrorIs(t, p.Produce(ctx, &producer.Message{Topic: "x"}), producer.ErrClosed)
		assert.ErrorIs(t, p.Ping(ctx), producer.ErrClosed)
	})
}
