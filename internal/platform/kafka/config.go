package kafka

import (
	"strings"
	"time"

	"pixpax/internal/platform/kafka/producer"
)

const DefaultEventsTopic = "pixpax.events"

// Config selects the brokers and topic used for domain events.
type Config struct {
	Brokers string
	Topic   string
}

// Enabled reports whether any broker is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Brokers) != ""
}

// ProducerConfig returns acks=all producer settings for c.
func (c Config) ProducerConfig() producer.Config {
	return producer.Config{
		Brokers:         c.Brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 30 * time.Second,
	}
}
