package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"pixpax/internal/pixpax/events"
	"pixpax/internal/platform/kafka/consumer"
)

type tailLine struct {
	Partition int32        `json:"partition"`
	Offset    int64        `json:"offset"`
	Key       string       `json:"key,omitempty"`
	Event     events.Event `json:"event"`
}

func runEventsTail(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("events-tail", out)
	brokers := fs.String("brokers", os.Getenv("KAFKA_BROKERS"), "comma separated kafka brokers")
	topic := fs.String("topic", "pixpax.events", "event topic")
	group := fs.String("group", "", "consumer group; a throwaway group when empty")
	fromStart := fs.Bool("from-start", false, "read from the earliest offset")
	eventType := fs.String("type", "", "only print events of this type")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *brokers == "" {
		return fmt.Errorf("%w: --brokers or KAFKA_BROKERS is required", errUsage)
	}
	if *group == "" {
		*group = "pixpaxctl-" + uuid.NewString()
	}

	enc := json.NewEncoder(out)
	handler := consumer.HandlerFunc(func(_ context.Context, msg *consumer.Message) error {
		var ev events.Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			// not a pixpax event
			fmt.Fprintf(os.Stderr, "skip offset %d: %v\n", msg.Offset, err)
			return nil
		}
		if *eventType != "" && string(ev.Type) != *eventType {
			return nil
		}
		return enc.Encode(tailLine{Partition: msg.Partition, Offset: msg.Offset, Key: string(msg.Key), Event: ev})
	})

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	c, err := consumer.New(consumer.Config{
		Brokers:   *brokers,
		GroupID:   *group,
		Topics:    []string{*topic},
		FromStart: *fromStart,
	}, handler, logger)
	if err != nil {
		return err
	}
	return c.Run(ctx)
}
