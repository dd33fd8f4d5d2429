package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	pstrings "pixpax/pkg/platform/strings"
)

// Admin wraps a kadm client for startup topic provisioning and readiness.
type Admin struct {
	client *kgo.Client
	adm    *kadm.Client
}

func NewAdmin(brokers string) (*Admin, error) {
	seeds := pstrings.SplitList(brokers)
	if len(seeds) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	client, err := kgo.NewClient(kgo.SeedBrokers(seeds...))
	if err != nil {
		return nil, fmt.Errorf("create kafka admin client: %w", err)
	}
	return &Admin{client: client, adm: kadm.NewClient(client)}, nil
}

// EnsureTopic creates topic when it does not exist yet.
func (a *Admin) EnsureTopic(ctx context.Context, topic string, partitions int32, replication int16) error {
	resp, err := a.adm.CreateTopic(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

// Check succeeds when at least one broker answers a metadata request.
func (a *Admin) Check(ctx context.Context) error {
	brokers, err := a.adm.ListBrokers(ctx)
	if err != nil {
		return fmt.Errorf("list kafka brokers: %w", err)
	}
	if len(brokers) == 0 {
		return fmt.Errorf("no kafka brokers reachable")
	}
	return nil
}

func (a *Admin) Close() {
	a.adm.Close()
}
