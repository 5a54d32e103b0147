// Package admin provisions Kafka topics.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	platformstrings "wires/pkg/platform/strings"
)

// TopicSpec sizes the topics to create.
type TopicSpec struct {
	Partitions        int32
	ReplicationFactor int16
}

// EnsureTopics creates each topic that does not already exist. It returns the
// topics that were created. Blank and repeated names are ignored.
func EnsureTopics(ctx context.Context, client *kgo.Client, spec TopicSpec, logger *slog.Logger, topics ...string) ([]string, error) {
	topics = platformstrings.DedupeAndTrim(topics)
	if len(topics) == 0 {
		return nil, nil
	}
	if spec.Partitions <= 0 {
		spec.Partitions = 1
	}
	if spec.ReplicationFactor <= 0 {
		spec.ReplicationFactor = 1
	}

	adm := kadm.NewClient(client)
	resps, err := adm.CreateTopics(ctx, spec.Partitions, spec.ReplicationFactor, nil, topics...)
	if err != nil {
		return nil, fmt.Errorf("create topics: %w", err)
	}

	var created []string
	var errs []error
	for _, topic := range topics {
		resp, ok := resps[topic]
		if !ok {
			continue
		}
		switch {
		case resp.Err == nil:
			created = append(created, topic)
			logger.InfoContext(ctx, "topic created", "topic", topic, "partitions", spec.Partitions)
		case errors.Is(resp.Err, kerr.TopicAlreadyExists):
			logger.DebugContext(ctx, "topic already exists", "topic", topic)
		default:
			errs = append(errs, fmt.Errorf("topic %s: %w", topic, resp.Err))
		}
	}
	return created, errors.Join(errs...)
}
