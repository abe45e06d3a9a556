package client

import (
	"context"
	"time"

	"github.com/issac1998/go-kafka/internal/logging"
	"github.com/issac1998/go-kafka/internal/protocol"
)

// classifier inspects the per-partition error codes embedded in
// otherwise successful responses. Stale-routing codes schedule an
// asynchronous metadata refresh; the response is still handed to the
// caller untouched, so applications see every partition-level error.
type classifier struct {
	refresh func(ctx context.Context) error
	logger  *logging.Logger
}

func newClassifier(refresh func(ctx context.Context) error, logger *logging.Logger) *classifier {
	return &classifier{
		refresh: refresh,
		logger:  logger.WithComponent("classifier"),
	}
}

// Observe scans resp for embedded error codes and reacts to the ones
// that signal stale routing state.
func (c *classifier) Observe(resp any) {
	stale := false
	switch resp := resp.(type) {
	case *protocol.FetchResponse:
		for _, t := range resp.Topics {
			for _, p := range t.Partitions {
				stale = c.inspect(t.Name, p.Partition, p.ErrorCode) || stale
			}
		}
	case *protocol.ProduceResponse:
		for _, t := range resp.Topics {
			for _, p := range t.Partitions {
				stale = c.inspect(t.Name, p.Partition, p.ErrorCode) || stale
			}
		}
	case *protocol.ListOffsetsResponse:
		for _, t := range resp.Topics {
			for _, p := range t.Partitions {
				stale = c.inspect(t.Name, p.Partition, p.ErrorCode) || stale
			}
		}
	}
	if stale {
		go c.refreshMetadata()
	}
}

// inspect reports whether the code means our leader table is stale.
func (c *classifier) inspect(topic string, partition int32, code int16) bool {
	switch code {
	case protocol.ErrNoError:
		return false
	case protocol.ErrNotLeaderForPartition, protocol.ErrLeaderNotAvailable, protocol.ErrUnknownTopicOrPartition:
		c.logger.WithPartition(topic, partition).Info("Stale leader reported",
			"error_code", code, "error", protocol.ErrorCodeName(code))
		return true
	case protocol.ErrRequestTimedOut:
		c.logger.WithPartition(topic, partition).Warn("Broker timed out serving partition",
			"error_code", code)
		return false
	default:
		c.logger.WithPartition(topic, partition).Debug("Partition-level error in response",
			"error_code", code, "error", protocol.ErrorCodeName(code))
		return false
	}
}

func (c *classifier) refreshMetadata() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.refresh(ctx); err != nil {
		c.logger.ErrorContext("Metadata refresh after stale leader failed", err)
	}
}
