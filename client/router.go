package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/issac1998/go-kafka/internal/errors"
	"github.com/issac1998/go-kafka/internal/logging"
	"github.com/issac1998/go-kafka/internal/protocol"
)

// router dispatches requests to the channel that owns their target.
// Cluster-scoped kinds go to the bootstrap channel, partition kinds
// are split across leader channels and their replies merged back, and
// group kinds follow the coordinator table.
type router struct {
	tables    *routingTables
	bootstrap *Channel
	observe   func(resp any)
	logger    *logging.Logger
}

func newRouter(tables *routingTables, bootstrap *Channel, observe func(any), logger *logging.Logger) *router {
	return &router{
		tables:    tables,
		bootstrap: bootstrap,
		observe:   observe,
		logger:    logger.WithComponent("router"),
	}
}

// Route sends req to the broker(s) responsible for it and returns the
// (possibly merged) response.
func (r *router) Route(ctx context.Context, req protocol.Request) (any, error) {
	resp, err := r.route(ctx, req)
	if err != nil {
		return nil, err
	}
	if r.observe != nil {
		r.observe(resp)
	}
	return resp, nil
}

func (r *router) route(ctx context.Context, req protocol.Request) (any, error) {
	switch req := req.(type) {
	case *protocol.MetadataRequest,
		*protocol.GroupCoordinatorRequest,
		*protocol.ListGroupsRequest,
		*protocol.DescribeGroupsRequest,
		*protocol.APIVersionsRequest:
		return r.bootstrap.Send(ctx, req)

	case *protocol.FetchRequest:
		return r.routeFetch(ctx, req)
	case *protocol.ProduceRequest:
		return r.routeProduce(ctx, req)
	case *protocol.ListOffsetsRequest:
		return r.routeListOffsets(ctx, req)

	case *protocol.OffsetCommitRequest:
		return r.sendToCoordinator(ctx, req.ConsumerGroup, req)
	case *protocol.OffsetFetchRequest:
		return r.sendToCoordinator(ctx, req.ConsumerGroup, req)
	case protocol.GroupRequest:
		return r.sendToCoordinator(ctx, req.Group(), req)

	default:
		return nil, errors.NewTypedError(errors.ProtocolError,
			fmt.Sprintf("no route rule for %s request", protocol.APIKeyName(req.APIKey())), nil)
	}
}

func (r *router) sendToCoordinator(ctx context.Context, group string, req protocol.Request) (any, error) {
	ch, ok := r.tables.coordinatorFor(group)
	if !ok {
		return nil, errors.NewTypedError(errors.MissingRouteError,
			fmt.Sprintf("%s: group %q", errors.MissingRouteMsg, group), nil)
	}
	return ch.Send(ctx, req)
}

// shard is one per-leader slice of a split request.
type shard struct {
	ch  *Channel
	req protocol.Request
}

// dispatch sends every shard concurrently and returns the replies in
// shard order. The first failure cancels the remaining sends and is
// returned to the caller.
func (r *router) dispatch(ctx context.Context, shards []shard) ([]any, error) {
	if len(shards) == 1 {
		resp, err := shards[0].ch.Send(ctx, shards[0].req)
		if err != nil {
			return nil, err
		}
		return []any{resp}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]any, len(shards))
	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		firstErr error
	)
	for i, s := range shards {
		wg.Add(1)
		go func(i int, s shard) {
			defer wg.Done()
			resp, err := s.ch.Send(ctx, s.req)
			if err != nil {
				// The failure that triggered cancellation is the one
				// reported; later ctx errors from sibling shards are
				// consequences, not causes.
				failOnce.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			results[i] = resp
		}(i, s)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (r *router) missingLeader(tp TopicPartition) error {
	return errors.NewTypedError(errors.MissingRouteError,
		fmt.Sprintf("%s: partition %s/%d", errors.MissingRouteMsg, tp.Topic, tp.Partition), nil)
}

func (r *router) routeFetch(ctx context.Context, req *protocol.FetchRequest) (any, error) {
	subs := make(map[*Channel]*protocol.FetchRequest)
	var order []*Channel
	for _, topic := range req.Topics {
		for _, p := range topic.Partitions {
			tp := TopicPartition{Topic: topic.Name, Partition: p.Partition}
			ch, ok := r.tables.leaderFor(tp)
			if !ok {
				return nil, r.missingLeader(tp)
			}
			sub, ok := subs[ch]
			if !ok {
				sub = &protocol.FetchRequest{
					ReplicaID:   req.ReplicaID,
					MaxWaitTime: req.MaxWaitTime,
					MinBytes:    req.MinBytes,
				}
				subs[ch] = sub
				order = append(order, ch)
			}
			i := topicIndex(len(sub.Topics), func(j int) string { return sub.Topics[j].Name }, topic.Name)
			if i < 0 {
				sub.Topics = append(sub.Topics, protocol.FetchTopic{Name: topic.Name})
				i = len(sub.Topics) - 1
			}
			sub.Topics[i].Partitions = append(sub.Topics[i].Partitions, p)
		}
	}

	shards := make([]shard, len(order))
	for i, ch := range order {
		shards[i] = shard{ch: ch, req: subs[ch]}
	}
	results, err := r.dispatch(ctx, shards)
	if err != nil {
		return nil, err
	}

	merged := &protocol.FetchResponse{}
	index := make(map[string]int)
	for _, res := range results {
		resp := res.(*protocol.FetchResponse)
		for _, t := range resp.Topics {
			if i, ok := index[t.Name]; ok {
				merged.Topics[i].Partitions = append(merged.Topics[i].Partitions, t.Partitions...)
			} else {
				index[t.Name] = len(merged.Topics)
				merged.Topics = append(merged.Topics, t)
			}
		}
	}
	return merged, nil
}

func (r *router) routeProduce(ctx context.Context, req *protocol.ProduceRequest) (any, error) {
	subs := make(map[*Channel]*protocol.ProduceRequest)
	var order []*Channel
	for _, topic := range req.Topics {
		for _, p := range topic.Partitions {
			tp := TopicPartition{Topic: topic.Name, Partition: p.Partition}
			ch, ok := r.tables.leaderFor(tp)
			if !ok {
				return nil, r.missingLeader(tp)
			}
			sub, ok := subs[ch]
			if !ok {
				sub = &protocol.ProduceRequest{
					RequiredAcks: req.RequiredAcks,
					Timeout:      req.Timeout,
				}
				subs[ch] = sub
				order = append(order, ch)
			}
			i := topicIndex(len(sub.Topics), func(j int) string { return sub.Topics[j].Name }, topic.Name)
			if i < 0 {
				sub.Topics = append(sub.Topics, protocol.ProduceTopic{Name: topic.Name})
				i = len(sub.Topics) - 1
			}
			sub.Topics[i].Partitions = append(sub.Topics[i].Partitions, p)
		}
	}

	shards := make([]shard, len(order))
	for i, ch := range order {
		shards[i] = shard{ch: ch, req: subs[ch]}
	}
	results, err := r.dispatch(ctx, shards)
	if err != nil {
		return nil, err
	}

	merged := &protocol.ProduceResponse{}
	index := make(map[string]int)
	for _, res := range results {
		resp := res.(*protocol.ProduceResponse)
		for _, t := range resp.Topics {
			if i, ok := index[t.Name]; ok {
				merged.Topics[i].Partitions = append(merged.Topics[i].Partitions, t.Partitions...)
			} else {
				index[t.Name] = len(merged.Topics)
				merged.Topics = append(merged.Topics, t)
			}
		}
	}
	return merged, nil
}

func (r *router) routeListOffsets(ctx context.Context, req *protocol.ListOffsetsRequest) (any, error) {
	subs := make(map[*Channel]*protocol.ListOffsetsRequest)
	var order []*Channel
	for _, topic := range req.Topics {
		for _, p := range topic.Partitions {
			tp := TopicPartition{Topic: topic.Name, Partition: p.Partition}
			ch, ok := r.tables.leaderFor(tp)
			if !ok {
				return nil, r.missingLeader(tp)
			}
			sub, ok := subs[ch]
			if !ok {
				sub = &protocol.ListOffsetsRequest{ReplicaID: req.ReplicaID}
				subs[ch] = sub
				order = append(order, ch)
			}
			i := topicIndex(len(sub.Topics), func(j int) string { return sub.Topics[j].Name }, topic.Name)
			if i < 0 {
				sub.Topics = append(sub.Topics, protocol.ListOffsetsTopic{Name: topic.Name})
				i = len(sub.Topics) - 1
			}
			sub.Topics[i].Partitions = append(sub.Topics[i].Partitions, p)
		}
	}

	shards := make([]shard, len(order))
	for i, ch := range order {
		shards[i] = shard{ch: ch, req: subs[ch]}
	}
	results, err := r.dispatch(ctx, shards)
	if err != nil {
		return nil, err
	}

	merged := &protocol.ListOffsetsResponse{}
	index := make(map[string]int)
	for _, res := range results {
		resp := res.(*protocol.ListOffsetsResponse)
		for _, t := range resp.Topics {
			if i, ok := index[t.Name]; ok {
				merged.Topics[i].Partitions = append(merged.Topics[i].Partitions, t.Partitions...)
			} else {
				index[t.Name] = len(merged.Topics)
				merged.Topics = append(merged.Topics, t)
			}
		}
	}
	return merged, nil
}

// topicIndex scans n topic names via name(i) for target, returning -1
// when absent. Requests carry few topics so a linear scan wins over a
// map here.
func topicIndex(n int, name func(int) string, target string) int {
	for i := 0; i < n; i++ {
		if name(i) == target {
			return i
		}
	}
	return -1
}
