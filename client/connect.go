package client

import (
	"context"
	"fmt"

	"github.com/issac1998/go-kafka/internal/errors"
	"github.com/issac1998/go-kafka/internal/protocol"
)

// RefreshMetadata asks the cluster for topic metadata and folds the
// answer into the routing tables. Channels to newly seen brokers are
// installed lazily here; existing channels are reused.
func (c *Client) RefreshMetadata(ctx context.Context, topics ...string) error {
	resp, err := c.Metadata(ctx, topics...)
	if err != nil {
		return err
	}
	c.applyMetadata(resp)
	return nil
}

func (c *Client) applyMetadata(resp *protocol.MetadataResponse) {
	for _, broker := range resp.Brokers {
		endpoint := Endpoint{Host: broker.Host, Port: broker.Port}
		c.tables.setNode(broker.NodeID, endpoint)
		c.ensureChannel(endpoint)
	}
	for _, topic := range resp.Topics {
		if topic.ErrorCode != protocol.ErrNoError {
			c.logger.Warn("Metadata reported topic error",
				"topic", topic.Name, "error", protocol.ErrorCodeName(topic.ErrorCode))
			continue
		}
		for _, p := range topic.Partitions {
			if p.ErrorCode != protocol.ErrNoError || p.Leader < 0 {
				continue
			}
			c.tables.setLeader(TopicPartition{Topic: topic.Name, Partition: p.Partition}, p.Leader)
		}
	}
}

func (c *Client) ensureChannel(endpoint Endpoint) *Channel {
	return c.tables.ensureChannel(endpoint, func() *Channel {
		return newChannel(endpoint, c.clientID, c.dialTimeout, c.logger)
	})
}

// ResolveCoordinator locates the coordinator of a group and records it
// in the routing tables.
func (c *Client) ResolveCoordinator(ctx context.Context, group string) (Endpoint, error) {
	resp, err := c.Send(ctx, &protocol.GroupCoordinatorRequest{GroupID: group})
	if err != nil {
		return Endpoint{}, err
	}
	coord := resp.(*protocol.GroupCoordinatorResponse)
	if coord.ErrorCode != protocol.ErrNoError {
		return Endpoint{}, errors.NewTypedError(errors.ProtocolError,
			fmt.Sprintf("%s: %s", errors.CoordinatorMsg, protocol.ErrorCodeName(coord.ErrorCode)), nil)
	}
	endpoint := Endpoint{Host: coord.CoordinatorHost, Port: coord.CoordinatorPort}
	c.ensureChannel(endpoint)
	c.tables.setCoordinator(group, endpoint)
	return endpoint, nil
}

// coordinatorReady resolves the coordinator on first use of a group.
func (c *Client) coordinatorReady(ctx context.Context, group string) error {
	if _, ok := c.tables.coordinatorFor(group); ok {
		return nil
	}
	_, err := c.ResolveCoordinator(ctx, group)
	return err
}

// Metadata fetches cluster metadata for the given topics, or for all
// topics when none are named.
func (c *Client) Metadata(ctx context.Context, topics ...string) (*protocol.MetadataResponse, error) {
	resp, err := c.Send(ctx, &protocol.MetadataRequest{Topics: topics})
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.MetadataResponse), nil
}

// Fetch reads records from the partition leaders named in req.
func (c *Client) Fetch(ctx context.Context, req *protocol.FetchRequest) (*protocol.FetchResponse, error) {
	if err := c.routesReady(ctx, fetchPartitions(req)); err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.FetchResponse), nil
}

// Produce appends records to the partition leaders named in req.
func (c *Client) Produce(ctx context.Context, req *protocol.ProduceRequest) (*protocol.ProduceResponse, error) {
	if err := c.routesReady(ctx, producePartitions(req)); err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.ProduceResponse), nil
}

// ListOffsets queries log offsets from the partition leaders named in
// req.
func (c *Client) ListOffsets(ctx context.Context, req *protocol.ListOffsetsRequest) (*protocol.ListOffsetsResponse, error) {
	if err := c.routesReady(ctx, listOffsetsPartitions(req)); err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.ListOffsetsResponse), nil
}

// CommitOffsets commits consumed offsets to the group coordinator.
func (c *Client) CommitOffsets(ctx context.Context, req *protocol.OffsetCommitRequest) (*protocol.OffsetCommitResponse, error) {
	if err := c.coordinatorReady(ctx, req.ConsumerGroup); err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.OffsetCommitResponse), nil
}

// FetchOffsets reads committed offsets from the group coordinator.
func (c *Client) FetchOffsets(ctx context.Context, req *protocol.OffsetFetchRequest) (*protocol.OffsetFetchResponse, error) {
	if err := c.coordinatorReady(ctx, req.ConsumerGroup); err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.OffsetFetchResponse), nil
}

// JoinGroup enters a consumer group through its coordinator.
func (c *Client) JoinGroup(ctx context.Context, req *protocol.JoinGroupRequest) (*protocol.JoinGroupResponse, error) {
	if err := c.coordinatorReady(ctx, req.GroupID); err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.JoinGroupResponse), nil
}

// SyncGroup distributes partition assignments after a join.
func (c *Client) SyncGroup(ctx context.Context, req *protocol.SyncGroupRequest) (*protocol.SyncGroupResponse, error) {
	if err := c.coordinatorReady(ctx, req.GroupID); err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.SyncGroupResponse), nil
}

// Heartbeat keeps a group membership alive.
func (c *Client) Heartbeat(ctx context.Context, req *protocol.HeartbeatRequest) (*protocol.HeartbeatResponse, error) {
	if err := c.coordinatorReady(ctx, req.GroupID); err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.HeartbeatResponse), nil
}

// LeaveGroup exits a consumer group.
func (c *Client) LeaveGroup(ctx context.Context, req *protocol.LeaveGroupRequest) (*protocol.LeaveGroupResponse, error) {
	if err := c.coordinatorReady(ctx, req.GroupID); err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.LeaveGroupResponse), nil
}

// ListGroups enumerates the groups known to the bootstrap broker.
func (c *Client) ListGroups(ctx context.Context) (*protocol.ListGroupsResponse, error) {
	resp, err := c.Send(ctx, &protocol.ListGroupsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.ListGroupsResponse), nil
}

// DescribeGroups inspects the state of the named groups.
func (c *Client) DescribeGroups(ctx context.Context, groups ...string) (*protocol.DescribeGroupsResponse, error) {
	resp, err := c.Send(ctx, &protocol.DescribeGroupsRequest{Groups: groups})
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.DescribeGroupsResponse), nil
}

// APIVersions probes the api versions supported by the bootstrap
// broker.
func (c *Client) APIVersions(ctx context.Context) (*protocol.APIVersionsResponse, error) {
	resp, err := c.Send(ctx, &protocol.APIVersionsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.(*protocol.APIVersionsResponse), nil
}

// routesReady refreshes metadata for the topics whose leaders are not
// yet in the routing tables.
func (c *Client) routesReady(ctx context.Context, partitions []TopicPartition) error {
	missing := make(map[string]bool)
	for _, tp := range partitions {
		if _, ok := c.tables.leaderFor(tp); !ok {
			missing[tp.Topic] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}
	topics := make([]string, 0, len(missing))
	for topic := range missing {
		topics = append(topics, topic)
	}
	return c.RefreshMetadata(ctx, topics...)
}

func fetchPartitions(req *protocol.FetchRequest) []TopicPartition {
	var out []TopicPartition
	for _, t := range req.Topics {
		for _, p := range t.Partitions {
			out = append(out, TopicPartition{Topic: t.Name, Partition: p.Partition})
		}
	}
	return out
}

func producePartitions(req *protocol.ProduceRequest) []TopicPartition {
	var out []TopicPartition
	for _, t := range req.Topics {
		for _, p := range t.Partitions {
			out = append(out, TopicPartition{Topic: t.Name, Partition: p.Partition})
		}
	}
	return out
}

func listOffsetsPartitions(req *protocol.ListOffsetsRequest) []TopicPartition {
	var out []TopicPartition
	for _, t := range req.Topics {
		for _, p := range t.Partitions {
			out = append(out, TopicPartition{Topic: t.Name, Partition: p.Partition})
		}
	}
	return out
}
