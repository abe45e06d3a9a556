package client

import (
	"net"
	"strconv"

	"github.com/issac1998/go-kafka/internal/reactive"
)

// Endpoint identifies a broker by host and port.
type Endpoint struct {
	Host string
	Port int32
}

// Addr renders the endpoint as a dialable address.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// TopicPartition identifies one partition of a topic.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// routingTables holds the client's view of the cluster as reactive
// maps. The four primary tables are written by metadata and
// coordinator responses; the derived tables recompute automatically so
// routing lookups never observe a half-applied update.
type routingTables struct {
	// Primary tables, written by cluster discovery.
	chanByHost  *reactive.Var[map[Endpoint]*Channel]
	hostByNode  *reactive.Var[map[int32]Endpoint]
	nodeByTopic *reactive.Var[map[TopicPartition]int32]
	hostByGroup *reactive.Var[map[string]Endpoint]

	// Derived tables, recomputed on every primary change.
	chanByTopic *reactive.Var[map[TopicPartition]*Channel]
	chanByGroup *reactive.Var[map[string]*Channel]
}

func newRoutingTables() *routingTables {
	t := &routingTables{
		chanByHost:  reactive.NewVar(map[Endpoint]*Channel{}),
		hostByNode:  reactive.NewVar(map[int32]Endpoint{}),
		nodeByTopic: reactive.NewVar(map[TopicPartition]int32{}),
		hostByGroup: reactive.NewVar(map[string]Endpoint{}),
	}

	hostByTopic := reactive.Combine(t.nodeByTopic, t.hostByNode,
		func(topics map[TopicPartition]int32, hosts map[int32]Endpoint) map[TopicPartition]Endpoint {
			out := make(map[TopicPartition]Endpoint, len(topics))
			for tp, node := range topics {
				if host, ok := hosts[node]; ok {
					out[tp] = host
				}
			}
			return out
		})

	t.chanByTopic = reactive.Combine(hostByTopic, t.chanByHost,
		func(hosts map[TopicPartition]Endpoint, chans map[Endpoint]*Channel) map[TopicPartition]*Channel {
			out := make(map[TopicPartition]*Channel, len(hosts))
			for tp, host := range hosts {
				if ch, ok := chans[host]; ok {
					out[tp] = ch
				}
			}
			return out
		})

	t.chanByGroup = reactive.Combine(t.hostByGroup, t.chanByHost,
		func(groups map[string]Endpoint, chans map[Endpoint]*Channel) map[string]*Channel {
			out := make(map[string]*Channel, len(groups))
			for group, host := range groups {
				if ch, ok := chans[host]; ok {
					out[group] = ch
				}
			}
			return out
		})

	return t
}

// leaderFor returns the channel to the leader of the given partition.
func (t *routingTables) leaderFor(tp TopicPartition) (*Channel, bool) {
	ch, ok := t.chanByTopic.Get()[tp]
	return ch, ok
}

// coordinatorFor returns the channel to a group's coordinator.
func (t *routingTables) coordinatorFor(group string) (*Channel, bool) {
	ch, ok := t.chanByGroup.Get()[group]
	return ch, ok
}

// channelFor returns the channel to the given endpoint.
func (t *routingTables) channelFor(endpoint Endpoint) (*Channel, bool) {
	ch, ok := t.chanByHost.Get()[endpoint]
	return ch, ok
}

// setNode records a broker's endpoint, keyed by node id.
func (t *routingTables) setNode(node int32, endpoint Endpoint) {
	t.hostByNode.Update(func(m map[int32]Endpoint) map[int32]Endpoint {
		if m[node] == endpoint {
			return m
		}
		next := cloneMap(m)
		next[node] = endpoint
		return next
	})
}

// setLeader records the leader node of a partition.
func (t *routingTables) setLeader(tp TopicPartition, node int32) {
	t.nodeByTopic.Update(func(m map[TopicPartition]int32) map[TopicPartition]int32 {
		if existing, ok := m[tp]; ok && existing == node {
			return m
		}
		next := cloneMap(m)
		next[tp] = node
		return next
	})
}

// setCoordinator records a group's coordinator endpoint.
func (t *routingTables) setCoordinator(group string, endpoint Endpoint) {
	t.hostByGroup.Update(func(m map[string]Endpoint) map[string]Endpoint {
		if existing, ok := m[group]; ok && existing == endpoint {
			return m
		}
		next := cloneMap(m)
		next[group] = endpoint
		return next
	})
}

// ensureChannel installs a channel for the endpoint unless one already
// exists; it returns the channel that won.
func (t *routingTables) ensureChannel(endpoint Endpoint, build func() *Channel) *Channel {
	var winner *Channel
	t.chanByHost.Update(func(m map[Endpoint]*Channel) map[Endpoint]*Channel {
		if existing, ok := m[endpoint]; ok {
			winner = existing
			return m
		}
		winner = build()
		next := cloneMap(m)
		next[endpoint] = winner
		return next
	})
	return winner
}

// channels snapshots every installed channel.
func (t *routingTables) channels() []*Channel {
	m := t.chanByHost.Get()
	out := make([]*Channel, 0, len(m))
	for _, ch := range m {
		out = append(out, ch)
	}
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	next := make(map[K]V, len(m)+1)
	for k, v := range m {
		next[k] = v
	}
	return next
}
