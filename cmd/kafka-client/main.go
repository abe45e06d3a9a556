package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/issac1998/go-kafka/client"
	"github.com/issac1998/go-kafka/internal/compression"
	clientconfig "github.com/issac1998/go-kafka/internal/config"
	"github.com/issac1998/go-kafka/internal/discovery"
	"github.com/issac1998/go-kafka/internal/logging"
	"github.com/issac1998/go-kafka/internal/protocol"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to a JSON client config file; flags override file values")

		brokers   = flag.String("brokers", "localhost:9092", "Comma-separated bootstrap servers")
		etcd      = flag.String("etcd", "", "Comma-separated etcd endpoints for broker discovery")
		command   = flag.String("cmd", "", "Command: metadata, produce, fetch, offsets, commit, fetch-offsets, coordinator, list-groups, describe-groups, api-versions")
		topic     = flag.String("topic", "", "Topic name")
		partition = flag.Int("partition", 0, "Partition id")
		message   = flag.String("message", "", "Message payload for produce")
		offset    = flag.Int64("offset", 0, "Start offset for fetch, or offset to commit")
		group     = flag.String("group", "", "Consumer group id")
		codec     = flag.String("codec", "none", "Record-set codec: none, gzip, snappy, zstd")
		acks      = flag.Int("acks", 1, "Required acks for produce (0 sends without waiting)")
		logFile   = flag.String("log", "", "Log file path")
		logLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		timeout   = flag.Duration("timeout", 30*time.Second, "Overall command timeout")
	)
	flag.Parse()

	if *command == "" {
		printUsage()
		os.Exit(1)
	}

	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	config := client.Config{
		BootstrapServers: strings.Split(*brokers, ","),
		Logging: logging.Config{
			Level:         logging.LogLevel(*logLevel),
			Format:        logging.FormatText,
			OutputFile:    *logFile,
			EnableConsole: *logFile == "",
		},
	}
	if *etcd != "" {
		config.Discovery = &discovery.Config{
			Type:      "etcd",
			Endpoints: strings.Split(*etcd, ","),
		}
	}

	if *configFile != "" {
		fileConfig, err := clientconfig.LoadClientConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
		if !setFlags["brokers"] {
			config.BootstrapServers = fileConfig.BootstrapServers
		}
		if !setFlags["etcd"] && fileConfig.Discovery != nil {
			config.Discovery = fileConfig.Discovery
		}
		if !setFlags["log"] && !setFlags["log-level"] {
			config.Logging = fileConfig.Logging
		}
		if !setFlags["codec"] {
			*codec = fileConfig.Codec
		}
		config.ClientID = fileConfig.ClientID
		config.DialTimeout, _ = fileConfig.GetDialTimeout()
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c, err := client.Connect(ctx, config)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer c.Close()

	switch *command {
	case "metadata":
		showMetadata(ctx, c, *topic)
	case "produce":
		produce(ctx, c, *topic, int32(*partition), *message, *codec, int16(*acks))
	case "fetch":
		fetch(ctx, c, *topic, int32(*partition), *offset)
	case "offsets":
		listOffsets(ctx, c, *topic, int32(*partition))
	case "commit":
		commitOffset(ctx, c, *group, *topic, int32(*partition), *offset)
	case "fetch-offsets":
		fetchOffsets(ctx, c, *group, *topic, int32(*partition))
	case "coordinator":
		showCoordinator(ctx, c, *group)
	case "list-groups":
		listGroups(ctx, c)
	case "describe-groups":
		describeGroups(ctx, c, *group)
	case "api-versions":
		apiVersions(ctx, c)
	default:
		fmt.Printf("Unknown command: %s\n", *command)
		printUsage()
		os.Exit(1)
	}
}

func showMetadata(ctx context.Context, c *client.Client, topic string) {
	var topics []string
	if topic != "" {
		topics = []string{topic}
	}
	resp, err := c.Metadata(ctx, topics...)
	if err != nil {
		log.Fatalf("Metadata request failed: %v", err)
	}
	for _, b := range resp.Brokers {
		fmt.Printf("broker %d at %s:%d\n", b.NodeID, b.Host, b.Port)
	}
	for _, t := range resp.Topics {
		fmt.Printf("topic %s (%s)\n", t.Name, protocol.ErrorCodeName(t.ErrorCode))
		for _, p := range t.Partitions {
			fmt.Printf("  partition %d leader=%d replicas=%v isr=%v\n",
				p.Partition, p.Leader, p.Replicas, p.ISR)
		}
	}
}

func produce(ctx context.Context, c *client.Client, topic string, partition int32, message, codecName string, acks int16) {
	codecType, err := compression.Parse(codecName)
	if err != nil {
		log.Fatalf("Invalid codec: %v", err)
	}
	recordSet, err := compression.Pack([]byte(message), codecType)
	if err != nil {
		log.Fatalf("Failed to pack record set: %v", err)
	}

	resp, err := c.Produce(ctx, &protocol.ProduceRequest{
		RequiredAcks: acks,
		Timeout:      10000,
		Topics: []protocol.ProduceTopic{{
			Name: topic,
			Partitions: []protocol.ProducePartition{{
				Partition: partition,
				RecordSet: recordSet,
			}},
		}},
	})
	if err != nil {
		log.Fatalf("Produce failed: %v", err)
	}
	if acks == 0 {
		fmt.Println("sent without ack")
		return
	}
	for _, t := range resp.Topics {
		for _, p := range t.Partitions {
			fmt.Printf("%s/%d: offset=%d (%s)\n",
				t.Name, p.Partition, p.BaseOffset, protocol.ErrorCodeName(p.ErrorCode))
		}
	}
}

func fetch(ctx context.Context, c *client.Client, topic string, partition int32, offset int64) {
	resp, err := c.Fetch(ctx, &protocol.FetchRequest{
		ReplicaID:   -1,
		MaxWaitTime: 1000,
		MinBytes:    1,
		Topics: []protocol.FetchTopic{{
			Name: topic,
			Partitions: []protocol.FetchPartition{{
				Partition:   partition,
				FetchOffset: offset,
				MaxBytes:    1 << 20,
			}},
		}},
	})
	if err != nil {
		log.Fatalf("Fetch failed: %v", err)
	}
	for _, t := range resp.Topics {
		for _, p := range t.Partitions {
			fmt.Printf("%s/%d: high_watermark=%d (%s)\n",
				t.Name, p.Partition, p.HighWatermark, protocol.ErrorCodeName(p.ErrorCode))
			if len(p.RecordSet) == 0 {
				continue
			}
			payload, err := compression.Unpack(p.RecordSet)
			if err != nil {
				fmt.Printf("  %d raw bytes\n", len(p.RecordSet))
				continue
			}
			fmt.Printf("  %s\n", payload)
		}
	}
}

func listOffsets(ctx context.Context, c *client.Client, topic string, partition int32) {
	resp, err := c.ListOffsets(ctx, &protocol.ListOffsetsRequest{
		ReplicaID: -1,
		Topics: []protocol.ListOffsetsTopic{{
			Name: topic,
			Partitions: []protocol.ListOffsetsPartition{{
				Partition:    partition,
				Time:         -1,
				MaxNumOffset: 16,
			}},
		}},
	})
	if err != nil {
		log.Fatalf("ListOffsets failed: %v", err)
	}
	for _, t := range resp.Topics {
		for _, p := range t.Partitions {
			fmt.Printf("%s/%d: offsets=%v (%s)\n",
				t.Name, p.Partition, p.Offsets, protocol.ErrorCodeName(p.ErrorCode))
		}
	}
}

func commitOffset(ctx context.Context, c *client.Client, group, topic string, partition int32, offset int64) {
	requireGroup(group)
	resp, err := c.CommitOffsets(ctx, &protocol.OffsetCommitRequest{
		ConsumerGroup: group,
		Topics: []protocol.OffsetCommitTopic{{
			Name: topic,
			Partitions: []protocol.OffsetCommitPartition{{
				Partition: partition,
				Offset:    offset,
			}},
		}},
	})
	if err != nil {
		log.Fatalf("OffsetCommit failed: %v", err)
	}
	for _, t := range resp.Topics {
		for _, p := range t.Partitions {
			fmt.Printf("%s/%d: %s\n", t.Name, p.Partition, protocol.ErrorCodeName(p.ErrorCode))
		}
	}
}

func fetchOffsets(ctx context.Context, c *client.Client, group, topic string, partition int32) {
	requireGroup(group)
	resp, err := c.FetchOffsets(ctx, &protocol.OffsetFetchRequest{
		ConsumerGroup: group,
		Topics: []protocol.OffsetFetchTopic{{
			Name:       topic,
			Partitions: []int32{partition},
		}},
	})
	if err != nil {
		log.Fatalf("OffsetFetch failed: %v", err)
	}
	for _, t := range resp.Topics {
		for _, p := range t.Partitions {
			fmt.Printf("%s/%d: offset=%d (%s)\n",
				t.Name, p.Partition, p.Offset, protocol.ErrorCodeName(p.ErrorCode))
		}
	}
}

func showCoordinator(ctx context.Context, c *client.Client, group string) {
	requireGroup(group)
	endpoint, err := c.ResolveCoordinator(ctx, group)
	if err != nil {
		log.Fatalf("GroupCoordinator failed: %v", err)
	}
	fmt.Printf("coordinator for %s: %s\n", group, endpoint.Addr())
}

func listGroups(ctx context.Context, c *client.Client) {
	resp, err := c.ListGroups(ctx)
	if err != nil {
		log.Fatalf("ListGroups failed: %v", err)
	}
	for _, g := range resp.Groups {
		fmt.Printf("%s (%s)\n", g.GroupID, g.ProtocolType)
	}
}

func describeGroups(ctx context.Context, c *client.Client, group string) {
	requireGroup(group)
	resp, err := c.DescribeGroups(ctx, group)
	if err != nil {
		log.Fatalf("DescribeGroups failed: %v", err)
	}
	for _, g := range resp.Groups {
		fmt.Printf("group %s state=%s protocol=%s/%s (%s)\n",
			g.GroupID, g.State, g.ProtocolType, g.Protocol, protocol.ErrorCodeName(g.ErrorCode))
		for _, m := range g.Members {
			fmt.Printf("  member %s client=%s host=%s\n", m.MemberID, m.ClientID, m.ClientHost)
		}
	}
}

func apiVersions(ctx context.Context, c *client.Client) {
	resp, err := c.APIVersions(ctx)
	if err != nil {
		log.Fatalf("ApiVersions failed: %v", err)
	}
	for _, v := range resp.APIKeys {
		fmt.Printf("%s: v%d..v%d\n", protocol.APIKeyName(v.APIKey), v.MinVersion, v.MaxVersion)
	}
}

func requireGroup(group string) {
	if group == "" {
		log.Fatalf("-group is required for this command")
	}
}

func printUsage() {
	fmt.Println("Usage: kafka-client -cmd <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  metadata        Show brokers and partition leaders (-topic optional)")
	fmt.Println("  produce         Send a message (-topic, -partition, -message, -codec, -acks)")
	fmt.Println("  fetch           Read records (-topic, -partition, -offset)")
	fmt.Println("  offsets         List log offsets (-topic, -partition)")
	fmt.Println("  commit          Commit a consumed offset (-group, -topic, -partition, -offset)")
	fmt.Println("  fetch-offsets   Read committed offsets (-group, -topic, -partition)")
	fmt.Println("  coordinator     Locate a group's coordinator (-group)")
	fmt.Println("  list-groups     Enumerate consumer groups")
	fmt.Println("  describe-groups Inspect group state (-group)")
	fmt.Println("  api-versions    Probe supported api versions")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
}
