// Package config loads client configuration files for the command
// line tool. Flags take precedence over file values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/issac1998/go-kafka/internal/compression"
	"github.com/issac1998/go-kafka/internal/discovery"
	"github.com/issac1998/go-kafka/internal/logging"
)

// ClientConfig represents client configuration loaded from a file
type ClientConfig struct {
	BootstrapServers []string          `json:"bootstrap_servers"`
	ClientID         string            `json:"client_id"`
	DialTimeout      string            `json:"dial_timeout"`
	Codec            string            `json:"codec"`
	Discovery        *discovery.Config `json:"discovery"`
	Logging          logging.Config    `json:"logging"`
}

// LoadClientConfig loads client configuration from a JSON file
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var config ClientConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	// Set defaults if not provided
	if len(config.BootstrapServers) == 0 && config.Discovery == nil {
		config.BootstrapServers = []string{"localhost:9092"}
	}
	if config.DialTimeout == "" {
		config.DialTimeout = "5s"
	}
	if config.Codec == "" {
		config.Codec = "none"
	}
	if config.Logging.Level == "" {
		config.Logging.Level = logging.LevelInfo
	}
	if config.Logging.Format == "" {
		config.Logging.Format = logging.FormatText
	}
	if config.Logging.OutputFile == "" {
		config.Logging.EnableConsole = true
	}

	if _, err := config.GetDialTimeout(); err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %v", err)
	}
	if _, err := compression.Parse(config.Codec); err != nil {
		return nil, fmt.Errorf("invalid codec: %v", err)
	}
	if config.Discovery != nil {
		if config.Discovery.Type == "" {
			config.Discovery.Type = "etcd"
		}
		if len(config.Discovery.Endpoints) == 0 && config.Discovery.Type == "etcd" {
			return nil, fmt.Errorf("discovery requires at least one endpoint")
		}
	}

	return &config, nil
}

// GetDialTimeout parses the dial timeout string to a duration
func (c *ClientConfig) GetDialTimeout() (time.Duration, error) {
	return time.ParseDuration(c.DialTimeout)
}
