package graphkit

import (
	"fmt"
	"os"

	"github.com/graphkit-io/graphkit/store/neo4jstore"
	"github.com/graphkit-io/graphkit/store/redisindex"
	"gopkg.in/yaml.v3"
)

// Config holds backend connection settings loadable from a YAML file.
// Each section maps onto the corresponding backend package's own
// configuration type; absent sections stay zero and the backend is
// simply not used.
//
// Example file:
//
//	neo4j:
//	  uri: bolt://localhost:7687
//	  username: neo4j
//	  password: secret
//	  database: neo4j
//	redis:
//	  url: redis://localhost:6379
//	  namespace: graphkit
type Config struct {
	// Neo4j configures the Neo4j-backed store.
	Neo4j neo4jstore.Config `yaml:"neo4j"`

	// Redis configures the Redis-backed index.
	Redis redisindex.Config `yaml:"redis"`
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	const op = "graphkit.LoadConfig"
	if path == "" {
		return nil, NewInvalidArgumentError(op, fmt.Errorf("path is required; it must not be empty"))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewUncategorizedError(op, fmt.Errorf("reading config file: %w", err))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewUncategorizedError(op, fmt.Errorf("parsing config file: %w", err))
	}
	return &cfg, nil
}
