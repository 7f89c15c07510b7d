package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/fieldlens/fieldlens/internal/schema"
)

// Config represents the fieldlens configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Resources []ResourceConfig `mapstructure:"resources"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// CacheConfig configures the narrowed-plan cache.
type CacheConfig struct {
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

// RedisConfig configures the optional Redis cache backend. An empty Addr
// means the in-process cache is used.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ResourceConfig declares one plannable resource.
type ResourceConfig struct {
	Name   string        `mapstructure:"name"`
	Table  string        `mapstructure:"table"`
	Fields []FieldConfig `mapstructure:"fields"`
}

// FieldConfig declares one field of a resource.
type FieldConfig struct {
	Name      string          `mapstructure:"name"`
	WriteOnly bool            `mapstructure:"write_only"`
	Relation  *RelationConfig `mapstructure:"relation"`
}

// RelationConfig declares a relation field's target and cardinality.
type RelationConfig struct {
	Kind       string `mapstructure:"kind"`
	Target     string `mapstructure:"target"`
	ForeignKey string `mapstructure:"foreign_key"`
}

// Load loads the configuration from fieldlens.yml or fieldlens.yaml in the
// given directory (or the working directory when dir is empty).
func Load(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)
	v.SetDefault("cache.capacity", 1024)
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetConfigName("fieldlens")
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// DatabaseURL returns the database URL from the environment or config.
func (c *Config) DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return c.Database.URL
}

// BuildRegistry converts the declared resources into a validated schema
// registry.
func (c *Config) BuildRegistry() (*schema.Registry, error) {
	registry := schema.NewRegistry()

	for _, resource := range c.Resources {
		table := resource.Table
		if table == "" {
			return nil, fmt.Errorf("resource %s: table is required", resource.Name)
		}
		node := schema.NewNode(resource.Name, table)

		for _, field := range resource.Fields {
			if field.Relation == nil {
				if field.WriteOnly {
					node.AddWriteOnlyField(field.Name)
				} else {
					node.AddField(field.Name)
				}
				continue
			}

			kind, err := parseRelationKind(field.Relation.Kind)
			if err != nil {
				return nil, fmt.Errorf("resource %s, field %s: %w", resource.Name, field.Name, err)
			}
			node.AddRelation(field.Name, kind, field.Relation.Target)
			if field.Relation.ForeignKey != "" {
				node.Fields[field.Name].Relation.ForeignKey = field.Relation.ForeignKey
			}
		}

		if err := registry.Register(node); err != nil {
			return nil, err
		}
	}

	if err := registry.ValidateAll(); err != nil {
		return nil, err
	}
	return registry, nil
}

func parseRelationKind(kind string) (schema.RelationKind, error) {
	switch kind {
	case "belongs_to":
		return schema.RelationBelongsTo, nil
	case "has_one":
		return schema.RelationHasOne, nil
	case "has_many":
		return schema.RelationHasMany, nil
	default:
		return 0, fmt.Errorf("unknown relation kind %q", kind)
	}
}
