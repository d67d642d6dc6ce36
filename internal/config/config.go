package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/mongoly/internal/db"
	"github.com/kailas-cloud/mongoly/jsonschema"
)

// Config holds the mongoly provisioning configuration.
type Config struct {
	HTTP        HTTPConfig         `yaml:"http"`
	Mongo       MongoConfig        `yaml:"mongo"`
	Logging     LoggingConfig      `yaml:"logging"`
	Collections []CollectionConfig `yaml:"collections"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds admin HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`

	// APIKeys guards the provisioning endpoints. Empty disables auth.
	APIKeys []string `yaml:"api_keys"`
}

// MongoConfig holds database connection settings.
type MongoConfig struct {
	URI               string `yaml:"uri"`
	Database          string `yaml:"database"`
	AppName           string `yaml:"app_name"`
	ConnectTimeoutSec int    `yaml:"connect_timeout_sec"`
	ReadinessTimeout  int    `yaml:"readiness_timeout_sec"`
}

// CollectionConfig declares the validator and indexes of one collection.
type CollectionConfig struct {
	Name        string         `yaml:"name"`
	DropIndexes bool           `yaml:"drop_indexes"`
	Schema      map[string]any `yaml:"schema"`
	Indexes     []IndexConfig  `yaml:"indexes"`
}

// IndexConfig declares one index.
type IndexConfig struct {
	Name    string           `yaml:"name"`
	Keys    []IndexKeyConfig `yaml:"keys"`
	Unique  bool             `yaml:"unique"`
	Sparse  bool             `yaml:"sparse"`
	TTLSec  int              `yaml:"ttl_sec"`
	Partial map[string]any   `yaml:"partial_filter"`
}

// IndexKeyConfig is one field of an index key pattern.
type IndexKeyConfig struct {
	Field string `yaml:"field"`
	Kind  string `yaml:"kind"` // asc (default), desc, text, hashed, 2dsphere
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates configuration bytes.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Mongo.ConnectTimeoutSec <= 0 {
		c.Mongo.ConnectTimeoutSec = 10
	}
	if c.Mongo.ReadinessTimeout <= 0 {
		c.Mongo.ReadinessTimeout = 10
	}
	if c.Mongo.AppName == "" {
		c.Mongo.AppName = "mongoly"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo.database is required")
	}

	seen := make(map[string]bool, len(c.Collections))
	for i, coll := range c.Collections {
		if coll.Name == "" {
			return fmt.Errorf("collections[%d].name is required", i)
		}
		if seen[coll.Name] {
			return fmt.Errorf("collections[%d]: duplicate collection %q", i, coll.Name)
		}
		seen[coll.Name] = true

		if _, err := coll.SchemaNode(); err != nil {
			return fmt.Errorf("collections.%s.schema: %w", coll.Name, err)
		}
		for j, idx := range coll.Indexes {
			if _, err := idx.Definition(); err != nil {
				return fmt.Errorf("collections.%s.indexes[%d]: %w", coll.Name, j, err)
			}
		}
	}
	return nil
}

// Collection returns the named collection declaration.
func (c *Config) Collection(name string) (CollectionConfig, bool) {
	return lo.Find(c.Collections, func(cc CollectionConfig) bool { return cc.Name == name })
}

// ConnectTimeout returns the connect timeout as a duration.
func (m MongoConfig) ConnectTimeout() time.Duration {
	return time.Duration(m.ConnectTimeoutSec) * time.Second
}

// Readiness returns the readiness timeout as a duration.
func (m MongoConfig) Readiness() time.Duration {
	return time.Duration(m.ReadinessTimeout) * time.Second
}

// SchemaNode decodes the declared schema. It returns nil when the
// collection declares none.
func (cc CollectionConfig) SchemaNode() (jsonschema.Node, error) {
	if len(cc.Schema) == 0 {
		return nil, nil //nolint:nilnil // no schema declared
	}
	return jsonschema.FromMap(cc.Schema)
}

// Definition converts the declaration into a validated index definition.
func (ic IndexConfig) Definition() (*db.IndexDefinition, error) {
	b := db.NewIndex().Name(ic.Name)
	for _, k := range ic.Keys {
		kind, err := db.ParseIndexKind(k.Kind)
		if err != nil {
			return nil, err
		}
		b.Key(k.Field, kind)
	}
	if ic.Unique {
		b.Unique()
	}
	if ic.Sparse {
		b.Sparse()
	}
	if ic.TTLSec > 0 {
		b.TTL(time.Duration(ic.TTLSec) * time.Second)
	}
	if len(ic.Partial) > 0 {
		b.Partial(toDocument(ic.Partial))
	}
	return b.Definition()
}

// toDocument orders a decoded YAML map by key so rendered filters are stable.
func toDocument(m map[string]any) bson.D {
	keys := lo.Keys(m)
	sort.Strings(keys)
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		if nested, ok := v.(map[string]any); ok {
			v = toDocument(nested)
		}
		d = append(d, bson.E{Key: k, Value: v})
	}
	return d
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
