package pipeline

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/store"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// StorageBackend selects the artifact store implementation.
type StorageBackend string

const (
	BackendFilesystem StorageBackend = "filesystem"
	BackendDuckDB     StorageBackend = "duckdb"
)

// StorageConfig configures the artifact store. Root is the artifact
// directory for the filesystem backend; Database is the DuckDB path (or
// ":memory:") for the duckdb backend.
type StorageConfig struct {
	Backend  StorageBackend `yaml:"backend" json:"backend" jsonschema:"title=Backend,description=Artifact store implementation,enum=filesystem,enum=duckdb" validate:"required,oneof=filesystem duckdb"`
	Root     string         `yaml:"root" json:"root" jsonschema:"title=Root,description=Artifact directory for the filesystem backend" validate:"required_if=Backend filesystem"`
	Database string         `yaml:"database" json:"database" jsonschema:"title=Database,description=DuckDB database path for the duckdb backend" validate:"required_if=Backend duckdb"`
}

// APIConfig configures the upstream market data API.
type APIConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url" jsonschema:"title=Base URL,description=API root; empty selects the public CoinGecko endpoint"`
	Key     string `yaml:"key" json:"key" jsonschema:"title=API Key,description=Optional API key for the authenticated rate tier"`
}

// Config is the pipeline configuration loaded from YAML.
type Config struct {
	Storage           StorageConfig `yaml:"storage" json:"storage" jsonschema:"title=Storage" validate:"required"`
	API               APIConfig     `yaml:"api" json:"api" jsonschema:"title=API"`
	Assets            []string      `yaml:"assets" json:"assets" jsonschema:"title=Assets,description=CoinGecko asset identifiers to process" validate:"required,min=1,dive,required"`
	HorizonSteps      int           `yaml:"horizon_steps" json:"horizon_steps" jsonschema:"title=Horizon Steps,description=Forecast horizon in cadence units,minimum=2" validate:"required,min=2"`
	FetchDelaySeconds int           `yaml:"fetch_delay_seconds" json:"fetch_delay_seconds" jsonschema:"title=Fetch Delay,description=Pause between per-asset fetches in seconds,minimum=0" validate:"min=0"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return ParseConfig(data)
}

// ParseConfig parses and validates YAML configuration bytes.
func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return config, nil
}

// GenerateSchema generates the JSON schema for the configuration file.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}

	return reflector.Reflect(c), nil
}

// OpenStore opens the artifact store the configuration selects.
func (c *Config) OpenStore(log *logger.Logger) (store.ArtifactStore, error) {
	switch c.Storage.Backend {
	case BackendFilesystem:
		return store.NewFileSystemStore(c.Storage.Root, log)
	case BackendDuckDB:
		return store.NewDuckDBStore(c.Storage.Database, log)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown storage backend %q", c.Storage.Backend)
	}
}

// FetchDelay returns the inter-asset fetch pause.
func (c *Config) FetchDelay() time.Duration {
	return time.Duration(c.FetchDelaySeconds) * time.Second
}
