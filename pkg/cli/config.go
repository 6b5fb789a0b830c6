package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/engram/pkg/adapter"
	"github.com/m-mizutani/engram/pkg/repository"
	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	configPath string

	// Repository
	dbPath      string
	tablePrefix string

	// Embedding provider
	embeddingURL    string
	embeddingAPIKey string
	embeddingModel  string
	embeddingDim    int64

	// Scope
	tenant  string
	project string

	logLevel string
}

// fileConfig mirrors the optional YAML config file. File values fill
// only fields left unset by flags and environment variables.
type fileConfig struct {
	DBPath      string `yaml:"db_path"`
	TablePrefix string `yaml:"table_prefix"`

	Embedding struct {
		URL       string `yaml:"url"`
		APIKey    string `yaml:"api_key"`
		Model     string `yaml:"model"`
		Dimension int64  `yaml:"dimension"`
	} `yaml:"embedding"`

	Tenant   string `yaml:"tenant"`
	Project  string `yaml:"project"`
	LogLevel string `yaml:"log_level"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to YAML config file",
			Sources:     cli.EnvVars("ENGRAM_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.StringFlag{
			Name:        "db-path",
			Aliases:     []string{"d"},
			Usage:       "Path to the SQLite database file",
			Sources:     cli.EnvVars("ENGRAM_DB_PATH"),
			Destination: &cfg.dbPath,
		},
		&cli.StringFlag{
			Name:        "table-prefix",
			Usage:       "Prefix for per-namespace table names",
			Sources:     cli.EnvVars("ENGRAM_TABLE_PREFIX"),
			Destination: &cfg.tablePrefix,
		},
		&cli.StringFlag{
			Name:        "tenant",
			Aliases:     []string{"t"},
			Usage:       "Tenant identifier",
			Sources:     cli.EnvVars("ENGRAM_TENANT"),
			Destination: &cfg.tenant,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Project identifier",
			Sources:     cli.EnvVars("ENGRAM_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Sources:     cli.EnvVars("ENGRAM_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// embeddingFlags returns flags for the embedding provider with destination config
func embeddingFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "embedding-url",
			Usage:       "URL of the OpenAI-compatible embeddings endpoint",
			Sources:     cli.EnvVars("ENGRAM_EMBEDDING_URL"),
			Destination: &cfg.embeddingURL,
		},
		&cli.StringFlag{
			Name:        "embedding-api-key",
			Usage:       "API key for the embedding provider",
			Sources:     cli.EnvVars("ENGRAM_EMBEDDING_API_KEY", "OPENAI_API_KEY"),
			Destination: &cfg.embeddingAPIKey,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name",
			Sources:     cli.EnvVars("ENGRAM_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "embedding-dim",
			Usage:       "Expected embedding dimension",
			Sources:     cli.EnvVars("ENGRAM_EMBEDDING_DIM"),
			Destination: &cfg.embeddingDim,
		},
	}
}

// configure merges the optional config file, installs the logger and
// returns a context carrying it. Call it once at the top of each
// command action.
func (cfg *config) configure(ctx context.Context) (context.Context, error) {
	if cfg.configPath != "" {
		data, err := os.ReadFile(cfg.configPath)
		if err != nil {
			return ctx, goerr.Wrap(err, "failed to read config file", goerr.Value("path", cfg.configPath))
		}

		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return ctx, goerr.Wrap(err, "failed to parse config file", goerr.Value("path", cfg.configPath))
		}
		cfg.merge(&fc)
	}

	if cfg.dbPath == "" {
		cfg.dbPath = "engram.db"
	}

	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)

	return logging.With(ctx, logger), nil
}

func (cfg *config) merge(fc *fileConfig) {
	if cfg.dbPath == "" {
		cfg.dbPath = fc.DBPath
	}
	if cfg.tablePrefix == "" {
		cfg.tablePrefix = fc.TablePrefix
	}
	if cfg.embeddingURL == "" {
		cfg.embeddingURL = fc.Embedding.URL
	}
	if cfg.embeddingAPIKey == "" {
		cfg.embeddingAPIKey = fc.Embedding.APIKey
	}
	if cfg.embeddingModel == "" {
		cfg.embeddingModel = fc.Embedding.Model
	}
	if cfg.embeddingDim == 0 {
		cfg.embeddingDim = fc.Embedding.Dimension
	}
	if cfg.tenant == "" {
		cfg.tenant = fc.Tenant
	}
	if cfg.project == "" {
		cfg.project = fc.Project
	}
	if cfg.logLevel == "" {
		cfg.logLevel = fc.LogLevel
	}
}

// newRepository creates a new repository instance
func (cfg *config) newRepository() (repository.Repository, error) {
	repo, err := repository.NewSQLite(cfg.dbPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newEmbedder creates a new embedding adapter instance
func (cfg *config) newEmbedder() (adapter.Embedder, error) {
	if cfg.embeddingAPIKey == "" {
		return nil, goerr.New("embedding-api-key is required")
	}

	endpoint := cfg.embeddingURL
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/embeddings"
	}

	var opts []adapter.OpenAIOption
	if cfg.embeddingModel != "" {
		opts = append(opts, adapter.WithModel(cfg.embeddingModel))
	}
	if cfg.embeddingDim > 0 {
		opts = append(opts, adapter.WithDimension(int(cfg.embeddingDim)))
	}

	return adapter.NewOpenAI(endpoint, cfg.embeddingAPIKey, opts...), nil
}

// newUseCase wires the repository and embedder into a memory UseCase
func (cfg *config) newUseCase() (*memory.UseCase, error) {
	repo, err := cfg.newRepository()
	if err != nil {
		return nil, err
	}

	embedder, err := cfg.newEmbedder()
	if err != nil {
		return nil, err
	}

	var opts []memory.Option
	if cfg.tablePrefix != "" {
		opts = append(opts, memory.WithTablePrefix(cfg.tablePrefix))
	}

	return memory.New(repo, embedder, opts...), nil
}

func (cfg *config) requireScope() error {
	if cfg.tenant == "" {
		return goerr.New("tenant is required")
	}
	if cfg.project == "" {
		return goerr.New("project is required")
	}
	return nil
}
