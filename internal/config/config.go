package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("ontograph: invalid config")

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type MemgraphConfig struct {
	// Enabled turns on graph export; the pipeline runs offline otherwise.
	Enabled   bool   `toml:"enabled"`
	URI       string `toml:"uri"`
	User      string `toml:"user"`
	Password  string `toml:"password"`
	BatchSize int    `toml:"batch_size"`
}

type LogConfig struct {
	Mode string `toml:"mode"`
}

type ServerConfig struct {
	Port         string `toml:"port"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

type StorageConfig struct {
	DataDir        string `toml:"data_dir"`
	Model          string `toml:"model"`
	CheckpointPath string `toml:"checkpoint_path"`
	ReferenceKB    string `toml:"reference_kb"`
}

type HierarchyConfig struct {
	LexiconPath string `toml:"lexicon_path"`
}

type ConsolidationConfig struct {
	// Equivalence selects the node dedupe policy: exact, token, fuzzy, embedding or llm.
	Equivalence        string   `toml:"equivalence"`
	AliasPath          string   `toml:"alias_path"`
	TokenThreshold     float64  `toml:"token_threshold"`
	EmbeddingThreshold float64  `toml:"embedding_threshold"`
	SelfLoopWhitelist  []string `toml:"self_loop_whitelist"`
	Workers            int      `toml:"workers"`
}

type EvaluationConfig struct {
	PartialThreshold float64  `toml:"partial_threshold"`
	LookupTimeout    Duration `toml:"lookup_timeout"`
	MaxRetries       uint     `toml:"max_retries"`
	BatchSize        int      `toml:"batch_size"`
	CandidateLimit   int      `toml:"candidate_limit"`
	// Workers bounds concurrent reference KB lookups.
	Workers int `toml:"workers"`
}

// Duration decodes TOML strings such as "5s" or "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	LLM           LLMConfig           `toml:"llm"`
	Memgraph      MemgraphConfig      `toml:"memgraph"`
	Log           LogConfig           `toml:"log"`
	Server        ServerConfig        `toml:"server"`
	Storage       StorageConfig       `toml:"storage"`
	Hierarchy     HierarchyConfig     `toml:"hierarchy"`
	Consolidation ConsolidationConfig `toml:"consolidation"`
	Evaluation    EvaluationConfig    `toml:"evaluation"`
}

// Default returns a config that runs the whole pipeline offline.
func Default() *Config {
	return &Config{
		Memgraph: MemgraphConfig{URI: "bolt://localhost:7687", BatchSize: 500},
		Log:      LogConfig{Mode: "development"},
		Server:   ServerConfig{Port: "8080", MaxBodyBytes: 32 << 20},
		Storage: StorageConfig{
			DataDir:        "data",
			Model:          "default",
			CheckpointPath: "data/checkpoints.db",
		},
		Consolidation: ConsolidationConfig{
			Equivalence:        "exact",
			TokenThreshold:     0.8,
			EmbeddingThreshold: 0.9,
			Workers:            8,
		},
		Evaluation: EvaluationConfig{
			PartialThreshold: 0.5,
			LookupTimeout:    Duration(5 * time.Second),
			MaxRetries:       3,
			BatchSize:        50,
			CandidateLimit:   10,
			Workers:          8,
		},
	}
}

// Load reads a TOML file over the defaults, so a partial file is valid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// ApplyEnv overrides file values with environment variables when set.
func (c *Config) ApplyEnv() {
	str := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str(&c.LLM.Provider, "LLM_PROVIDER")
	str(&c.LLM.Model, "LLM_MODEL")
	str(&c.LLM.EmbeddingModel, "LLM_EMBEDDING_MODEL")
	str(&c.LLM.APIKey, "LLM_API_KEY")
	str(&c.LLM.BaseURL, "LLM_BASE_URL")
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
		c.Memgraph.Enabled = true
	}
	str(&c.Memgraph.User, "MEMGRAPH_USER")
	str(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	str(&c.Storage.DataDir, "ONTOGRAPH_DATA_DIR")
	str(&c.Storage.Model, "ONTOGRAPH_MODEL")
	str(&c.Log.Mode, "LOG_MODE")
	str(&c.Server.Port, "PORT")
	if v := os.Getenv("ONTOGRAPH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Consolidation.Workers = n
		}
	}
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	unit := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, v)
		}
		return nil
	}
	if err := unit("consolidation.token_threshold", c.Consolidation.TokenThreshold); err != nil {
		return err
	}
	if err := unit("consolidation.embedding_threshold", c.Consolidation.EmbeddingThreshold); err != nil {
		return err
	}
	if err := unit("evaluation.partial_threshold", c.Evaluation.PartialThreshold); err != nil {
		return err
	}
	switch c.Consolidation.Equivalence {
	case "exact", "token", "fuzzy", "embedding", "llm":
	default:
		return fmt.Errorf("%w: unknown consolidation.equivalence %q", ErrInvalidConfig, c.Consolidation.Equivalence)
	}
	if c.Consolidation.Workers < 1 {
		return fmt.Errorf("%w: consolidation.workers must be positive", ErrInvalidConfig)
	}
	if c.Evaluation.Workers < 1 {
		return fmt.Errorf("%w: evaluation.workers must be positive", ErrInvalidConfig)
	}
	if c.Evaluation.LookupTimeout <= 0 {
		return fmt.Errorf("%w: evaluation.lookup_timeout must be positive", ErrInvalidConfig)
	}
	if c.Evaluation.BatchSize < 1 {
		return fmt.Errorf("%w: evaluation.batch_size must be positive", ErrInvalidConfig)
	}
	if c.Storage.Model == "" {
		return fmt.Errorf("%w: storage.model is required", ErrInvalidConfig)
	}
	return nil
}
