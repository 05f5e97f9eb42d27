package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ragineer/internal/chunker"
)

// LLMConfig points at one OpenAI-compatible or Ollama endpoint.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type IndexConfig struct {
	Path string `yaml:"path"`
}

type Config struct {
	DatabaseDSN      string         `yaml:"database_dsn"`
	DatabasePassword string         `yaml:"database_password"`
	Embedding        LLMConfig      `yaml:"embedding"`
	Inference        LLMConfig      `yaml:"inference"`
	Chunking         ChunkingConfig `yaml:"chunking"`
	Index            IndexConfig    `yaml:"index"`
	TopK             int            `yaml:"top_k"`
}

// LoadConfig reads the YAML config at path. A .env file, when present, is
// loaded first; secrets set in the environment override the file so keys
// never have to live in the YAML.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.DatabasePassword = v
	}
	if v := os.Getenv("EMBEDDING_KEY"); v != "" {
		cfg.Embedding.Key = v
	}
	if v := os.Getenv("INFERENCE_KEY"); v != "" {
		cfg.Inference.Key = v
	}

	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = chunker.DefaultSize
		cfg.Chunking.Overlap = chunker.DefaultOverlap
	}
	if cfg.TopK == 0 {
		cfg.TopK = 5
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "./data/index.gob"
	}
	return &cfg, nil
}
