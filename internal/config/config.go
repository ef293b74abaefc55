// Package config loads tool configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything tunable about the pipeline and its backends.
type Config struct {
	// DBPath is the SQLite store path. Empty means "discover" (env, flag,
	// walk-up, XDG), handled by the CLI layer.
	DBPath string `yaml:"db_path"`

	LLM struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"llm"`

	Embedding struct {
		Host  string `yaml:"host"`
		Model string `yaml:"model"`
	} `yaml:"embedding"`

	Enrich struct {
		BatchSize int           `yaml:"batch_size"`
		ItemDelay time.Duration `yaml:"item_delay"`
		Cooldown  time.Duration `yaml:"cooldown"`
	} `yaml:"enrich"`

	// ConnectionThreshold is the minimum cosine similarity for an
	// auto-generated link.
	ConnectionThreshold float32 `yaml:"connection_threshold"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

func defaults() Config {
	var c Config
	c.LLM.BaseURL = "https://api.openai.com"
	c.LLM.Model = "gpt-4o-mini"
	c.Embedding.Host = "http://localhost:11434"
	c.Embedding.Model = "nomic-embed-text"
	c.Enrich.BatchSize = 10
	c.Enrich.ItemDelay = 4 * time.Second
	c.Enrich.Cooldown = 5 * time.Minute
	c.ConnectionThreshold = 0.70
	c.Server.Addr = "127.0.0.1:8787"
	return c
}

// Load reads the config file at path if it exists, then applies environment
// overrides. A missing file is not an error: defaults plus env apply.
func Load(path string) (*Config, error) {
	c := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &c); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	applyEnv(&c)
	return &c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("CORTEX_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("CORTEX_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("CORTEX_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("CORTEX_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("CORTEX_EMBED_HOST"); v != "" {
		c.Embedding.Host = v
	}
	if v := os.Getenv("CORTEX_EMBED_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("CORTEX_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
}
