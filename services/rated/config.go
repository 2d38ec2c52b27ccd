package rated

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the rate reporter daemon.
type Config struct {
	NodeURL        string        `yaml:"node_url"`
	RPCToken       string        `yaml:"rpc_token"`
	CallerAddress  string        `yaml:"caller_address"`
	PriceURL       string        `yaml:"price_url"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MetricsAddress string        `yaml:"metrics_listen"`
}

// LoadConfig reads the YAML configuration from disk and validates the result.
// The RPC token may also come from BANKCHAIN_RPC_TOKEN.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		PollInterval:   10 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	cfg.NodeURL = strings.TrimSpace(cfg.NodeURL)
	cfg.PriceURL = strings.TrimSpace(cfg.PriceURL)
	cfg.CallerAddress = strings.TrimSpace(cfg.CallerAddress)
	cfg.MetricsAddress = strings.TrimSpace(cfg.MetricsAddress)
	if cfg.RPCToken == "" {
		cfg.RPCToken = strings.TrimSpace(os.Getenv("BANKCHAIN_RPC_TOKEN"))
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
}

func (cfg *Config) validate() error {
	if cfg.NodeURL == "" {
		return fmt.Errorf("node_url is required")
	}
	if cfg.PriceURL == "" {
		return fmt.Errorf("price_url is required")
	}
	if cfg.CallerAddress == "" {
		return fmt.Errorf("caller_address is required")
	}
	if cfg.RPCToken == "" {
		return fmt.Errorf("rpc_token is required (or set BANKCHAIN_RPC_TOKEN)")
	}
	return nil
}
