package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrUnknownChain = errors.New("unknown chain")

type SubgraphConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier"`
}

type ChainConfig struct {
	Name            string            `yaml:"-"`
	ChainID         int64             `yaml:"chain_id"`
	Subgraph        string            `yaml:"subgraph"`
	StakingSubgraph string            `yaml:"staking_subgraph"`
	StartTime       int64             `yaml:"start_time"`
	Labels          map[string]string `yaml:"labels"`
	Domains         []string          `yaml:"domains"`
}

type DBConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"database"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PublisherConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

type SchedulerConfig struct {
	Workers    int               `yaml:"workers"`
	QueueSize  int               `yaml:"queue_size"`
	JobTimeout time.Duration     `yaml:"job_timeout"` // zero runs jobs until they finish or shutdown
	Schedules  map[string]string `yaml:"schedules"`
}

type EtherscanConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type PresenterConfig struct {
	Host string `yaml:"host"`
}

type Config struct {
	Chains    map[string]*ChainConfig `yaml:"chains"`
	Subgraph  *SubgraphConfig         `yaml:"subgraph"`
	DBConfig  *DBConfig               `yaml:"postgres"`
	Redis     *RedisConfig            `yaml:"redis"`
	Publisher *PublisherConfig        `yaml:"publisher"`
	Scheduler *SchedulerConfig        `yaml:"scheduler"`
	Etherscan *EtherscanConfig        `yaml:"etherscan"`
	LogLevel  logrus.Level            `yaml:"log_level"`
	Presenter *PresenterConfig        `yaml:"presenter"`
}

var defaultSchedules = map[string]string{
	"chain":          "*/15 * * * * *",
	"revenue":        "0 0 * * * *",
	"zaps":           "0 30 * * * *",
	"staking":        "0 * * * * *",
	"dao_ownership":  "0 */10 * * * *",
	"dao_incentives": "0 */10 * * * *",
	"dao_boost":      "0 0 * * * *",
	"dao_weights":    "0 0 */6 * * *",
}

func (cfg *ChainConfig) HasDomain(domain string) bool {
	if len(cfg.Domains) == 0 {
		return true
	}
	for _, d := range cfg.Domains {
		if d == domain {
			return true
		}
	}
	return false
}

// ChainByName looks up a configured chain by its name (e.g. "ethereum").
func (cfg *Config) ChainByName(name string) (*ChainConfig, error) {
	chain, ok := cfg.Chains[name]
	if !ok {
		return nil, fmt.Errorf("chain %q: %w", name, ErrUnknownChain)
	}
	return chain, nil
}

func (cfg *Config) ChainByID(chainID int64) (*ChainConfig, error) {
	for _, chain := range cfg.Chains {
		if chain.ChainID == chainID {
			return chain, nil
		}
	}
	return nil, fmt.Errorf("chain id %d: %w", chainID, ErrUnknownChain)
}

// ChainNames returns configured chain names in a stable order.
func (cfg *Config) ChainNames() []string {
	names := make([]string, 0, len(cfg.Chains))
	for name := range cfg.Chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func readYamlConfig(rawCfg []byte) (*Config, error) {
	cfg := Config{
		LogLevel: logrus.InfoLevel,
	}
	if err := parseYaml(&cfg, rawCfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) init() error {
	if len(cfg.Chains) == 0 {
		return errors.New("at least one chain must be configured")
	}
	for name, chain := range cfg.Chains {
		chain.Name = name
		if chain.Subgraph == "" {
			return fmt.Errorf("chain %q has no subgraph endpoint", name)
		}
		labels := make(map[string]string, len(chain.Labels))
		for addr, label := range chain.Labels {
			labels[strings.ToLower(addr)] = label
		}
		chain.Labels = labels
		for _, domain := range chain.Domains {
			if _, ok := defaultSchedules[domain]; !ok {
				return fmt.Errorf("chain %q has unknown sync domain %q", name, domain)
			}
		}
	}

	if cfg.Subgraph == nil {
		cfg.Subgraph = new(SubgraphConfig)
	}
	if cfg.Subgraph.Timeout == 0 {
		cfg.Subgraph.Timeout = 10 * time.Minute
	}
	if cfg.Subgraph.MaxAttempts == 0 {
		cfg.Subgraph.MaxAttempts = 3
	}
	if cfg.Subgraph.InitialBackoff == 0 {
		cfg.Subgraph.InitialBackoff = time.Minute
	}
	if cfg.Subgraph.Multiplier == 0 {
		cfg.Subgraph.Multiplier = 1
	}
	if cfg.Subgraph.MaxBackoff == 0 {
		cfg.Subgraph.MaxBackoff = cfg.Subgraph.InitialBackoff
	}

	if cfg.Publisher == nil {
		cfg.Publisher = new(PublisherConfig)
	}
	if cfg.Publisher.MaxAttempts == 0 {
		cfg.Publisher.MaxAttempts = 3
	}
	if cfg.Publisher.RetryDelay == 0 {
		cfg.Publisher.RetryDelay = 5 * time.Second
	}

	if cfg.Scheduler == nil {
		cfg.Scheduler = new(SchedulerConfig)
	}
	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 4
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 100
	}
	schedules := make(map[string]string, len(defaultSchedules))
	for domain, spec := range defaultSchedules {
		schedules[domain] = spec
	}
	for domain, spec := range cfg.Scheduler.Schedules {
		if _, ok := defaultSchedules[domain]; !ok {
			return fmt.Errorf("unknown sync domain %q in schedules", domain)
		}
		schedules[domain] = spec
	}
	cfg.Scheduler.Schedules = schedules
	return nil
}

func ReadConfigFromFile(path string) (*Config, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file: %w", err)
	}
	return ReadConfigWithEnv(blob)
}

func ReadConfigWithEnv(rawCfg []byte) (*Config, error) {
	return ReadConfig([]byte(os.ExpandEnv(string(rawCfg))))
}

func ReadConfig(rawCfg []byte) (*Config, error) {
	cfg, err := readYamlConfig(rawCfg)
	if err != nil {
		return nil, err
	}
	if err = cfg.init(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
