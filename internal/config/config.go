// Package config loads txagent settings from flags, TXAGENT_* environment
// variables and an optional YAML file through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
	"github.com/yolodolo42/txagent/internal/exec"
	"github.com/yolodolo42/txagent/internal/llm"
	"github.com/yolodolo42/txagent/internal/tx"
	"github.com/yolodolo42/txagent/internal/wallet"
)

const (
	EnvPrefix = "TXAGENT"

	SignerEnv      = "env"
	SignerKeystore = "keystore"
	SignerPrompt   = "prompt"
)

type Config struct {
	ChainsFile string         `mapstructure:"chains_file"`
	DataDir    string         `mapstructure:"data_dir"`
	Log        LogConfig      `mapstructure:"log"`
	Executor   ExecutorConfig `mapstructure:"executor"`
	Signer     SignerConfig   `mapstructure:"signer"`
	Policy     PolicyConfig   `mapstructure:"policy"`
	LLM        LLMConfig      `mapstructure:"llm"`
	Journal    JournalConfig  `mapstructure:"journal"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ExecutorConfig struct {
	Workers int `mapstructure:"workers"`
}

// SignerConfig selects where the signing key comes from. No key is ever read from the config file itself.
type SignerConfig struct {
	Source      string `mapstructure:"source"`
	Env         string `mapstructure:"env"`
	Address     string `mapstructure:"address"`
	PasswordEnv string `mapstructure:"password_env"`
}

type PolicyConfig struct {
	AllowTo []string `mapstructure:"allow_to"`
	DenyTo  []string `mapstructure:"deny_to"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
}

type JournalConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultDataDir is $HOME/.txagent, or .txagent when there is no home directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".txagent"
	}
	return filepath.Join(home, ".txagent")
}

// SetDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("chains_file", "configs/chains.yaml")
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("executor.workers", exec.DefaultWorkers)
	v.SetDefault("signer.source", SignerEnv)
	v.SetDefault("signer.env", EnvPrefix+"_PRIVATE_KEY")
	v.SetDefault("signer.address", "")
	v.SetDefault("signer.password_env", EnvPrefix+"_KEYSTORE_PASSWORD")
	v.SetDefault("policy.allow_to", []string{})
	v.SetDefault("policy.deny_to", []string{})
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("journal.enabled", true)
}

// NewViper returns a viper instance with defaults and TXAGENT_* env binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads cfgFile, or config.yaml from the data dir and the working directory
// when cfgFile is empty. A missing default config file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(expandHome(v.GetString("data_dir")))
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.ChainsFile = expandHome(cfg.ChainsFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Signer.Source {
	case SignerEnv, SignerKeystore, SignerPrompt:
	default:
		return fmt.Errorf("invalid signer.source %q: want env, keystore or prompt", c.Signer.Source)
	}
	if c.Signer.Source == SignerKeystore && !common.IsHexAddress(c.Signer.Address) {
		return fmt.Errorf("signer.address must be a keystore account address when signer.source is keystore")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q: want text or json", c.Log.Format)
	}
	if c.Executor.Workers < 1 {
		return fmt.Errorf("executor.workers must be at least 1, got %d", c.Executor.Workers)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	return nil
}

// RecipientPolicy parses the allow and deny lists.
func (c *Config) RecipientPolicy() (tx.Policy, error) {
	allow, err := tx.ParseAddressList("policy.allow_to", c.Policy.AllowTo)
	if err != nil {
		return tx.Policy{}, err
	}
	deny, err := tx.ParseAddressList("policy.deny_to", c.Policy.DenyTo)
	if err != nil {
		return tx.Policy{}, err
	}
	return tx.Policy{AllowTo: allow, DenyTo: deny}, nil
}

// KeySource builds the configured signing key source.
func (c *Config) KeySource() (wallet.KeySource, error) {
	switch c.Signer.Source {
	case SignerEnv:
		return wallet.EnvSource{Var: c.Signer.Env}, nil
	case SignerPrompt:
		return &wallet.PromptSource{Prompt: "Private key (hex): "}, nil
	case SignerKeystore:
		km, err := wallet.NewKeystoreManager(c.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open keystore: %w", err)
		}
		passwordEnv := c.Signer.PasswordEnv
		return &wallet.KeystoreSource{
			Manager: km,
			Address: common.HexToAddress(c.Signer.Address),
			Password: func() (string, error) {
				if p := os.Getenv(passwordEnv); p != "" {
					return p, nil
				}
				return wallet.ReadHidden("Keystore password: ")
			},
		}, nil
	default:
		return nil, fmt.Errorf("invalid signer.source %q", c.Signer.Source)
	}
}

func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider: llm.ProviderID(c.LLM.Provider),
		Model:    c.LLM.Model,
		BaseURL:  c.LLM.BaseURL,
		APIKey:   c.LLM.APIKey,
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
