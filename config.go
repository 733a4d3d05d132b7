package entrypoint

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/fortressi/entrypoint/set"
)

// Config describes one entry point deployment.
type Config struct {
	ChainID           string         `toml:"chain_id"`
	EntryPointAddress string         `toml:"entry_point_address"`
	Admin             string         `toml:"admin"`
	Instantiate       InstantiateMsg `toml:"instantiate"`
	Storage           StorageConfig  `toml:"storage"`
	Server            ServerConfig   `toml:"server"`
	Log               LogConfig      `toml:"log"`
}

type StorageConfig struct {
	// Backend is one of "memory", "sqlite" or "file".
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

type ServerConfig struct {
	Listen            string `toml:"listen"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		ChainID:           "entrypoint-sim-1",
		EntryPointAddress: "entry_point",
		Admin:             "admin",
		Instantiate: InstantiateMsg{
			IbcTransferContractAddress: "ibc_transfer_adapter",
		},
		Storage: StorageConfig{Backend: "memory"},
		Server:  ServerConfig{Listen: "127.0.0.1:8080", RequestsPerMinute: 120},
		Log:     LogConfig{Level: "info"},
	}
}

// FileReader reads configuration files.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

type osFileReader struct{}

func (osFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ConfigLoader loads Config files through a FileReader.
type ConfigLoader struct {
	fileReader FileReader
}

func NewConfigLoader(fileReader FileReader) *ConfigLoader {
	return &ConfigLoader{fileReader: fileReader}
}

// LoadConfig reads a TOML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (*Config, error) {
	return NewConfigLoader(osFileReader{}).Load(path)
}

func (cl *ConfigLoader) Load(path string) (*Config, error) {
	if !strings.HasSuffix(path, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}
	body, err := cl.fileReader.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(body, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the runtime cannot use.
func (c *Config) Validate() error {
	if c.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if c.EntryPointAddress == "" {
		return fmt.Errorf("entry_point_address is required")
	}
	if c.Instantiate.IbcTransferContractAddress == "" {
		return fmt.Errorf("instantiate.ibc_transfer_contract_address is required")
	}
	names := set.New[string]()
	for _, v := range c.Instantiate.SwapVenues {
		if v.Name == "" || v.AdapterContractAddress == "" {
			return fmt.Errorf("swap venue needs both name and adapter_contract_address")
		}
		if !names.Insert(v.Name) {
			return fmt.Errorf("swap venue %q configured twice", v.Name)
		}
	}
	switch c.Storage.Backend {
	case "memory":
	case "sqlite", "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Server.RequestsPerMinute < 0 {
		return fmt.Errorf("server.requests_per_minute cannot be negative")
	}
	return nil
}
