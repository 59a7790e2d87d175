// Package config loads one guardian's node configuration: the local
// storage path, which module instances it runs, the federation's
// threshold-signing public-key set, and archive/logging settings. The
// BFT transport in front of the node carries its own configuration; none
// of it lives here.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds a single guardian's node configuration.
type Config struct {
	Node       NodeConfig       `mapstructure:"node"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Modules    ModulesConfig    `mapstructure:"modules"`
	Federation FederationConfig `mapstructure:"federation"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// NodeConfig identifies this guardian within the federation.
type NodeConfig struct {
	PeerID  uint16 `mapstructure:"peer_id"`
	DataDir string `mapstructure:"data_dir"`
}

// StorageConfig configures the Badger-backed transactional KV store.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ModulesConfig lists the module kinds this node instantiates, keyed by
// the module instance id they bind to.
type ModulesConfig struct {
	Instances []ModuleInstanceConfig `mapstructure:"instances"`
}

// ModuleInstanceConfig binds one module instance id to the module kind
// it runs.
type ModuleInstanceConfig struct {
	Instance uint16 `mapstructure:"instance"`
	Kind     string `mapstructure:"kind"`
}

// FederationConfig describes the guardian set this node signs epochs
// with: every peer's Ed25519 public key (hex-encoded) and the number of
// valid shares required before an epoch's hash is considered signed.
type FederationConfig struct {
	Threshold int                    `mapstructure:"threshold"`
	Peers     []FederationPeerConfig `mapstructure:"peers"`
}

// FederationPeerConfig is one guardian's public identity in the
// federation's threshold-signing set.
type FederationPeerConfig struct {
	PeerID    uint16 `mapstructure:"peer_id"`
	PublicKey string `mapstructure:"public_key"`
}

// ArchiveConfig configures the best-effort MinIO/S3 epoch-history
// archiver. Archival is disabled when Endpoint is empty.
type ArchiveConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LoggingConfig configures this node's log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// DefaultConfig returns the configuration a freshly initialized node
// starts from before any file or environment override is applied.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			PeerID:  0,
			DataDir: "./data",
		},
		Storage: StorageConfig{
			Path: "./data/db",
		},
		Modules: ModulesConfig{
			Instances: nil,
		},
		Federation: FederationConfig{
			Threshold: 1,
			Peers:     nil,
		},
		Archive: ArchiveConfig{
			Endpoint:  "",
			Bucket:    "fedicore-epochs",
			AccessKey: "",
			SecretKey: "",
			UseSSL:    false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadConfig reads configPath (if non-empty) over DefaultConfig's
// values, then layers in FEDICORE_-prefixed environment variables.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	v.SetDefault("node.peer_id", cfg.Node.PeerID)
	v.SetDefault("node.data_dir", cfg.Node.DataDir)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("federation.threshold", cfg.Federation.Threshold)
	v.SetDefault("archive.endpoint", cfg.Archive.Endpoint)
	v.SetDefault("archive.bucket", cfg.Archive.Bucket)
	v.SetDefault("archive.access_key", cfg.Archive.AccessKey)
	v.SetDefault("archive.secret_key", cfg.Archive.SecretKey)
	v.SetDefault("archive.use_ssl", cfg.Archive.UseSSL)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetEnvPrefix("FEDICORE")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return cfg, nil
}
