package network

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed networks.yaml
var defaultManifest []byte

// Manifest is the YAML representation of network configuration.
type Manifest struct {
	// A YAML array of networks.
	Networks []Network `yaml:"networks"`
}

// Config represents the configuration of a collection of networks. This is loaded from the
// embedded defaults and the YAML manifest file/s.
type Config struct {
	// networks is keyed by network name so that a user manifest can replace a default entry.
	networks map[string]Network
}

// NewConfig creates a new config from a slice of networks. Any duplicate names will be
// overwritten.
func NewConfig(networks []Network) *Config {
	nmap := make(map[string]Network)

	for _, network := range networks {
		nmap[network.Name] = network
	}

	return &Config{
		networks: nmap,
	}
}

// Defaults returns the built-in networks.
func Defaults() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultManifest, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default networks: %w", err)
	}

	return &cfg, nil
}

// Validate ensures that all networks are valid.
func (c *Config) Validate() error {
	for _, network := range c.Networks() {
		if err := network.Validate(); err != nil {
			return fmt.Errorf("network %q: %w", network.Name, err)
		}
	}

	return nil
}

// Networks returns all networks in the config sorted by name.
func (c *Config) Networks() []Network {
	networks := slices.Collect(maps.Values(c.networks))
	sort.Slice(networks, func(i, j int) bool { return networks[i].Name < networks[j].Name })

	return networks
}

// Names returns the sorted network names.
func (c *Config) Names() []string {
	return slices.Sorted(maps.Keys(c.networks))
}

// NetworkByName retrieves a network by its name. If the network is not found, an error listing the
// known networks is returned.
func (c *Config) NetworkByName(name string) (Network, error) {
	network, ok := c.networks[name]
	if !ok {
		return Network{}, fmt.Errorf("network %q not found in configuration (known: %v)", name, c.Names())
	}

	return network, nil
}

// Merge merges another config into the current config.
// It overwrites any networks with the same name.
func (c *Config) Merge(other *Config) {
	maps.Copy(c.networks, other.networks)
}

// MarshalYAML implements the yaml.Marshaler interface for the Config struct.
// It converts the internal map structure to a YAML format with a top-level "networks" key.
func (c *Config) MarshalYAML() (any, error) {
	node := Manifest{
		Networks: c.Networks(),
	}

	return node, nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for the Config struct.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	node := Manifest{}

	if err := value.Decode(&node); err != nil {
		return err
	}

	*c = *NewConfig(node.Networks)

	return nil
}

// transformHTTPURLs transforms the HTTP URLs of the networks in the config.
func (c *Config) transformHTTPURLs(transform URLTransformer) {
	for k, n := range c.networks {
		rpcs := slices.Clone(n.RPCs)
		for i, rpc := range rpcs {
			rpc.HTTPURL = transform(rpc.HTTPURL)

			rpcs[i] = rpc
		}
		n.RPCs = rpcs

		c.networks[k] = n
	}
}

// transformWSURLs transforms the websocket URLs of the networks in the config.
func (c *Config) transformWSURLs(transform URLTransformer) {
	for k, n := range c.networks {
		rpcs := slices.Clone(n.RPCs)
		for i, rpc := range rpcs {
			rpc.WSURL = transform(rpc.WSURL)

			rpcs[i] = rpc
		}
		n.RPCs = rpcs

		c.networks[k] = n
	}
}

// Load starts from the built-in networks and merges each file path over them by name.
//
// It accepts load options to customize the loading behavior.
func Load(filePaths []string, opts ...LoadOption) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	loadCfg := &loadConfig{}
	for _, opt := range opts {
		opt(loadCfg)
	}

	for _, fp := range filePaths {
		data, err := os.ReadFile(fp)
		if err != nil {
			return nil, fmt.Errorf("failed to read networks file: %w", err)
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal networks YAML: %w", err)
		}

		cfg.Merge(&fileCfg)
	}

	if loadCfg.HTTPURLTransformer != nil {
		cfg.transformHTTPURLs(loadCfg.HTTPURLTransformer)
	}

	if loadCfg.WSURLTransformer != nil {
		cfg.transformWSURLs(loadCfg.WSURLTransformer)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate networks configuration: %w", err)
	}

	return cfg, nil
}

// LoadOption defines a function which modifies the load configuration.
type LoadOption func(*loadConfig)

// loadConfig holds the configuration for loading the config.
type loadConfig struct {
	HTTPURLTransformer URLTransformer
	WSURLTransformer   URLTransformer
}

// URLTransformer is a function that transforms a URL.
type URLTransformer func(string) string

// WithHTTPURLTransformer transforms the HTTP URLs of the networks RPCs after loading.
func WithHTTPURLTransformer(t URLTransformer) LoadOption {
	return func(opts *loadConfig) {
		opts.HTTPURLTransformer = t
	}
}

// WithWSURLTransformer transforms the websocket URLs of the networks RPCs after loading.
func WithWSURLTransformer(t URLTransformer) LoadOption {
	return func(opts *loadConfig) {
		opts.WSURLTransformer = t
	}
}

// ExpandEnv is a URLTransformer which substitutes ${VAR} references, so that RPC API keys can be
// kept out of the manifest.
func ExpandEnv(url string) string {
	return os.ExpandEnv(url)
}
