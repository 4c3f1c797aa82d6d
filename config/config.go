// Package config loads the deployer configuration from an optional YAML file, a dotenv file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/scholardao/scholardao-deployer/chain/evm/provider"
	"github.com/scholardao/scholardao-deployer/deployer"
)

const (
	// DefaultConfigFile is read when present and no other path is given.
	DefaultConfigFile = "deployer.yaml"
	// DefaultEnvFile is loaded when present and no other path is given.
	DefaultEnvFile = ".env"
	// DefaultNetwork is the network targeted when none is configured.
	DefaultNetwork = "opencampus"
)

// ArtifactsConfig locates compiled contracts. Dir is the Hardhat or Foundry project directory;
// empty means the working directory.
type ArtifactsConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir"`
	Contract string `mapstructure:"contract" yaml:"contract"`
}

// KMSConfig is the configuration for an AWS KMS signing key.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type KMSConfig struct {
	KeyID      string `mapstructure:"key_id" yaml:"key_id"`           // Secret: AWS KMS Key ID
	KeyRegion  string `mapstructure:"key_region" yaml:"key_region"`   // Secret: AWS KMS Key Region (e.g. us-west-1)
	AWSProfile string `mapstructure:"aws_profile" yaml:"aws_profile"` // AWS shared config profile
}

// SignerConfig selects the deployer account. Exactly one of PrivateKey, Mnemonic or KMS.KeyID must
// be set.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type SignerConfig struct {
	PrivateKey    string    `mapstructure:"private_key" yaml:"private_key"`       // Secret: hex encoded private key
	Mnemonic      string    `mapstructure:"mnemonic" yaml:"mnemonic"`             // Secret: BIP39 mnemonic phrase
	MnemonicIndex uint32    `mapstructure:"mnemonic_index" yaml:"mnemonic_index"` // Account index on m/44'/60'/0'/0
	KMS           KMSConfig `mapstructure:"kms" yaml:"kms"`
}

// ConfirmationConfig is the confirmation policy for the deployment transaction.
type ConfirmationConfig struct {
	Confirmations uint64        `mapstructure:"confirmations" yaml:"confirmations"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// GasConfig overrides gas estimation and fee suggestion. Zero keeps the node's value.
type GasConfig struct {
	Limit     uint64 `mapstructure:"limit" yaml:"limit"`
	PriceWei  uint64 `mapstructure:"price_wei" yaml:"price_wei"`
	FeeCapWei uint64 `mapstructure:"fee_cap_wei" yaml:"fee_cap_wei"`
	TipCapWei uint64 `mapstructure:"tip_cap_wei" yaml:"tip_cap_wei"`
}

// RPCConfig tunes per-call retries of the RPC client. Zero keeps the client defaults.
type RPCConfig struct {
	RetryAttempts uint          `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// Config wraps the entire configuration of the deployer.
type Config struct {
	Network      string             `mapstructure:"network" yaml:"network"`
	NetworksFile string             `mapstructure:"networks_file" yaml:"networks_file"`
	Artifacts    ArtifactsConfig    `mapstructure:"artifacts" yaml:"artifacts"`
	Signer       SignerConfig       `mapstructure:"signer" yaml:"signer"`
	Confirmation ConfirmationConfig `mapstructure:"confirmation" yaml:"confirmation"`
	Gas          GasConfig          `mapstructure:"gas" yaml:"gas"`
	RPC          RPCConfig          `mapstructure:"rpc" yaml:"rpc"`
}

// Load loads the config from the file path, falling back to env vars and defaults if the file does
// not exist. If the file exists, any env vars that are set will override the values loaded from
// the file. An empty path reads DefaultConfigFile.
func Load(filePath string) (*Config, error) {
	if filePath == "" {
		filePath = DefaultConfigFile
	}

	v := viper.New()
	v.SetConfigFile(filePath)
	setDefaults(v)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads environment variables from a dotenv file without overriding variables that are
// already set. An empty path loads DefaultEnvFile if it exists; an explicit path must exist.
func LoadDotEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	return nil
}

// Validate checks the signer selection, the confirmation policy and the gas settings.
func (c *Config) Validate() error {
	var errs []error

	if c.Network == "" {
		errs = append(errs, errors.New("network is required"))
	}

	set := 0
	for _, s := range []string{c.Signer.PrivateKey, c.Signer.Mnemonic, c.Signer.KMS.KeyID} {
		if s != "" {
			set++
		}
	}
	switch {
	case set == 0:
		errs = append(errs, errors.New(
			"no signer configured: set DEPLOYER_PRIVATE_KEY, DEPLOYER_MNEMONIC or DEPLOYER_KMS_KEY_ID",
		))
	case set > 1:
		errs = append(errs, errors.New("only one of private key, mnemonic or KMS key may be configured"))
	}
	if c.Signer.KMS.KeyID != "" && c.Signer.KMS.KeyRegion == "" {
		errs = append(errs, errors.New("KMS key region is required with a KMS key ID"))
	}

	if c.Confirmation.Confirmations == 0 {
		errs = append(errs, errors.New("confirmations must be at least 1"))
	}
	if c.Confirmation.Timeout <= 0 {
		errs = append(errs, errors.New("confirmation timeout must be positive"))
	}
	if c.Confirmation.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}

	if err := c.GasSettings().Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// GasSettings converts the gas configuration for the deployer.
func (c *Config) GasSettings() deployer.GasSettings {
	return deployer.GasSettings{
		Limit:     c.Gas.Limit,
		PriceWei:  c.Gas.PriceWei,
		FeeCapWei: c.Gas.FeeCapWei,
		TipCapWei: c.Gas.TipCapWei,
	}
}

// SignerGenerator returns the generator for the configured signer. The config must be valid.
func (c *Config) SignerGenerator() (provider.SignerGenerator, error) {
	var opts []provider.GeneratorOption
	if c.Gas.Limit > 0 {
		opts = append(opts, provider.WithGasLimit(c.Gas.Limit))
	}

	switch {
	case c.Signer.PrivateKey != "":
		return provider.TransactorFromRaw(c.Signer.PrivateKey, opts...), nil
	case c.Signer.Mnemonic != "":
		return provider.TransactorFromMnemonic(c.Signer.Mnemonic, c.Signer.MnemonicIndex, opts...), nil
	case c.Signer.KMS.KeyID != "":
		return provider.TransactorFromKMS(c.Signer.KMS.KeyID, c.Signer.KMS.KeyRegion, c.Signer.KMS.AWSProfile)
	default:
		return nil, errors.New("no signer configured")
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network", DefaultNetwork)
	v.SetDefault("artifacts.contract", deployer.DefaultContract)
	v.SetDefault("confirmation.confirmations", 1)
	v.SetDefault("confirmation.timeout", 5*time.Minute)
	v.SetDefault("confirmation.poll_interval", time.Second)
}

var (
	// envBindings maps config keys to the environment variables that can provide them.
	//
	// The first element in the list is the preferred environment variable name, the second (if
	// present) is the name used by Hardhat style .env files, so that an existing project's .env
	// keeps working.
	envBindings = map[string][]string{
		"network":                    {"DEPLOYER_NETWORK", "HARDHAT_NETWORK"},
		"networks_file":              {"DEPLOYER_NETWORKS_FILE"},
		"artifacts.dir":              {"DEPLOYER_ARTIFACTS_DIR"},
		"artifacts.contract":         {"DEPLOYER_CONTRACT"},
		"signer.private_key":         {"DEPLOYER_PRIVATE_KEY", "PRIVATE_KEY"},
		"signer.mnemonic":            {"DEPLOYER_MNEMONIC", "MNEMONIC"},
		"signer.mnemonic_index":      {"DEPLOYER_MNEMONIC_INDEX"},
		"signer.kms.key_id":          {"DEPLOYER_KMS_KEY_ID", "KMS_DEPLOYER_KEY_ID"},
		"signer.kms.key_region":      {"DEPLOYER_KMS_KEY_REGION", "KMS_DEPLOYER_KEY_REGION"},
		"signer.kms.aws_profile":     {"DEPLOYER_KMS_AWS_PROFILE", "AWS_PROFILE"},
		"confirmation.confirmations": {"DEPLOYER_CONFIRMATIONS"},
		"confirmation.timeout":       {"DEPLOYER_TIMEOUT"},
		"confirmation.poll_interval": {"DEPLOYER_POLL_INTERVAL"},
		"gas.limit":                  {"DEPLOYER_GAS_LIMIT"},
		"gas.price_wei":              {"DEPLOYER_GAS_PRICE_WEI"},
		"gas.fee_cap_wei":            {"DEPLOYER_GAS_FEE_CAP_WEI"},
		"gas.tip_cap_wei":            {"DEPLOYER_GAS_TIP_CAP_WEI"},
		"rpc.retry_attempts":         {"DEPLOYER_RPC_RETRY_ATTEMPTS"},
		"rpc.retry_delay":            {"DEPLOYER_RPC_RETRY_DELAY"},
	}
)

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
