package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholardao/scholardao-deployer/deployer"
)

const (
	testMnemonic   = "test test test test test test test test test test test junk"
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

var (
	// fileCfg is the config that is loaded from the testdata/config.yml file.
	fileCfg = &Config{
		Network:      "localhost",
		NetworksFile: "./networks.yaml",
		Artifacts: ArtifactsConfig{
			Dir:      "./artifacts",
			Contract: "contracts/SimpleScholarDAO.sol:SimpleScholarDAO",
		},
		Signer: SignerConfig{
			Mnemonic:      testMnemonic,
			MnemonicIndex: 1,
		},
		Confirmation: ConfirmationConfig{
			Confirmations: 3,
			Timeout:       2 * time.Minute,
			PollInterval:  500 * time.Millisecond,
		},
		Gas: GasConfig{
			Limit:     3_000_000,
			FeeCapWei: 20_000_000_000,
			TipCapWei: 1_000_000_000,
		},
		RPC: RPCConfig{
			RetryAttempts: 5,
			RetryDelay:    2 * time.Second,
		},
	}

	// defaultCfg is the config produced when neither a file nor env vars are present.
	defaultCfg = &Config{
		Network:   DefaultNetwork,
		Artifacts: ArtifactsConfig{Contract: deployer.DefaultContract},
		Confirmation: ConfirmationConfig{
			Confirmations: 1,
			Timeout:       5 * time.Minute,
			PollInterval:  time.Second,
		},
	}

	envVars = map[string]string{
		"DEPLOYER_NETWORK":            "opencampus",
		"DEPLOYER_NETWORKS_FILE":      "/etc/networks.yaml",
		"DEPLOYER_ARTIFACTS_DIR":      "/srv/out",
		"DEPLOYER_CONTRACT":           "Vault",
		"DEPLOYER_PRIVATE_KEY":        "0x123",
		"DEPLOYER_MNEMONIC_INDEX":     "4",
		"DEPLOYER_KMS_KEY_ID":         "f1a2b3c4",
		"DEPLOYER_KMS_KEY_REGION":     "us-west-1",
		"DEPLOYER_KMS_AWS_PROFILE":    "deploy",
		"DEPLOYER_CONFIRMATIONS":      "2",
		"DEPLOYER_TIMEOUT":            "90s",
		"DEPLOYER_POLL_INTERVAL":      "250ms",
		"DEPLOYER_GAS_LIMIT":          "100000",
		"DEPLOYER_GAS_PRICE_WEI":      "7",
		"DEPLOYER_RPC_RETRY_ATTEMPTS": "3",
		"DEPLOYER_RPC_RETRY_DELAY":    "1s",
	}

	legacyEnvVars = map[string]string{
		"HARDHAT_NETWORK":         "opencampus",
		"PRIVATE_KEY":             "0x123",
		"MNEMONIC":                testMnemonic,
		"KMS_DEPLOYER_KEY_ID":     "f1a2b3c4",
		"KMS_DEPLOYER_KEY_REGION": "us-west-1",
		"AWS_PROFILE":             "deploy",
	}
)

// clearEnv blanks every bound variable so that the test environment does not leak into the
// config. Tests using it cannot run in parallel since t.Setenv modifies the process environment.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, envs := range envBindings {
		for _, env := range envs {
			t.Setenv(env, "")
		}
	}
}

func setupEnvVars(t *testing.T, envVars map[string]string) {
	t.Helper()

	for key, value := range envVars {
		t.Setenv(key, value)
	}
}

func Test_Load(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	tests := []struct {
		name     string
		giveEnv  map[string]string
		givePath string
		want     *Config
		wantErr  string
	}{
		{
			name:     "load from file",
			givePath: "./testdata/config.yml",
			want:     fileCfg,
		},
		{
			name:     "defaults from empty file",
			givePath: "./testdata/empty.yml",
			want:     defaultCfg,
		},
		{
			name:     "defaults when file not found",
			givePath: "./testdata/missing.yml",
			want:     defaultCfg,
		},
		{
			name:     "override with env",
			giveEnv:  envVars,
			givePath: "./testdata/config.yml",
			want: &Config{
				Network:      "opencampus",
				NetworksFile: "/etc/networks.yaml",
				Artifacts:    ArtifactsConfig{Dir: "/srv/out", Contract: "Vault"},
				Signer: SignerConfig{
					PrivateKey:    "0x123",
					Mnemonic:      testMnemonic,
					MnemonicIndex: 4,
					KMS:           KMSConfig{KeyID: "f1a2b3c4", KeyRegion: "us-west-1", AWSProfile: "deploy"},
				},
				Confirmation: ConfirmationConfig{
					Confirmations: 2,
					Timeout:       90 * time.Second,
					PollInterval:  250 * time.Millisecond,
				},
				Gas: GasConfig{
					Limit:     100_000,
					PriceWei:  7,
					FeeCapWei: 20_000_000_000,
					TipCapWei: 1_000_000_000,
				},
				RPC: RPCConfig{RetryAttempts: 3, RetryDelay: time.Second},
			},
		},
		{
			name:     "legacy env names",
			giveEnv:  legacyEnvVars,
			givePath: "./testdata/missing.yml",
			want: &Config{
				Network:   "opencampus",
				Artifacts: ArtifactsConfig{Contract: deployer.DefaultContract},
				Signer: SignerConfig{
					PrivateKey: "0x123",
					Mnemonic:   testMnemonic,
					KMS:        KMSConfig{KeyID: "f1a2b3c4", KeyRegion: "us-west-1", AWSProfile: "deploy"},
				},
				Confirmation: defaultCfg.Confirmation,
			},
		},
		{
			name:     "malformed file",
			givePath: "./testdata/malformed.yml",
			wantErr:  "failed to read config file ./testdata/malformed.yml",
		},
	}

	for _, tt := range tests { //nolint:paralleltest // uses t.Setenv
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			setupEnvVars(t, tt.giveEnv)

			got, err := Load(tt.givePath)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_Load_preferredOverLegacy(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	clearEnv(t)
	setupEnvVars(t, map[string]string{
		"DEPLOYER_PRIVATE_KEY": "0xnew",
		"PRIVATE_KEY":          "0xold",
	})

	got, err := Load("./testdata/missing.yml")
	require.NoError(t, err)
	assert.Equal(t, "0xnew", got.Signer.PrivateKey)
}

func Test_LoadDotEnv(t *testing.T) { //nolint:paralleltest // modifies the process environment
	clearEnv(t)
	// godotenv never overrides variables which are already set, even to an empty value.
	for _, key := range []string{"PRIVATE_KEY", "DEPLOYER_NETWORK"} {
		require.NoError(t, os.Unsetenv(key))
	}

	require.NoError(t, LoadDotEnv("./testdata/test.env"))

	got, err := Load("./testdata/missing.yml")
	require.NoError(t, err)
	assert.Equal(t, "localhost", got.Network)
	assert.Equal(t, "0x"+testPrivKeyHex, got.Signer.PrivateKey)
}

func Test_LoadDotEnv_missing(t *testing.T) {
	t.Parallel()

	err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "failed to load env file")
}

func Test_Config_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := *defaultCfg
		cfg.Signer = SignerConfig{PrivateKey: testPrivKeyHex}

		return &cfg
	}

	tests := []struct {
		name    string
		give    func(*Config)
		wantErr []string
	}{
		{
			name: "valid private key",
		},
		{
			name: "valid mnemonic",
			give: func(c *Config) { c.Signer = SignerConfig{Mnemonic: testMnemonic} },
		},
		{
			name: "valid kms",
			give: func(c *Config) { c.Signer = SignerConfig{KMS: KMSConfig{KeyID: "k", KeyRegion: "us-west-1"}} },
		},
		{
			name:    "no signer",
			give:    func(c *Config) { c.Signer = SignerConfig{} },
			wantErr: []string{"no signer configured"},
		},
		{
			name:    "two signers",
			give:    func(c *Config) { c.Signer.Mnemonic = testMnemonic },
			wantErr: []string{"only one of private key, mnemonic or KMS key may be configured"},
		},
		{
			name:    "kms without region",
			give:    func(c *Config) { c.Signer = SignerConfig{KMS: KMSConfig{KeyID: "k"}} },
			wantErr: []string{"KMS key region is required"},
		},
		{
			name: "bad confirmation policy",
			give: func(c *Config) {
				c.Confirmation = ConfirmationConfig{}
			},
			wantErr: []string{
				"confirmations must be at least 1",
				"confirmation timeout must be positive",
				"poll interval must be positive",
			},
		},
		{
			name:    "mixed gas",
			give:    func(c *Config) { c.Gas = GasConfig{PriceWei: 1, FeeCapWei: 2} },
			wantErr: []string{"gas price cannot be combined"},
		},
		{
			name:    "no network",
			give:    func(c *Config) { c.Network = "" },
			wantErr: []string{"network is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			if tt.give != nil {
				tt.give(cfg)
			}

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

func Test_Config_GasSettings(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		deployer.GasSettings{Limit: 3_000_000, FeeCapWei: 20_000_000_000, TipCapWei: 1_000_000_000},
		fileCfg.GasSettings(),
	)
}

func Test_Config_SignerGenerator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		give     SignerConfig
		wantAddr string
		wantErr  string
	}{
		{
			name:     "private key",
			give:     SignerConfig{PrivateKey: testPrivKeyHex},
			wantAddr: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		},
		{
			name:     "mnemonic index 1",
			give:     SignerConfig{Mnemonic: testMnemonic, MnemonicIndex: 1},
			wantAddr: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		},
		{
			name:    "none",
			wantErr: "no signer configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{Signer: tt.give}

			gen, err := cfg.SignerGenerator()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			addr, err := gen.Address(t.Context())
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, addr.Hex())
		})
	}
}
