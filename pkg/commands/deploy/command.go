package deploy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/scholardao/scholardao-deployer/config"
	"github.com/scholardao/scholardao-deployer/deployer"
	"github.com/scholardao/scholardao-deployer/operations"
	"github.com/scholardao/scholardao-deployer/pkg/logger"
)

// Config configures the deploy command.
type Config struct {
	// Logger receives progress logs. When nil, a console logger writing to stderr is created,
	// at debug level if --verbose is set.
	Logger logger.Logger
	// Deps are the injectable dependencies. Nil fields use production defaults.
	Deps Deps
}

type flags struct {
	network       string
	configPath    string
	envFile       string
	networksFile  string
	artifactsDir  string
	contract      string
	confirmations uint64
	timeout       time.Duration
	reportPath    string
	verbose       bool
}

// NewCommand creates the deploy command.
//
// Usage:
//
//	cmd := deploy.NewCommand(deploy.Config{})
//	cmd.SetOut(os.Stdout)
//	err := cmd.ExecuteContext(ctx)
func NewCommand(cfg Config) *cobra.Command {
	cfg.Deps.applyDefaults()

	var f flags

	cmd := &cobra.Command{
		Use:   "deploy-scholardao",
		Short: "Deploy the SimpleScholarDAO contract",
		Long: `Deploys the compiled SimpleScholarDAO contract without constructor arguments,
waits for confirmation and prints the contract and admin addresses.

The signer is read from DEPLOYER_PRIVATE_KEY (or PRIVATE_KEY), DEPLOYER_MNEMONIC
(or MNEMONIC) or DEPLOYER_KMS_KEY_ID, including values from a .env file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, cfg, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.network, "network", "n", "", "Network to deploy to (default from config, then \"opencampus\")")
	fs.StringVarP(&f.configPath, "config", "c", "", "Config file path (default \"deployer.yaml\" if present)")
	fs.StringVar(&f.envFile, "env-file", "", "Dotenv file to load (default \".env\" if present)")
	fs.StringVar(&f.networksFile, "networks", "", "Networks manifest merged over the built-in networks")
	fs.StringVar(&f.artifactsDir, "artifacts", "", "Hardhat or Foundry project directory (default working directory)")
	fs.StringVar(&f.contract, "contract", "", "Contract name or fully qualified name (default \"SimpleScholarDAO\")")
	fs.Uint64Var(&f.confirmations, "confirmations", 0, "Blocks to wait for, including the inclusion block (default 1)")
	fs.DurationVar(&f.timeout, "timeout", 0, "Maximum time to wait for confirmation (default 5m)")
	fs.StringVarP(&f.reportPath, "report", "o", "", "Write a JSON deployment report to this path")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func run(cmd *cobra.Command, cfg Config, f flags) error {
	ctx := cmd.Context()
	deps := cfg.Deps

	lggr := cfg.Logger
	if lggr == nil {
		lcfg := logger.Config{Level: zapcore.InfoLevel, Console: true}
		if f.verbose {
			lcfg.Level = zapcore.DebugLevel
		}

		var err error
		if lggr, err = lcfg.New(); err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() { _ = lggr.Sync() }()
	}

	if err := deps.EnvLoader(f.envFile); err != nil {
		return err
	}

	dcfg, err := deps.ConfigLoader(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd.Flags(), f, dcfg)

	if err = dcfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var networkFiles []string
	if dcfg.NetworksFile != "" {
		networkFiles = append(networkFiles, dcfg.NetworksFile)
	}
	nets, err := deps.NetworksLoader(networkFiles)
	if err != nil {
		return fmt.Errorf("failed to load networks: %w", err)
	}
	net, err := nets.NetworkByName(dcfg.Network)
	if err != nil {
		return err
	}

	registry, err := deps.RegistryLoader(dcfg.Artifacts.Dir)
	if err != nil {
		return fmt.Errorf("failed to load artifacts: %w", err)
	}

	out := cmd.OutOrStdout()
	name := contractName(dcfg.Artifacts.Contract)
	fmt.Fprintf(out, "Deploying %s contract to %s...\n", name, net.Title())

	chain, closeChain, err := deps.ChainLoader(ctx, lggr, dcfg, net)
	if err != nil {
		return fmt.Errorf("failed to connect to network %s: %w", net.Name, err)
	}
	defer closeChain()

	b := operations.NewBundle(cmd.Context, lggr, operations.NewMemoryReporter())
	report, err := operations.ExecuteOperation(b, deployer.DeployContractOp,
		deployer.Deps{
			Chain:       chain,
			Registry:    registry,
			Gas:         dcfg.GasSettings(),
			ExplorerURL: net.BlockExplorer.URL,
		},
		deployer.Request{Contract: dcfg.Artifacts.Contract},
	)

	if f.reportPath != "" {
		if werr := report.WriteJSON(f.reportPath); werr != nil {
			err = errors.Join(err, werr)
		} else {
			lggr.Infow("Wrote deployment report", "path", f.reportPath, "id", report.ID)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s deployed to %s\n", name, report.Output.Address.Hex())
	fmt.Fprintf(out, "Admin address (your address): %s\n", report.Output.Admin.Hex())

	return nil
}

// applyFlags overrides config values with flags set on the command line.
func applyFlags(fs *pflag.FlagSet, f flags, cfg *config.Config) {
	if fs.Changed("network") {
		cfg.Network = f.network
	}
	if fs.Changed("networks") {
		cfg.NetworksFile = f.networksFile
	}
	if fs.Changed("artifacts") {
		cfg.Artifacts.Dir = f.artifactsDir
	}
	if fs.Changed("contract") {
		cfg.Artifacts.Contract = f.contract
	}
	if fs.Changed("confirmations") {
		cfg.Confirmation.Confirmations = f.confirmations
	}
	if fs.Changed("timeout") {
		cfg.Confirmation.Timeout = f.timeout
	}
}

// contractName strips the source path from a fully qualified contract name.
func contractName(name string) string {
	if name == "" {
		return deployer.DefaultContract
	}
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}

	return name
}
