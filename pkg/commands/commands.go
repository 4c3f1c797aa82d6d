// Package commands provides the CLI commands of the deployer.
//
// There are two ways to use commands from this package:
//
// 1. Via the Commands factory:
//
//	cmds := commands.New(lggr)
//	root := cmds.Deploy(commands.DeployConfig{})
//
// 2. Via direct package imports (for DI/testing):
//
//	import "github.com/scholardao/scholardao-deployer/pkg/commands/deploy"
//
//	cmd := deploy.NewCommand(deploy.Config{
//	    Logger: lggr,
//	    Deps:   deploy.Deps{ChainLoader: myChainLoader},  // inject a simulated chain for testing
//	})
package commands

import (
	"github.com/spf13/cobra"

	"github.com/scholardao/scholardao-deployer/pkg/commands/deploy"
	"github.com/scholardao/scholardao-deployer/pkg/logger"
)

// Commands provides a factory for creating CLI commands with shared configuration.
type Commands struct {
	lggr logger.Logger
}

// New creates a new Commands factory with the given logger. A nil logger lets each command
// build a console logger from its own flags.
func New(lggr logger.Logger) *Commands {
	return &Commands{lggr: lggr}
}

// DeployConfig holds configuration for the deploy command.
type DeployConfig struct {
	// Deps overrides the command's dependencies. Nil fields use production defaults.
	Deps deploy.Deps
}

// Deploy creates the command which deploys the SimpleScholarDAO contract.
func (c *Commands) Deploy(cfg DeployConfig) *cobra.Command {
	return deploy.NewCommand(deploy.Config{
		Logger: c.lggr,
		Deps:   cfg.Deps,
	})
}
