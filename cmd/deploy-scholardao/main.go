// Command deploy-scholardao deploys the SimpleScholarDAO contract and prints its address and the
// admin address.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/scholardao/scholardao-deployer/pkg/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, commands.DeployConfig{})
	stop()
	os.Exit(code)
}

// run executes the deploy command with args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, cfg commands.DeployConfig) int {
	cmd := commands.New(nil).Deploy(cfg)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}
