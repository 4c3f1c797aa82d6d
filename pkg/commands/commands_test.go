package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholardao/scholardao-deployer/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	lggr := logger.Nop()
	cmds := New(lggr)

	require.NotNil(t, cmds)
	assert.Equal(t, lggr, cmds.lggr)
}

func TestCommands_Deploy(t *testing.T) {
	t.Parallel()

	cmd := New(logger.Nop()).Deploy(DeployConfig{})

	require.NotNil(t, cmd)
	assert.Equal(t, "deploy-scholardao", cmd.Use)
	assert.True(t, cmd.SilenceErrors)

	networkFlag := cmd.Flags().Lookup("network")
	require.NotNil(t, networkFlag)
	assert.Equal(t, "n", networkFlag.Shorthand)
}
