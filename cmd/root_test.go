package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflinkFlagsAreMutuallyExclusive(t *testing.T) {
	root := RootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--reflink", "--reflink-or-hardlink", t.TempDir()})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestRootRequiresAtLeastOnePathArgument(t *testing.T) {
	root := RootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{})

	err := root.Execute()
	require.Error(t, err)
}

func TestVersionCommandIsRegistered(t *testing.T) {
	root := RootCommand()
	for _, c := range root.Commands() {
		if c.Name() == "version" {
			return
		}
	}
	t.Fatal("expected a registered version subcommand")
}
