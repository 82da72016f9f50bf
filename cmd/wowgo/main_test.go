package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMissingRequiredFlags(t *testing.T) {
	rootCmd.SetArgs([]string{"build"})
	require.Error(t, rootCmd.Execute(), "build without required flags must fail")

	rootCmd.SetArgs([]string{"search"})
	require.Error(t, rootCmd.Execute(), "search without required flags must fail")

	rootCmd.SetArgs([]string{"groundtruth"})
	require.Error(t, rootCmd.Execute(), "groundtruth without required flags must fail")
}

func TestUnknownFlagRejected(t *testing.T) {
	rootCmd.SetArgs([]string{"build", "--bogus"})
	require.Error(t, rootCmd.Execute())
}
