// File: cmd/root_test.go
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubcommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["navigate"])
}

func TestVersionIsSet(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.Equal(t, Version, rootCmd.Version)
}

func TestConfigFlagRegistered(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	assert.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}
