package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	callerFlag = ""
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_MintFundBuy(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("DB_MAX_OPEN_CONNS", "1")

	out, err := runCLI(t, "mint", "cid-1", "2", "--as", "seller")
	require.NoError(t, err)
	assert.Contains(t, out, `"tokenId":0`)

	_, err = runCLI(t, "fund", "buyer", "5", "--ref", "cli-test")
	require.NoError(t, err)

	_, err = runCLI(t, "buy", "0", "2", "--as", "buyer")
	require.NoError(t, err)

	out, err = runCLI(t, "purchased", "0", "buyer")
	require.NoError(t, err)
	assert.Contains(t, out, `"purchased":true`)

	out, err = runCLI(t, "balance", "buyer")
	require.NoError(t, err)
	assert.Contains(t, out, `"balance":"3"`)

	_, err = runCLI(t, "buy", "0", "2", "--as", "buyer")
	assert.ErrorContains(t, err, "already purchased")
}

func TestCLI_RequiresCaller(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "cli.db"))

	_, err := runCLI(t, "mint", "cid", "1")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "--as"))
}

func TestCLI_IssueToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := runCLI(t, "token-issue", "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(out), ".")))
}
