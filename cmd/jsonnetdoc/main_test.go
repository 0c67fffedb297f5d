package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestFilterCmd_Stdin(t *testing.T) {
	got := runRoot(t, "abc\n/** doc */\ndef\n", "filter", "--blocks=false")
	assert.Equal(t, "\n/** doc */\n\n", got)
}

func TestFilterCmd_File(t *testing.T) {
	orig := fs
	fs = afero.NewMemMapFs()
	t.Cleanup(func() { fs = orig })

	require.NoError(t, afero.WriteFile(fs, "lib.libsonnet", []byte("{\n  /** A. */\n  a: 1,\n}\n"), 0o644))

	got := runRoot(t, "", "filter", "--blocks=false", "lib.libsonnet")
	assert.Equal(t, "\n/** A. */\n\n\n", got)
}

func TestFilterCmd_Blocks(t *testing.T) {
	got := runRoot(t, "x\n\n/** one */ y /** two\n */\n", "filter", "--blocks")
	assert.Equal(t, "#0 line 3\n/** one */\n#1 line 3\n/** two\n */\n", got)
}
