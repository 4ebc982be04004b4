package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCommand_Output(t *testing.T) {
	out, err := execute("version")
	require.NoError(t, err)
	assert.Contains(t, out, "reserca version dev")
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "reserca", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestSkipServiceInit(t *testing.T) {
	assert.True(t, skipServiceInit(versionCmd))
	assert.False(t, skipServiceInit(queryCmd))
}
