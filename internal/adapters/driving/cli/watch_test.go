package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type txtOnlyCorpus struct{}

func (txtOnlyCorpus) Indexable(path string) bool { return strings.HasSuffix(path, ".txt") }
func (txtOnlyCorpus) URI(path string) string     { return filepath.Base(path) }

func TestWatchCmd_HasDebounceFlag(t *testing.T) {
	flag := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, flag)
	assert.Equal(t, "500ms", flag.DefValue)
}

func TestWatchCmd_StopsWithContext(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	services.DataDir = t.TempDir()
	services.Corpus = txtOnlyCorpus{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	defer func() {
		rootCmd.SetContext(context.Background())
		watchCmd.SetContext(context.Background())
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"watch"})
	require.NoError(t, rootCmd.ExecuteContext(ctx))
	assert.Contains(t, buf.String(), "Watching "+services.DataDir)
}

func TestWatchCmd_RequiresCorpus(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no corpus configured")
}

func TestMCPServeCmd_HasPortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestExecute_ClosesBuiltServicesOnly(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	closed := 0
	services.Close = func() error { closed++; return nil }

	require.NoError(t, closeServices())
	assert.Equal(t, 0, closed, "injected services are left alone")

	servicesBuilt = true
	require.NoError(t, closeServices())
	assert.Equal(t, 1, closed)
	assert.Nil(t, services)
}
