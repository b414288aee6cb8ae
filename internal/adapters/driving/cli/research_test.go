package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

func TestResearchCmd_PrintsAnswerAndTrace(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("research", "--session", "s1", "Where is it?")
	require.NoError(t, err)

	assert.Equal(t, "s1", ts.researcher.lastSession)
	assert.Equal(t, "Where is it?", ts.researcher.lastQuery)
	assert.Equal(t, domain.DefaultResearchConfig(), ts.researcher.lastConfig)

	assert.Contains(t, out, "Rewritten: Where is the Mona Lisa?")
	assert.Contains(t, out, "Reasoning steps")
	assert.Contains(t, out, "1. Mona Lisa location")
	assert.Contains(t, out, "stopped: sufficient")
	assert.Contains(t, out, "The Mona Lisa hangs in the Louvre.")
	assert.Contains(t, out, "- art/leonardo.md")
	assert.Contains(t, out, "session s1, reasoner heuristic")
}

func TestResearchCmd_NewSessionWhenNoneGiven(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("research", "question")
	require.NoError(t, err)
	require.NotEmpty(t, ts.researcher.lastSession)
	assert.Contains(t, out, "session "+ts.researcher.lastSession)
}

func TestResearchCmd_NoTrace(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("research", "--trace=false", "question")
	require.NoError(t, err)
	assert.NotContains(t, out, "Reasoning steps")
	assert.Contains(t, out, "Answer")
}

func TestResearchCmd_FlagsOverrideConfig(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, ts.config.Set("research.max_steps", 7))

	_, err := execute("research", "-k", "2", "--threshold", "0.3", "question")
	require.NoError(t, err)

	assert.Equal(t, domain.ResearchConfig{MaxSteps: 7, KPerStep: 2, SimilarityThreshold: 0.3}, ts.researcher.lastConfig)
}

func TestResearchCmd_InvalidConfig(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("research", "--max-steps", "0", "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Empty(t, ts.researcher.lastQuery)
}

func TestResearchCmd_Export(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "report.md")
	out, err := execute("research", "--export", "md", "-o", path, "question")
	require.NoError(t, err)
	assert.Contains(t, out, "Report written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Research Report")
	assert.Contains(t, string(data), "Mona Lisa location")
	assert.Contains(t, string(data), "The Mona Lisa hangs in the Louvre.")
}

func TestResearchCmd_BadExportFormat(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("research", "--export", "pdf", "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, ts.researcher.lastQuery, "format is checked before research runs")
}

func TestResearchCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.researcher.err = domain.ErrIndexNotLoaded

	_, err := execute("research", "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexNotLoaded)
}
