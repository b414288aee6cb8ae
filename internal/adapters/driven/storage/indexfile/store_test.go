package indexfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
)

func TestStore_ImplementsInterface(t *testing.T) {
	var _ driven.IndexStore = (*Store)(nil)
}

func TestStore_LoadMissing(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s := New(dir)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []byte("DRIX first")))
	require.NoError(t, s.Save(ctx, []byte("DRIX second")))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DRIX second", string(got))
	assert.Equal(t, filepath.Join(dir, FileName), s.Location())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestStore_SaveFailureKeepsPreviousBlob(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, []byte("good")))

	blocked := NewAt(filepath.Join(dir, FileName, "nested"))
	assert.Error(t, blocked.Save(ctx, []byte("bad")))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "good", string(got))
}

func TestStore_CancelledContext(t *testing.T) {
	s := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Save(ctx, []byte("x")), context.Canceled)
	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
