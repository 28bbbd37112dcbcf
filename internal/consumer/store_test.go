package consumer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventstore/eventcore/internal/domain"
)

func TestFileStore_SaveLoadAllRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	c := domain.Consumer{ID: "c1", CallbackURL: "https://example.com/hook", Topics: map[string]string{"orders": ""}, Status: domain.ConsumerStatusActive}
	require.NoError(t, s.Save(c))

	all, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "c1", all[0].ID)
}

func TestFileStore_Delete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	c := domain.Consumer{ID: "c1", CallbackURL: "https://example.com/hook", Topics: map[string]string{"orders": ""}}
	require.NoError(t, s.Save(c))
	require.NoError(t, s.Delete("c1"))

	all, err := s.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStore_LoadAll_SkipsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("not json"), 0o644))

	all, err := s.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}
