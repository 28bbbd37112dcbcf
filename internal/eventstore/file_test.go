package eventstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventstore/eventcore/internal/domain"
	apperrors "github.com/eventstore/eventcore/internal/pkg/errors"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStore(dir, time.UTC)
	require.NoError(t, err)
	return s
}

func TestFileStore_StoreAndGetEvent_RoundTrips(t *testing.T) {
	s := newTestFileStore(t)
	id := domain.NewEventID("orders", 1, domain.Scope{})
	stored, err := s.StoreEvent("orders", "order.created", json.RawMessage(`{"a":1}`), id, time.Now(), domain.Scope{})
	require.NoError(t, err)
	assert.Equal(t, "order.created", stored.Type)

	got, ok, err := s.GetEvent("orders", id, domain.Scope{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "order.created", got.Type)
	assert.JSONEq(t, `{"a":1}`, string(got.Payload))
}

// TestFileStore_LayoutMatchesGroupingScheme verifies the g1/g2/g3
// hierarchical path for a sequence that exercises all three group levels.
func TestFileStore_LayoutMatchesGroupingScheme(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, time.UTC)
	require.NoError(t, err)

	seq := int64(1_234_567)
	id := domain.NewEventID("t", seq, domain.Scope{})
	_, err = s.StoreEvent("t", "x", json.RawMessage(`{}`), id, time.Now(), domain.Scope{})
	require.NoError(t, err)

	want := filepath.Join(dir, "t", "001", "23", "45", "t-1234567.json")
	_, err = os.Stat(want)
	require.NoError(t, err, "expected event file at %s", want)
}

func TestFileStore_ScopedTopicLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, time.UTC)
	require.NoError(t, err)

	scope := domain.Scope{TenantName: "acme", NamespaceName: "prod"}
	id := domain.NewEventID("orders", 1, scope)
	_, err = s.StoreEvent("orders", "x", json.RawMessage(`{}`), id, time.Now(), scope)
	require.NoError(t, err)

	want := filepath.Join(dir, "acme", "prod", "orders", "000", "00", "00", "orders-1.json")
	_, err = os.Stat(want)
	require.NoError(t, err, "expected scoped event file at %s", want)
}

func TestFileStore_GetEvents_SinceEventIDPrunesGroups(t *testing.T) {
	s := newTestFileStore(t)
	for i := int64(1); i <= 3; i++ {
		_, err := s.StoreEvent("t", "x", json.RawMessage(`{}`), domain.NewEventID("t", i, domain.Scope{}), time.Now(), domain.Scope{})
		require.NoError(t, err)
	}
	since := domain.NewEventID("t", 1, domain.Scope{})
	events, err := s.GetEvents("t", Filter{SinceEventID: &since}, domain.Scope{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].ID.Sequence)
	assert.Equal(t, int64(3), events[1].ID.Sequence)
}

func TestFileStore_GetEvents_Limit(t *testing.T) {
	s := newTestFileStore(t)
	for i := int64(1); i <= 20; i++ {
		_, err := s.StoreEvent("t", "x", json.RawMessage(`{}`), domain.NewEventID("t", i, domain.Scope{}), time.Now(), domain.Scope{})
		require.NoError(t, err)
	}
	events, err := s.GetEvents("t", Filter{Limit: 5}, domain.Scope{})
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.ID.Sequence)
	}
}

// TestFileStore_GetEvents_SkipsMalformedFile implements literal scenario
// S6: a file at <root>/t/000/00/00/t-1.json containing invalid JSON must
// not abort the read, and getEvents("t") returns [] without raising.
func TestFileStore_GetEvents_SkipsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, time.UTC)
	require.NoError(t, err)

	leaf := filepath.Join(dir, "t", "000", "00", "00")
	require.NoError(t, os.MkdirAll(leaf, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(leaf, "t-1.json"), []byte(`{ invalid json `), 0o644))

	events, err := s.GetEvents("t", Filter{}, domain.Scope{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFileStore_GetEvent_SkipsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, time.UTC)
	require.NoError(t, err)

	leaf := filepath.Join(dir, "t", "000", "00", "00")
	require.NoError(t, os.MkdirAll(leaf, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(leaf, "t-1.json"), []byte(`not json`), 0o644))

	_, ok, err := s.GetEvent("t", domain.NewEventID("t", 1, domain.Scope{}), domain.Scope{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_GetEvent_MissingReturnsNotFound(t *testing.T) {
	s := newTestFileStore(t)
	_, ok, err := s.GetEvent("t", domain.NewEventID("t", 1, domain.Scope{}), domain.Scope{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_GetLatestEventID(t *testing.T) {
	s := newTestFileStore(t)
	_, ok, err := s.GetLatestEventID("t", domain.Scope{})
	require.NoError(t, err)
	assert.False(t, ok)

	for i := int64(1); i <= 3; i++ {
		_, err := s.StoreEvent("t", "x", json.RawMessage(`{}`), domain.NewEventID("t", i, domain.Scope{}), time.Now(), domain.Scope{})
		require.NoError(t, err)
	}
	latest, ok, err := s.GetLatestEventID("t", domain.Scope{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), latest.Sequence)
}

func TestFileStore_StoreEvents_BatchCleansUpOnFailure(t *testing.T) {
	s := newTestFileStore(t)

	// Make the topic directory read-only-ish by pre-creating a file where
	// a group directory needs to go, forcing MkdirAll to fail partway
	// through the batch.
	blockedPath := filepath.Join(s.root, "t", "000")
	require.NoError(t, os.MkdirAll(filepath.Dir(blockedPath), 0o755))
	require.NoError(t, os.WriteFile(blockedPath, []byte("blocking file"), 0o644))

	// The first event lands under t/001/00/00 and is written; the second
	// needs t/000/00/00 and fails, so the first file must be removed again.
	pending := []PendingEvent{
		{Topic: "t", Type: "a", Payload: json.RawMessage(`{}`), EventID: domain.NewEventID("t", 1_000_000, domain.Scope{}), Timestamp: time.Now()},
		{Topic: "t", Type: "a", Payload: json.RawMessage(`{}`), EventID: domain.NewEventID("t", 1, domain.Scope{}), Timestamp: time.Now()},
	}
	_, err := s.StoreEvents(pending, domain.Scope{})
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(s.root, "t", "001", "00", "00", "t-1000000.json"))
	assert.True(t, os.IsNotExist(statErr), "event file written earlier in the failed batch must be removed")
}

func TestFileStore_StoreEvents_RejectsEmptyBatch(t *testing.T) {
	s := newTestFileStore(t)
	_, err := s.StoreEvents(nil, domain.Scope{})
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "EMPTY_BATCH", appErr.Code)
}
