package consumer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventstore/eventcore/internal/domain"
	apperrors "github.com/eventstore/eventcore/internal/pkg/errors"
)

// fakeTopics implements TopicExistence for tests without depending on the
// topic package, keeping this package's tests focused on ConsumerRegistry.
type fakeTopics struct {
	existing map[string]bool
}

func newFakeTopics(names ...string) *fakeTopics {
	f := &fakeTopics{existing: make(map[string]bool)}
	for _, n := range names {
		f.existing[n] = true
	}
	return f
}

func (f *fakeTopics) TopicExists(name string, scope domain.Scope) bool {
	return f.existing[scope.Qualified(name)]
}

func newTestRegistry(t *testing.T, topicNames ...string) *Registry {
	t.Helper()
	reg, err := New(NewMemoryStore(), newFakeTopics(topicNames...))
	require.NoError(t, err)
	return reg
}

func TestRegister_RejectsRelativeCallbackURL(t *testing.T) {
	reg := newTestRegistry(t, "orders")
	_, err := reg.Register("c1", "/not-absolute", map[string]string{"orders": ""})
	require.Error(t, err)
}

func TestRegister_RejectsEmptyTopics(t *testing.T) {
	reg := newTestRegistry(t, "orders")
	_, err := reg.Register("c1", "https://example.com/hook", map[string]string{})
	require.Error(t, err)
}

func TestRegister_RejectsUnknownTopic(t *testing.T) {
	reg := newTestRegistry(t, "orders")
	_, err := reg.Register("c1", "https://example.com/hook", map[string]string{"nope": ""})
	require.Error(t, err)
}

func TestRegister_Success(t *testing.T) {
	reg := newTestRegistry(t, "orders")
	c, err := reg.Register("c1", "https://example.com/hook", map[string]string{"orders": ""})
	require.NoError(t, err)
	assert.Equal(t, domain.ConsumerStatusActive, c.Status)

	found, err := reg.FindByID("c1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook", found.CallbackURL)
}

func TestRegister_DuplicateIDFails(t *testing.T) {
	reg := newTestRegistry(t, "orders")
	_, err := reg.Register("c1", "https://example.com/hook", map[string]string{"orders": ""})
	require.NoError(t, err)

	_, err = reg.Register("c1", "https://example.com/hook", map[string]string{"orders": ""})
	require.Error(t, err)
}

func TestFindByID_NotFound(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.FindByID("missing")
	require.ErrorIs(t, err, apperrors.ErrConsumerNotFound)
}

func TestFindByTopic_OnlyMatchingSubscribers(t *testing.T) {
	reg := newTestRegistry(t, "orders", "users")
	_, err := reg.Register("c1", "https://example.com/a", map[string]string{"orders": ""})
	require.NoError(t, err)
	_, err = reg.Register("c2", "https://example.com/b", map[string]string{"users": ""})
	require.NoError(t, err)

	matches := reg.FindByTopic("orders")
	require.Len(t, matches, 1)
	assert.Equal(t, "c1", matches[0].ID)
}

func TestUpdateCursor_AdvancesAndClearsFailures(t *testing.T) {
	reg := newTestRegistry(t, "orders")
	_, err := reg.Register("c1", "https://example.com/a", map[string]string{"orders": ""})
	require.NoError(t, err)
	_, err = reg.RecordFailure("c1", "orders")
	require.NoError(t, err)

	require.NoError(t, reg.UpdateCursor("c1", "orders", "orders-5"))
	c, err := reg.FindByID("c1")
	require.NoError(t, err)
	assert.Equal(t, "orders-5", c.Topics["orders"])
	assert.Equal(t, 0, c.FailureCount["orders"])
}

func TestRecordFailure_IncrementsPerTopic(t *testing.T) {
	reg := newTestRegistry(t, "orders")
	_, err := reg.Register("c1", "https://example.com/a", map[string]string{"orders": ""})
	require.NoError(t, err)

	count, err := reg.RecordFailure("c1", "orders")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = reg.RecordFailure("c1", "orders")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestParkAndResume(t *testing.T) {
	reg := newTestRegistry(t, "orders")
	_, err := reg.Register("c1", "https://example.com/a", map[string]string{"orders": ""})
	require.NoError(t, err)

	require.NoError(t, reg.Park("c1"))
	c, err := reg.FindByID("c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ConsumerStatusParked, c.Status)

	require.NoError(t, reg.Resume("c1"))
	c, err = reg.FindByID("c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ConsumerStatusActive, c.Status)
}

func TestDelete_RemovesConsumer(t *testing.T) {
	reg := newTestRegistry(t, "orders")
	_, err := reg.Register("c1", "https://example.com/a", map[string]string{"orders": ""})
	require.NoError(t, err)

	require.NoError(t, reg.Delete("c1"))
	_, err = reg.FindByID("c1")
	require.ErrorIs(t, err, apperrors.ErrConsumerNotFound)
	assert.Equal(t, 0, reg.Count())
}

func TestFindByTenantAndNamespace(t *testing.T) {
	reg := newTestRegistry(t, "acme/prod/orders")
	_, err := reg.Register("c1", "https://example.com/a", map[string]string{"acme/prod/orders": ""})
	require.NoError(t, err)

	matches := reg.FindByTenantAndNamespace(domain.Scope{TenantName: "acme", NamespaceName: "prod"})
	assert.Len(t, matches, 1)

	none := reg.FindByTenantAndNamespace(domain.Scope{TenantName: "other", NamespaceName: "prod"})
	assert.Empty(t, none)
}
