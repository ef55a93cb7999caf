package outbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicForFallsBackToDefault(t *testing.T) {
	routes := DefaultTopicRoutes()

	assert.Equal(t, "payments.events", routes.TopicFor("PaymentCreated"))
	assert.Equal(t, "orders.events", routes.TopicFor("OrderCreated"))
	assert.Equal(t, "orders.events", routes.TopicFor("SomethingNew"))
}

func TestLoadTopicRoutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"default_topic: all.events\ntopics:\n  PaymentCreated: billing.events\n"), 0o600))

	routes, err := LoadTopicRoutes(path)
	require.NoError(t, err)
	assert.Equal(t, "billing.events", routes.TopicFor("PaymentCreated"))
	assert.Equal(t, "all.events", routes.TopicFor("OrderCreated"))
}

func TestLoadTopicRoutesRequiresDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("topics:\n  A: b\n"), 0o600))

	_, err := LoadTopicRoutes(path)
	assert.Error(t, err)
}

func TestLoadTopicRoutesMissingFile(t *testing.T) {
	_, err := LoadTopicRoutes(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
