package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("registry")
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	assert.NotNil(t, provider.MeterProvider())
	assert.NotNil(t, provider.Handler())
}

func TestProviderHandlerServesMetrics(t *testing.T) {
	provider, err := NewProvider("registry")
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	business, err := NewBusinessMetrics(provider.MeterProvider(), "registry")
	require.NoError(t, err)

	business.RecordOperation(context.Background(), "dispatch", "webhook_delivery", "success")
	business.RecordDuration(context.Background(), "dispatch", "webhook_delivery", 25*time.Millisecond, "success")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "registry_operations_total")
}

func TestNoOpBusinessMetrics(t *testing.T) {
	m := NewNoOpBusinessMetrics()

	// Must not panic
	m.RecordOperation(context.Background(), "auth", "token_verify", "error")
	m.RecordDuration(context.Background(), "auth", "token_verify", time.Second, "error")
}
