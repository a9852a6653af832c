package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Run("Success_RuntimeCollectors", func(t *testing.T) {
		provider, err := NewProvider("piimask_test")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(context.Background()))
		}()

		output := scrape(t, provider)
		assert.Contains(t, output, "go_goroutines")
		assert.Contains(t, output, "go_memstats_heap_alloc_bytes")
	})

	t.Run("Success_ServiceNameFromNamespace", func(t *testing.T) {
		provider, err := NewProvider("piimask_test")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(context.Background()))
		}()

		bm, err := NewBusinessMetrics(provider.MeterProvider(), "piimask_test")
		require.NoError(t, err)
		bm.RecordOperation(context.Background(), "tasks", "task_mask", "success")

		assert.Regexp(t, `target_info\{[^}]*service_name="piimask_test"`, scrape(t, provider))
	})

	t.Run("Success_EmptyNamespace", func(t *testing.T) {
		provider, err := NewProvider("")
		require.NoError(t, err)
		assert.NotNil(t, provider.MeterProvider())
	})
}

func TestProvider_Shutdown(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		provider, err := NewProvider("piimask_test")
		require.NoError(t, err)
		assert.NoError(t, provider.Shutdown(context.Background()))
	})

	t.Run("Success_ZeroValue", func(t *testing.T) {
		assert.NoError(t, (&Provider{}).Shutdown(context.Background()))
	})
}
