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

// assertBizMetricLine checks that the Prometheus output contains a business metric
// matching the given name, partial label pattern, and value. The exporter adds scope
// labels, so the label set is matched loosely.
func assertBizMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func TestNewBusinessMetrics(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	businessMetrics, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")

	require.NoError(t, err)
	assert.NotNil(t, businessMetrics)
}

func TestNewNoOpBusinessMetrics(t *testing.T) {
	noOpMetrics := NewNoOpBusinessMetrics()
	ctx := context.Background()

	assert.IsType(t, &NoOpBusinessMetrics{}, noOpMetrics)
	assert.NotPanics(t, func() {
		noOpMetrics.RecordOperation(ctx, "tasks", "task_mask", "success")
		noOpMetrics.RecordDuration(ctx, "tasks", "task_mask", 100*time.Millisecond, "success")
		noOpMetrics.RecordMaskedSpans(ctx, "NAME", 3)
	})
}

func TestBusinessMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("integration_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "integration_test")
	require.NoError(t, err)

	ctx := context.Background()

	bm.RecordOperation(ctx, "tasks", "task_mask", "success")
	bm.RecordOperation(ctx, "tasks", "task_mask", "success")
	bm.RecordOperation(ctx, "tasks", "task_mask", "error")
	bm.RecordOperation(ctx, "tasks", "task_restore", "success")

	bm.RecordDuration(ctx, "tasks", "task_mask", 50*time.Millisecond, "success")
	bm.RecordDuration(ctx, "tasks", "task_mask", 60*time.Millisecond, "success")
	bm.RecordDuration(ctx, "tasks", "task_restore", 20*time.Millisecond, "success")

	bm.RecordMaskedSpans(ctx, "IC", 2)
	bm.RecordMaskedSpans(ctx, "IC", 1)
	bm.RecordMaskedSpans(ctx, "NAME", 0)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)

	output := w.Body.String()

	assertBizMetricLine(t, output, `integration_test_operations_total`,
		`domain="tasks".*operation="task_mask".*status="success"`, `2`)
	assertBizMetricLine(t, output, `integration_test_operations_total`,
		`domain="tasks".*operation="task_mask".*status="error"`, `1`)
	assertBizMetricLine(t, output, `integration_test_operations_total`,
		`domain="tasks".*operation="task_restore".*status="success"`, `1`)
	assertBizMetricLine(t, output, `integration_test_operation_duration_seconds_count`,
		`domain="tasks".*operation="task_mask".*status="success"`, `2`)
	assertBizMetricLine(t, output, `integration_test_masked_spans_total`, `label="IC"`, `3`)
	assert.NotContains(t, output, `label="NAME"`)
}
