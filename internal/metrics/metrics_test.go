package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(JudgeFallbacks)
	JudgeFallbacks.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(JudgeFallbacks))

	c := ToolCalls.WithLabelValues("go_compile", "success")
	before = testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestHandler(t *testing.T) {
	TaskTransitions.WithLabelValues("DEPLOYED").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `kai_pipeline_task_transitions_total{to="DEPLOYED"}`)
	assert.Contains(t, string(body), "kai_verification_judge_fallbacks_total")
}
