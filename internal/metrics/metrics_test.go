package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	m := New()
	require.NotNil(t, m)
	assert.NotNil(t, m.registry)
}

func TestRecordCompileAndRun(t *testing.T) {
	m := New()
	m.RecordCompile(true, 10*time.Millisecond)
	m.RecordCompile(false, 5*time.Millisecond)
	m.RecordRun(true, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.compilesTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.compilesTotal.WithLabelValues("failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runsTotal.WithLabelValues("success")))
}

func TestRecordDispatchCountsInstructionsAndOpcodes(t *testing.T) {
	m := New()
	m.RecordDispatch("ADD")
	m.RecordDispatch("ADD")
	m.RecordDispatch("CALL")

	assert.Equal(t, float64(3), testutil.ToFloat64(m.instructions))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.opcodesTotal.WithLabelValues("ADD")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.opcodesTotal.WithLabelValues("CALL")))
}

func TestRecordHaltBreaksDownByCause(t *testing.T) {
	m := New()
	m.RecordHalt("halt")
	m.RecordHalt("error")
	m.RecordHalt("error")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.haltsTotal.WithLabelValues("halt")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.haltsTotal.WithLabelValues("error")))
}

func TestHandlerServesPrometheusFormat(t *testing.T) {
	m := New()
	m.RecordDispatch("PRINT")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rayvn_instructions_executed_total")
	assert.Contains(t, rec.Body.String(), "rayvn_opcodes_executed_total")
}
