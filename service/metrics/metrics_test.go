package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/viant/signoff/model"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.Operation("submit", time.Now(), nil)
	m.Operation("submit", time.Now(), model.NewError(model.CodeDuplicateSubmission, "pending"))
	m.Transition("quote", model.InstanceApproved)
	m.CallbackFailure("quote", "on_approved")
	m.Escalation("flagged")
	m.SideEffectFailure("notify")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("submit", OutcomeOK, "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("submit", OutcomeError, string(model.CodeDuplicateSubmission))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("quote", "APPROVED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callbackFailures.WithLabelValues("quote", "on_approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.escalations.WithLabelValues("flagged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sideEffects.WithLabelValues("notify")))

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "signoff_operations_total")

	var none *Metrics
	assert.NotPanics(t, func() { none.Operation("act", time.Now(), nil) })
}
