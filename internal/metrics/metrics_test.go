package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register() // idempotent

	before := testutil.ToFloat64(reservationConflict)
	IncReservationConflict()
	assert.Equal(t, before+1, testutil.ToFloat64(reservationConflict))

	IncReservationCreated("confirmed")
	assert.GreaterOrEqual(t, testutil.ToFloat64(reservationCreated.WithLabelValues("confirmed")), 1.0)

	ObserveHTTP("GET", "/api/v1/resources", "200", 0.01)
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/resources", "200")), 1.0)

	SetWSClients(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(wsClients))
}
