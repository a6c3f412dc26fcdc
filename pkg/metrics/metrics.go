// Package metrics provides the Prometheus metrics of jellio.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No user IDs or item IDs in labels.

var (
	// RequestsTotal counts handled HTTP requests by route and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellio_requests_total",
		Help: "Total number of handled HTTP requests, by route and status code.",
	}, []string{"route", "status"})

	// ShadowOperationsTotal counts calls to Jellyfin's session API made for the shadow session.
	ShadowOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellio_shadow_operations_total",
		Help: "Total number of shadow session operations, by operation and result (ok/error).",
	}, []string{"op", "result"})
)

// RecordRequest records a handled request. route must be the route pattern, not the path.
func RecordRequest(route string, status int) {
	RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// RecordShadowOperation records the outcome of a shadow session operation.
func RecordShadowOperation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ShadowOperationsTotal.WithLabelValues(op, result).Inc()
}
