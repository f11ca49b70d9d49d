// Package metrics provides Prometheus metrics for the reconciliation engine
// and its HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/erazemk/inventura/internal/model"
)

// Metrics contains the Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	scansTotal                  *prometheus.CounterVec
	discrepanciesConfirmedTotal *prometheus.CounterVec
	locationsVerifiedTotal      prometheus.Counter
	missingCreatedTotal         prometheus.Counter
	locationsReopenedTotal      prometheus.Counter
	cyclesCreatedTotal          prometheus.Counter
	cyclesClosedTotal           prometheus.Counter
	closeRejectedTotal          prometheus.Counter
	itemsImportedTotal          prometheus.Counter
	importRowErrorsTotal        prometheus.Counter
	operationErrorsTotal        *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) initMetrics() {
	m.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventura_scans_total",
			Help: "Total number of recorded barcode scans",
		},
		[]string{"outcome"},
	)

	m.discrepanciesConfirmedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventura_discrepancies_confirmed_total",
			Help: "Total number of discrepancy confirmations",
		},
		[]string{"reconfirmed"},
	)

	m.locationsVerifiedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventura_locations_verified_total",
		Help: "Total number of location verifications",
	})

	m.missingCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventura_missing_discrepancies_total",
		Help: "Total number of MISSING discrepancies created by location verification",
	})

	m.locationsReopenedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventura_locations_reopened_total",
		Help: "Total number of reopened locations",
	})

	m.cyclesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventura_cycles_created_total",
		Help: "Total number of inventory cycles opened",
	})

	m.cyclesClosedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventura_cycles_closed_total",
		Help: "Total number of inventory cycles closed",
	})

	m.closeRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventura_close_rejected_total",
		Help: "Total number of close attempts rejected because the cycle was not ready",
	})

	m.itemsImportedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventura_expected_items_imported_total",
		Help: "Total number of expected items imported",
	})

	m.importRowErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventura_import_row_errors_total",
		Help: "Total number of spreadsheet rows skipped during import",
	})

	m.operationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventura_operation_errors_total",
			Help: "Total number of failed engine operations",
		},
		[]string{"operation", "error_type"}, // error_type: precondition, not_found, invalid, infrastructure
	)

	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventura_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventura_http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

// RecordScan records a classified scan.
func (m *Metrics) RecordScan(outcome model.ScanOutcome) {
	m.scansTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordConfirmation records a discrepancy confirmation.
func (m *Metrics) RecordConfirmation(reconfirmed bool) {
	m.discrepanciesConfirmedTotal.WithLabelValues(strconv.FormatBool(reconfirmed)).Inc()
}

// RecordLocationVerified records a verification and the MISSING
// discrepancies it created.
func (m *Metrics) RecordLocationVerified(missingCreated int) {
	m.locationsVerifiedTotal.Inc()
	m.missingCreatedTotal.Add(float64(missingCreated))
}

// RecordLocationReopened records a reopened location.
func (m *Metrics) RecordLocationReopened() {
	m.locationsReopenedTotal.Inc()
}

// RecordCycleCreated records an opened cycle.
func (m *Metrics) RecordCycleCreated() {
	m.cyclesCreatedTotal.Inc()
}

// RecordCycleClosed records a closed cycle.
func (m *Metrics) RecordCycleClosed() {
	m.cyclesClosedTotal.Inc()
}

// RecordCloseRejected records a close attempt on a cycle that wasn't ready.
func (m *Metrics) RecordCloseRejected() {
	m.closeRejectedTotal.Inc()
}

// RecordImport records an expected stock import.
func (m *Metrics) RecordImport(items, rowErrors int) {
	m.itemsImportedTotal.Add(float64(items))
	m.importRowErrorsTotal.Add(float64(rowErrors))
}

// RecordOperationError records a failed engine operation.
func (m *Metrics) RecordOperationError(operation, errorType string) {
	m.operationErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Describe implements the Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.scansTotal.Describe(ch)
	m.discrepanciesConfirmedTotal.Describe(ch)
	m.locationsVerifiedTotal.Describe(ch)
	m.missingCreatedTotal.Describe(ch)
	m.locationsReopenedTotal.Describe(ch)
	m.cyclesCreatedTotal.Describe(ch)
	m.cyclesClosedTotal.Describe(ch)
	m.closeRejectedTotal.Describe(ch)
	m.itemsImportedTotal.Describe(ch)
	m.importRowErrorsTotal.Describe(ch)
	m.operationErrorsTotal.Describe(ch)
	m.httpRequestsTotal.Describe(ch)
	m.httpRequestDuration.Describe(ch)
}

// Collect implements the Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.scansTotal.Collect(ch)
	m.discrepanciesConfirmedTotal.Collect(ch)
	m.locationsVerifiedTotal.Collect(ch)
	m.missingCreatedTotal.Collect(ch)
	m.locationsReopenedTotal.Collect(ch)
	m.cyclesCreatedTotal.Collect(ch)
	m.cyclesClosedTotal.Collect(ch)
	m.closeRejectedTotal.Collect(ch)
	m.itemsImportedTotal.Collect(ch)
	m.importRowErrorsTotal.Collect(ch)
	m.operationErrorsTotal.Collect(ch)
	m.httpRequestsTotal.Collect(ch)
	m.httpRequestDuration.Collect(ch)
}
