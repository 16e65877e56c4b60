package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SyncMetrics provides metrics for the ERP reliability layer.
// It tracks executor operations, sync failure escalations, and delta-sync runs.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	operationTotal    *Counter
	operationDuration *Histogram
	escalationTotal   *Counter
	deltaSyncTotal    *Counter
	deltaSyncBatch    *Histogram
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error

	sm.operationTotal, err = NewCounter(
		cfg.Meter,
		"erp_operation_total",
		"Total number of executor operations by outcome",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	sm.operationDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "erp_operation_duration_seconds",
		Description: "Executor operation duration from submission to settlement",
		Unit:        "s",
		Boundaries:  OperationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.escalationTotal, err = NewCounter(
		cfg.Meter,
		"erp_sync_escalation_total",
		"Total number of sync records escalated to failed after exhausting retries",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	sm.deltaSyncTotal, err = NewCounter(
		cfg.Meter,
		"erp_delta_sync_runs_total",
		"Total number of delta-sync scheduler runs",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	sm.deltaSyncBatch, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "erp_delta_sync_batch_size",
		Description: "Number of pending records picked up per delta-sync run",
		Unit:        "{records}",
	})
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// RecordOperation records one settled executor operation.
func (sm *SyncMetrics) RecordOperation(ctx context.Context, providerID, outcome string, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		AttrProviderID.String(providerID),
		AttrOperationOutcome.String(outcome),
	}
	sm.operationTotal.Inc(ctx, attrs...)
	sm.operationDuration.RecordDuration(ctx, elapsed, attrs...)
}

// RecordEscalation records one sync record moving to failed status.
func (sm *SyncMetrics) RecordEscalation(ctx context.Context, providerID string) {
	sm.escalationTotal.Inc(ctx, AttrProviderID.String(providerID))
}

// RecordDeltaSyncRun records one delta-sync scheduler run and its batch size.
func (sm *SyncMetrics) RecordDeltaSyncRun(ctx context.Context, providerID string, batchSize int) {
	attrs := []attribute.KeyValue{AttrProviderID.String(providerID)}
	sm.deltaSyncTotal.Inc(ctx, attrs...)
	sm.deltaSyncBatch.Record(ctx, float64(batchSize), attrs...)
}
