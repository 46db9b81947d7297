// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline drives the single-consumer analysis loop: one
// snapshot is fully detected, analyzed, and alerted before the next is
// pulled, so alerts for a host arrive in telemetry order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/alerting"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/analysis"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/collector"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/detector"
)

var tracer = otel.Tracer("sentinel.pipeline")

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_pipeline_cycles_total",
		Help: "Pipeline cycles by outcome",
	}, []string{"outcome"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_pipeline_cycle_duration_seconds",
		Help:    "Wall time of one full pipeline cycle",
		Buckets: []float64{0.001, 0.01, 0.1, 1, 5, 15, 30, 60},
	})
)

// Runner wires the stages together and owns the consume loop.
type Runner struct {
	source       collector.Source
	detector     *detector.Detector
	gating       detector.GatingPolicy
	orchestrator *analysis.Orchestrator
	factory      *alerting.Factory
	manager      *alerting.Manager
	logger       *slog.Logger
	summary      io.Writer
}

// NewRunner assembles a pipeline from its stages.
func NewRunner(
	source collector.Source,
	det *detector.Detector,
	gating detector.GatingPolicy,
	orchestrator *analysis.Orchestrator,
	factory *alerting.Factory,
	manager *alerting.Manager,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		source:       source,
		detector:     det,
		gating:       gating,
		orchestrator: orchestrator,
		factory:      factory,
		manager:      manager,
		logger:       logger.With(slog.String("component", "pipeline")),
	}
}

// SetSummary enables a human-readable per-cycle summary on w,
// typically os.Stdout. Disabled when unset. Must be called before Run.
func (r *Runner) SetSummary(w io.Writer) {
	r.summary = w
}

// Run consumes the telemetry stream until the context is canceled or
// the source is exhausted. Failures within one cycle never abort the
// next: the in-flight cycle finishes, then the loop continues.
func (r *Runner) Run(ctx context.Context) error {
	for {
		snapshot, err := r.source.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if errors.Is(err, collector.ErrSourceExhausted) {
				r.logger.Info("telemetry source exhausted, stopping")
				return nil
			}
			r.logger.Error("telemetry read failed", slog.Any("error", err))
			cyclesTotal.WithLabelValues("source_error").Inc()
			continue
		}

		if err := r.cycle(ctx, snapshot); err != nil {
			r.logger.Error("pipeline cycle failed",
				slog.String("host", snapshot.Hostname),
				slog.Any("error", err))
		}
	}
}

// cycle runs one snapshot through every stage.
func (r *Runner) cycle(ctx context.Context, snapshot datatypes.Snapshot) error {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "pipeline.cycle")
	defer span.End()
	defer func() { cycleDuration.Observe(time.Since(start).Seconds()) }()
	span.SetAttributes(attribute.String("host", snapshot.Hostname))

	issues, err := r.detector.Detect(&snapshot)
	if err != nil {
		cyclesTotal.WithLabelValues("invalid_snapshot").Inc()
		return err
	}
	if len(issues) == 0 {
		cyclesTotal.WithLabelValues("healthy").Inc()
		r.logger.Debug("cycle healthy", slog.String("host", snapshot.Hostname))
		return nil
	}

	deep := r.gating.WarrantsDeepAnalysis(issues)
	result, err := r.orchestrator.Analyze(ctx, snapshot, issues, deep)
	if err != nil {
		// The alert path still needs something actionable.
		r.logger.Error("analysis failed, substituting synthetic result",
			slog.String("host", snapshot.Hostname), slog.Any("error", err))
		result = analysis.SyntheticResult(snapshot.Hostname, snapshot.Timestamp)
		cyclesTotal.WithLabelValues("synthetic").Inc()
	} else {
		cyclesTotal.WithLabelValues("analyzed").Inc()
	}

	r.logger.Info("cycle produced analysis",
		slog.String("host", snapshot.Hostname),
		slog.Int("issues", len(result.Issues)),
		slog.Float64("confidence", result.Confidence),
		slog.String("tier", result.Details["tier"]))

	if r.summary != nil {
		r.printSummary(&snapshot, result)
	}

	var firstErr error
	for _, alert := range r.factory.Build(snapshot, result) {
		if err := r.manager.Process(ctx, alert); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// printSummary writes one compact status block per anomalous cycle.
func (r *Runner) printSummary(snapshot *datatypes.Snapshot, result datatypes.AnalysisResult) {
	fmt.Fprintf(r.summary, "[%s] %s cpu=%.1f%% mem=%.1f%% load=%.2f issues=%d confidence=%.2f\n",
		snapshot.Timestamp.Format("15:04:05"), snapshot.Hostname,
		snapshot.CPUUsagePercent(), snapshot.MemoryUsedPercent(), snapshot.Load1,
		len(result.Issues), result.Confidence)

	recommendations := result.Recommendations
	if len(recommendations) > 3 {
		recommendations = recommendations[:3]
	}
	for _, recommendation := range recommendations {
		fmt.Fprintf(r.summary, "    * %s\n", recommendation)
	}
}
