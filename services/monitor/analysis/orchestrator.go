// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analysis runs the degrading diagnosis ladder: a structured
// model chain, then a plain completion, then a deterministic rule
// table. Every tier failure is absorbed by the next tier; the ladder as
// a whole cannot fail on valid input.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianSentinel/services/llm"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/config"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

var tracer = otel.Tracer("sentinel.analysis")

// ErrAnalysisFailed reports a failure outside the tier ladder, e.g. a
// malformed snapshot. Callers substitute SyntheticResult so the alert
// path still has something actionable.
var ErrAnalysisFailed = errors.New("analysis failed")

// Confidence levels communicate trust to downstream consumers. They are
// a fixed policy, not a statistical estimate.
const (
	// ConfidenceLocal applies when only local detection ran.
	ConfidenceLocal = 0.6
	// ConfidenceChain applies when the structured chain succeeded.
	ConfidenceChain = 0.9
	// ConfidenceDegraded applies when diagnosis fell back past the chain.
	ConfidenceDegraded = 0.7
	// ConfidenceSynthetic applies to the substitute result after
	// ErrAnalysisFailed.
	ConfidenceSynthetic = 0.3
)

// Orchestrator walks the tier ladder in fixed order under a per-tier
// deadline and assembles the cycle's AnalysisResult.
//
// Thread Safety: safe for concurrent use; all state is read-only after
// construction.
type Orchestrator struct {
	tiers       []tier
	tierTimeout time.Duration
	synthesizer *Synthesizer
	logger      *slog.Logger
}

// NewOrchestrator builds the ladder. client may be nil, in which case
// the model tiers are skipped and every diagnosis is rule-based.
func NewOrchestrator(cfg config.Analysis, client llm.Client, synthesizer *Synthesizer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		tiers: []tier{
			&chainTier{client: client},
			&directTier{client: client},
			&ruleTier{},
		},
		tierTimeout: cfg.TierTimeout,
		synthesizer: synthesizer,
		logger:      logger.With(slog.String("component", "orchestrator")),
	}
}

// Analyze produces the cycle's AnalysisResult. deep selects the full
// ladder; when false (gating declined), diagnosis goes straight to the
// rule tier and confidence stays at the local-detection level.
func (o *Orchestrator) Analyze(ctx context.Context, snapshot datatypes.Snapshot, issues []datatypes.Issue, deep bool) (datatypes.AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("host", snapshot.Hostname),
		attribute.Int("issues", len(issues)),
		attribute.Bool("deep", deep),
	)

	if err := snapshot.Validate(); err != nil {
		return datatypes.AnalysisResult{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	in := tierInput{snapshot: snapshot, issues: issues}

	var diagnosis datatypes.Diagnosis
	var confidence float64
	fallbackUsed := false

	if deep {
		diagnosis, fallbackUsed = o.runLadder(ctx, in)
		if diagnosis.Provenance == datatypes.ProvenanceChain {
			confidence = ConfidenceChain
		} else {
			confidence = ConfidenceDegraded
		}
	} else {
		diagnosis = ruleDiagnose(issues)
		confidence = ConfidenceLocal
	}

	solutions := o.synthesizer.Synthesize(ctx, issues, diagnosis)

	result := datatypes.AnalysisResult{
		Timestamp:       snapshot.Timestamp,
		Hostname:        snapshot.Hostname,
		Issues:          issues,
		Recommendations: solutions.All(),
		Confidence:      datatypes.ClampConfidence(confidence),
		Details: map[string]string{
			"detection_method": detectionMethod(deep),
			"tier":             string(diagnosis.Provenance),
			"fallback_used":    strconv.FormatBool(fallbackUsed),
			"root_cause":       diagnosis.RootCause,
			"severity":         string(diagnosis.Severity),
			"impact":           diagnosis.Impact,
		},
	}
	span.SetAttributes(attribute.String("tier", string(diagnosis.Provenance)))
	return result, nil
}

// runLadder tries each tier in order under the per-tier deadline. The
// rule tier is infallible, so the ladder always yields a diagnosis.
func (o *Orchestrator) runLadder(ctx context.Context, in tierInput) (datatypes.Diagnosis, bool) {
	fallbackUsed := false
	for _, t := range o.tiers {
		start := time.Now()
		tierCtx, cancel := context.WithTimeout(ctx, o.tierTimeout)
		diagnosis, err := t.Diagnose(tierCtx, in)
		cancel()
		tierDuration.WithLabelValues(t.Name()).Observe(time.Since(start).Seconds())

		if err == nil {
			tierAttempts.WithLabelValues(t.Name(), "success").Inc()
			if fallbackUsed {
				fallbackTotal.Inc()
			}
			return diagnosis, fallbackUsed
		}

		fallbackUsed = true
		outcome := "error"
		if errors.Is(err, llm.ErrUnavailable) {
			outcome = "unavailable"
		} else if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		tierAttempts.WithLabelValues(t.Name(), outcome).Inc()
		o.logger.Warn("analysis tier failed, degrading",
			slog.String("tier", t.Name()),
			slog.String("host", in.snapshot.Hostname),
			slog.Any("error", err))
	}

	// Unreachable while the rule tier terminates the ladder.
	return ruleDiagnose(in.issues), true
}

func detectionMethod(deep bool) string {
	if deep {
		return "deep_analysis"
	}
	return "local_detection"
}

// SyntheticResult is the minimal substitute the caller uses after
// ErrAnalysisFailed so the alert path still has actionable output.
func SyntheticResult(hostname string, now time.Time) datatypes.AnalysisResult {
	return datatypes.AnalysisResult{
		Timestamp: now,
		Hostname:  hostname,
		Issues: []datatypes.Issue{{
			Label:    "analysis pipeline error, telemetry anomaly unconfirmed",
			Severity: datatypes.SeverityLow,
		}},
		Recommendations: []string{"run a manual health check on the host"},
		Confidence:      ConfidenceSynthetic,
		Details: map[string]string{
			"detection_method": "synthetic",
			"tier":             "none",
			"fallback_used":    "true",
		},
	}
}
