// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github.com/AleutianAI/AleutianSentinel/services/llm"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

// tierInput is the shared input to every analysis tier.
type tierInput struct {
	snapshot datatypes.Snapshot
	issues   []datatypes.Issue
}

// issueLabels flattens issue labels for prompt interpolation.
func (in tierInput) issueLabels() string {
	labels := make([]string, len(in.issues))
	for i, issue := range in.issues {
		labels[i] = issue.Label
	}
	return strings.Join(labels, "; ")
}

// tier is one strategy in the fallback ladder. Tiers are evaluated in
// fixed order; the first one to return a Diagnosis wins.
type tier interface {
	Name() string
	Diagnose(ctx context.Context, in tierInput) (datatypes.Diagnosis, error)
}

// -----------------------------------------------------------------------------
// Structured-Chain Tier
// -----------------------------------------------------------------------------

var chainPrompt = prompts.NewPromptTemplate(
	`You are a Linux systems monitoring expert analyzing a telemetry anomaly.

Host: {{.hostname}}
CPU usage: {{.cpu}}%
Memory usage: {{.memory}}%
Load average (1m): {{.load}}
Detected issues: {{.issues}}

Respond with a single JSON object and nothing else:
{"root_cause": "<one sentence>", "severity": "<low|medium|high>", "impact": "<one sentence>",
 "immediate_actions": ["..."], "monitoring_steps": ["..."], "preventive_measures": ["..."]}`,
	[]string{"hostname", "cpu", "memory", "load", "issues"},
)

// chainDiagnosis is the structured response the chain tier expects.
type chainDiagnosis struct {
	RootCause          string   `json:"root_cause"`
	Severity           string   `json:"severity"`
	Impact             string   `json:"impact"`
	ImmediateActions   []string `json:"immediate_actions"`
	MonitoringSteps    []string `json:"monitoring_steps"`
	PreventiveMeasures []string `json:"preventive_measures"`
}

// chainTier asks the model for a structured {root_cause, severity,
// impact} diagnosis. Any parse failure is an error, advancing the
// ladder.
type chainTier struct {
	client llm.Client
}

func (t *chainTier) Name() string { return "chain" }

func (t *chainTier) Diagnose(ctx context.Context, in tierInput) (datatypes.Diagnosis, error) {
	if t.client == nil {
		return datatypes.Diagnosis{}, llm.ErrUnavailable
	}

	prompt, err := chainPrompt.Format(map[string]any{
		"hostname": in.snapshot.Hostname,
		"cpu":      fmt.Sprintf("%.1f", in.snapshot.CPUUsagePercent()),
		"memory":   fmt.Sprintf("%.1f", in.snapshot.MemoryUsedPercent()),
		"load":     fmt.Sprintf("%.2f", in.snapshot.Load1),
		"issues":   in.issueLabels(),
	})
	if err != nil {
		return datatypes.Diagnosis{}, fmt.Errorf("format chain prompt: %w", err)
	}

	temp := float32(0.1)
	raw, err := t.client.Generate(ctx, prompt, llm.GenerationParams{Temperature: &temp})
	if err != nil {
		return datatypes.Diagnosis{}, err
	}

	var parsed chainDiagnosis
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return datatypes.Diagnosis{}, fmt.Errorf("parse chain response: %w", err)
	}
	if parsed.RootCause == "" {
		return datatypes.Diagnosis{}, fmt.Errorf("chain response missing root_cause")
	}

	diagnosis := datatypes.Diagnosis{
		RootCause:  parsed.RootCause,
		Severity:   parseSeverity(parsed.Severity),
		Impact:     parsed.Impact,
		Provenance: datatypes.ProvenanceChain,
	}
	if len(parsed.ImmediateActions)+len(parsed.MonitoringSteps)+len(parsed.PreventiveMeasures) > 0 {
		diagnosis.Solutions = &datatypes.SolutionSet{
			ImmediateActions:   parsed.ImmediateActions,
			MonitoringSteps:    parsed.MonitoringSteps,
			PreventiveMeasures: parsed.PreventiveMeasures,
		}
	}
	return diagnosis, nil
}

// extractJSON strips markdown fences and surrounding prose so models
// that wrap their JSON still parse.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

// parseSeverity normalizes a model-reported severity, defaulting to
// medium for anything unrecognized.
func parseSeverity(s string) datatypes.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return datatypes.SeverityLow
	case "high":
		return datatypes.SeverityHigh
	default:
		return datatypes.SeverityMedium
	}
}

// -----------------------------------------------------------------------------
// Direct-Completion Tier
// -----------------------------------------------------------------------------

// directTier is the simpler free-text round trip. The response becomes
// the root cause verbatim; severity falls back to the rule table.
type directTier struct {
	client llm.Client
}

func (t *directTier) Name() string { return "direct" }

func (t *directTier) Diagnose(ctx context.Context, in tierInput) (datatypes.Diagnosis, error) {
	if t.client == nil {
		return datatypes.Diagnosis{}, llm.ErrUnavailable
	}

	prompt := fmt.Sprintf(
		"Host %s reports: %s (cpu=%.1f%%, mem=%.1f%%, load=%.2f). "+
			"State the most likely root cause in one sentence.",
		in.snapshot.Hostname, in.issueLabels(),
		in.snapshot.CPUUsagePercent(), in.snapshot.MemoryUsedPercent(), in.snapshot.Load1)

	maxTokens := 120
	raw, err := t.client.Generate(ctx, prompt, llm.GenerationParams{MaxTokens: &maxTokens})
	if err != nil {
		return datatypes.Diagnosis{}, err
	}
	rootCause := strings.TrimSpace(raw)
	if rootCause == "" {
		return datatypes.Diagnosis{}, fmt.Errorf("empty direct-completion response")
	}

	rule := ruleDiagnose(in.issues)
	return datatypes.Diagnosis{
		RootCause:  rootCause,
		Severity:   rule.Severity,
		Impact:     rule.Impact,
		Provenance: datatypes.ProvenanceDirect,
	}, nil
}

// -----------------------------------------------------------------------------
// Rule-Based Tier
// -----------------------------------------------------------------------------

// ruleTier is the terminal fallback. Deterministic, never fails.
type ruleTier struct{}

func (t *ruleTier) Name() string { return "rule-based" }

func (t *ruleTier) Diagnose(_ context.Context, in tierInput) (datatypes.Diagnosis, error) {
	return ruleDiagnose(in.issues), nil
}

// ruleRow maps an issue keyword to a diagnosis. Ordered: the first row
// whose keyword appears in any issue label wins.
type ruleRow struct {
	keyword   string
	severity  datatypes.Severity
	rootCause string
	impact    string
}

var ruleTable = []ruleRow{
	{"severely", datatypes.SeverityHigh,
		"resource saturation beyond critical threshold",
		"service latency and request failures are likely"},
	{"critically", datatypes.SeverityHigh,
		"resource exhaustion imminent",
		"out-of-memory kills or allocation failures are likely"},
	{"bottleneck", datatypes.SeverityMedium,
		"I/O subsystem cannot keep up with demand",
		"processes block on disk or network I/O, inflating load"},
	{"elevated", datatypes.SeverityMedium,
		"sustained resource pressure above normal operating range",
		"reduced headroom for traffic spikes"},
	{"high", datatypes.SeverityMedium,
		"workload exceeds provisioned capacity",
		"degraded throughput under continued load"},
}

// ruleDiagnose applies the keyword table to the issue list.
func ruleDiagnose(issues []datatypes.Issue) datatypes.Diagnosis {
	diagnosis := datatypes.Diagnosis{
		RootCause:  "anomalous telemetry without a matching rule",
		Severity:   datatypes.SeverityLow,
		Impact:     "monitor for recurrence",
		Provenance: datatypes.ProvenanceRuleBased,
	}
	if len(issues) == 0 {
		return diagnosis
	}

	for _, row := range ruleTable {
		for _, issue := range issues {
			if strings.Contains(strings.ToLower(issue.Label), row.keyword) {
				diagnosis.RootCause = row.rootCause
				diagnosis.Severity = row.severity
				diagnosis.Impact = row.impact
				return diagnosis
			}
		}
	}

	// No keyword matched: fall back to the first issue's own severity
	// hint so the detector's judgement is not discarded.
	diagnosis.RootCause = issues[0].Label
	diagnosis.Severity = issues[0].Severity
	return diagnosis
}
