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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSentinel/services/llm"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/config"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/knowledge"
)

// scriptedClient returns canned responses or errors in order.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
	delay     time.Duration
}

func (c *scriptedClient) Generate(ctx context.Context, _ string, _ llm.GenerationParams) (string, error) {
	i := c.calls
	c.calls++
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.delay):
		}
	}
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func testSnapshot(cpu, memUsedPct, load float64) datatypes.Snapshot {
	total := uint64(16 * 1024 * 1024 * 1024)
	available := uint64(float64(total) * (100 - memUsedPct) / 100)
	return datatypes.Snapshot{
		Timestamp: time.Date(2025, 11, 2, 12, 0, 0, 0, time.UTC),
		Hostname:  "h1",
		Load1:     load,
		Load5:     load,
		Load15:    load,
		CPUStats:  []datatypes.CPUStat{{Name: "cpu0", UsagePercent: cpu}},
		Memory:    datatypes.MemoryStat{Total: total, Available: available},
	}
}

func severeIssues() []datatypes.Issue {
	return []datatypes.Issue{{Label: "CPU severely overloaded", Severity: datatypes.SeverityHigh}}
}

func newTestOrchestrator(client llm.Client) *Orchestrator {
	cfg := config.Default().Analysis
	cfg.TierTimeout = 200 * time.Millisecond
	synth := NewSynthesizer(knowledge.NewMemoryStore(), cfg.KnowledgeResults, nil)
	return NewOrchestrator(cfg, client, synth, nil)
}

func TestAnalyze_ChainTierSucceeds(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"root_cause": "runaway batch job", "severity": "high", "impact": "request latency rising",
		  "immediate_actions": ["kill the batch job"], "monitoring_steps": ["watch cpu"], "preventive_measures": ["cap batch concurrency"]}`,
	}}
	orch := newTestOrchestrator(client)

	result, err := orch.Analyze(context.Background(), testSnapshot(97, 60, 2), severeIssues(), true)
	require.NoError(t, err)

	assert.Equal(t, ConfidenceChain, result.Confidence)
	assert.Equal(t, "chain", result.Details["tier"])
	assert.Equal(t, "false", result.Details["fallback_used"])
	assert.Equal(t, "runaway batch job", result.Details["root_cause"])
	assert.Contains(t, result.Recommendations, "kill the batch job")
}

func TestAnalyze_ChainParseFailureDegradesToDirect(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"sorry, I cannot answer in JSON",
		"the host is saturated by an I/O-bound workload",
	}}
	orch := newTestOrchestrator(client)

	result, err := orch.Analyze(context.Background(), testSnapshot(97, 60, 2), severeIssues(), true)
	require.NoError(t, err)

	assert.Equal(t, ConfidenceDegraded, result.Confidence)
	assert.Equal(t, "direct", result.Details["tier"])
	assert.Equal(t, "true", result.Details["fallback_used"])
}

func TestAnalyze_AlwaysFailingModelYieldsRuleBased(t *testing.T) {
	client := &scriptedClient{errs: []error{
		errors.New("connection refused"),
		errors.New("connection refused"),
	}}
	orch := newTestOrchestrator(client)

	result, err := orch.Analyze(context.Background(), testSnapshot(97, 60, 2), severeIssues(), true)
	require.NoError(t, err, "the ladder never propagates tier failures")

	assert.Equal(t, "rule-based", result.Details["tier"])
	assert.Equal(t, "true", result.Details["fallback_used"])
	assert.Equal(t, ConfidenceDegraded, result.Confidence)
	assert.NotEmpty(t, result.Recommendations)
}

func TestAnalyze_NilClientSkipsModelTiers(t *testing.T) {
	orch := newTestOrchestrator(nil)

	result, err := orch.Analyze(context.Background(), testSnapshot(97, 60, 2), severeIssues(), true)
	require.NoError(t, err)

	assert.Equal(t, "rule-based", result.Details["tier"])
	assert.Equal(t, "true", result.Details["fallback_used"])
}

func TestAnalyze_TierTimeoutAdvancesLadder(t *testing.T) {
	client := &scriptedClient{
		delay:     time.Second,
		responses: []string{"slow", "slow"},
	}
	orch := newTestOrchestrator(client)

	start := time.Now()
	result, err := orch.Analyze(context.Background(), testSnapshot(97, 60, 2), severeIssues(), true)
	require.NoError(t, err)

	assert.Equal(t, "rule-based", result.Details["tier"])
	assert.Less(t, time.Since(start), 2*time.Second, "each tier is bounded by the tier timeout")
}

func TestAnalyze_ShallowPathUsesLocalConfidence(t *testing.T) {
	client := &scriptedClient{responses: []string{"should not be called"}}
	orch := newTestOrchestrator(client)

	issues := []datatypes.Issue{{Label: "CPU usage elevated", Severity: datatypes.SeverityMedium}}
	result, err := orch.Analyze(context.Background(), testSnapshot(85, 60, 2), issues, false)
	require.NoError(t, err)

	assert.Equal(t, ConfidenceLocal, result.Confidence)
	assert.Equal(t, "local_detection", result.Details["detection_method"])
	assert.Equal(t, "rule-based", result.Details["tier"])
	assert.Zero(t, client.calls, "shallow path must not invoke the model")
}

func TestAnalyze_MalformedSnapshotFails(t *testing.T) {
	orch := newTestOrchestrator(nil)

	bad := testSnapshot(97, 60, 2)
	bad.Hostname = ""
	_, err := orch.Analyze(context.Background(), bad, severeIssues(), true)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
}

func TestSyntheticResult(t *testing.T) {
	now := time.Now()
	result := SyntheticResult("h9", now)

	assert.Equal(t, ConfidenceSynthetic, result.Confidence)
	assert.Len(t, result.Issues, 1)
	assert.Len(t, result.Recommendations, 1)
	assert.Equal(t, "h9", result.Hostname)
	assert.Equal(t, now, result.Timestamp)
}

func TestRuleDiagnose_KeywordTable(t *testing.T) {
	tests := []struct {
		name         string
		label        string
		wantSeverity datatypes.Severity
	}{
		{"severe cpu", "CPU severely overloaded", datatypes.SeverityHigh},
		{"critical memory", "memory critically insufficient", datatypes.SeverityHigh},
		{"io bottleneck", "load high but CPU low, possible I/O bottleneck", datatypes.SeverityMedium},
		{"elevated", "memory usage elevated", datatypes.SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diagnosis := ruleDiagnose([]datatypes.Issue{{Label: tt.label, Severity: datatypes.SeverityMedium}})
			assert.Equal(t, tt.wantSeverity, diagnosis.Severity)
			assert.Equal(t, datatypes.ProvenanceRuleBased, diagnosis.Provenance)
			assert.NotEmpty(t, diagnosis.RootCause)
		})
	}
}

func TestRuleDiagnose_EmptyIssues(t *testing.T) {
	diagnosis := ruleDiagnose(nil)
	assert.Equal(t, datatypes.SeverityLow, diagnosis.Severity)
	assert.Equal(t, datatypes.ProvenanceRuleBased, diagnosis.Provenance)
}
