// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/config"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

func factorySnapshot(cpu, memUsedPct, load float64) datatypes.Snapshot {
	total := uint64(16 * 1024 * 1024 * 1024)
	available := uint64(float64(total) * (100 - memUsedPct) / 100)
	return datatypes.Snapshot{
		Timestamp: time.Date(2025, 11, 2, 12, 0, 0, 0, time.UTC),
		Hostname:  "h1",
		Load1:     load,
		CPUStats:  []datatypes.CPUStat{{Name: "cpu0", UsagePercent: cpu}},
		Memory:    datatypes.MemoryStat{Total: total, Available: available},
	}
}

func resultWithIssue(label string, severity datatypes.Severity) datatypes.AnalysisResult {
	return datatypes.AnalysisResult{
		Timestamp:       time.Date(2025, 11, 2, 12, 0, 0, 0, time.UTC),
		Hostname:        "h1",
		Issues:          []datatypes.Issue{{Label: label, Severity: severity}},
		Recommendations: []string{"check top"},
		Confidence:      0.7,
		Details:         map[string]string{"tier": "rule-based", "root_cause": "saturation"},
	}
}

func TestBuild_Classification(t *testing.T) {
	factory := NewFactory(config.Default().Thresholds)
	snapshot := factorySnapshot(97, 60, 2)

	tests := []struct {
		name       string
		label      string
		wantLevel  datatypes.AlertLevel
		wantMetric datatypes.MetricClass
	}{
		{"severe cpu", "CPU severely overloaded", datatypes.AlertCritical, datatypes.MetricCPUUsage},
		{"elevated cpu", "CPU usage elevated", datatypes.AlertWarning, datatypes.MetricCPUUsage},
		{"critical memory", "memory critically insufficient", datatypes.AlertCritical, datatypes.MetricMemoryUsage},
		{"severe load", "system load severely high", datatypes.AlertCritical, datatypes.MetricCPULoad},
		{"io bottleneck", "load high but CPU low, possible I/O bottleneck", datatypes.AlertWarning, datatypes.MetricDiskIO},
		{"unmatched defaults", "something odd", datatypes.AlertInfo, datatypes.MetricCPUUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := factory.Build(snapshot, resultWithIssue(tt.label, datatypes.SeverityMedium))
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.wantLevel, alerts[0].Level)
			assert.Equal(t, tt.wantMetric, alerts[0].Metric)
		})
	}
}

func TestBuild_ValuesFromSnapshotAndThresholds(t *testing.T) {
	thresholds := config.Default().Thresholds
	factory := NewFactory(thresholds)
	snapshot := factorySnapshot(97, 60, 2)

	alerts := factory.Build(snapshot, resultWithIssue("CPU severely overloaded", datatypes.SeverityHigh))
	require.Len(t, alerts, 1)
	assert.InDelta(t, 97.0, alerts[0].CurrentValue, 0.01)
	assert.Equal(t, thresholds.CPUCritical, alerts[0].ThresholdValue)

	alerts = factory.Build(snapshot, resultWithIssue("CPU usage elevated", datatypes.SeverityMedium))
	require.Len(t, alerts, 1)
	assert.Equal(t, thresholds.CPUWarning, alerts[0].ThresholdValue,
		"warning-level alerts compare against the warning bound")
}

func TestBuild_MemoryValues(t *testing.T) {
	thresholds := config.Default().Thresholds
	factory := NewFactory(thresholds)
	snapshot := factorySnapshot(40, 96, 2)

	alerts := factory.Build(snapshot, resultWithIssue("memory critically insufficient", datatypes.SeverityHigh))
	require.Len(t, alerts, 1)
	assert.InDelta(t, 96.0, alerts[0].CurrentValue, 0.1)
	assert.Equal(t, thresholds.MemoryCritical, alerts[0].ThresholdValue)
}

func TestBuild_OneAlertPerIssue(t *testing.T) {
	factory := NewFactory(config.Default().Thresholds)
	snapshot := factorySnapshot(97, 96, 9)

	result := resultWithIssue("CPU severely overloaded", datatypes.SeverityHigh)
	result.Issues = append(result.Issues,
		datatypes.Issue{Label: "memory critically insufficient", Severity: datatypes.SeverityHigh})

	alerts := factory.Build(snapshot, result)
	assert.Len(t, alerts, 2)
	assert.NotEqual(t, alerts[0].ID, alerts[1].ID)
}

func TestBuild_CarriesAnalysisContext(t *testing.T) {
	factory := NewFactory(config.Default().Thresholds)
	snapshot := factorySnapshot(97, 60, 2)

	alerts := factory.Build(snapshot, resultWithIssue("CPU severely overloaded", datatypes.SeverityHigh))
	require.Len(t, alerts, 1)
	assert.Equal(t, "rule-based", alerts[0].Context["tier"])
	assert.Equal(t, "saturation", alerts[0].Context["root_cause"])
	assert.Equal(t, []string{"check top"}, alerts[0].SuggestedActions)
	assert.Contains(t, alerts[0].Description, "saturation")
}
