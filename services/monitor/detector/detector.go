// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package detector implements local, rule-based anomaly detection over
// telemetry snapshots, plus the gating policy that decides whether an
// issue set warrants the expensive analysis tiers.
//
// Detection is an explicit ordered rule table rather than scattered
// string checks so behavior is data-driven and testable. Within one
// metric family the first matching tier wins (a snapshot is "severely
// overloaded" or "elevated", never both).
package detector

import (
	"strings"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/config"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

// tier is one row of the threshold table: value above limit produces
// the labeled issue.
type tier struct {
	limit    float64
	label    string
	severity datatypes.Severity
}

// family is an ordered set of tiers over one scalar metric, most
// severe first.
type family struct {
	metric datatypes.MetricClass
	value  func(*datatypes.Snapshot) float64
	tiers  []tier
}

// Detector turns a snapshot into an ordered list of issues. It is a
// pure function over the configured threshold table: no I/O, no state.
type Detector struct {
	families   []family
	thresholds config.Thresholds
}

// New builds a detector from the threshold table.
func New(t config.Thresholds) *Detector {
	return &Detector{
		thresholds: t,
		families: []family{
			{
				metric: datatypes.MetricCPUUsage,
				value:  func(s *datatypes.Snapshot) float64 { return s.CPUUsagePercent() },
				tiers: []tier{
					{t.CPUCritical, "CPU severely overloaded", datatypes.SeverityHigh},
					{t.CPUWarning, "CPU usage elevated", datatypes.SeverityMedium},
				},
			},
			{
				metric: datatypes.MetricMemoryUsage,
				value:  func(s *datatypes.Snapshot) float64 { return s.MemoryUsedPercent() },
				tiers: []tier{
					{t.MemoryCritical, "memory critically insufficient", datatypes.SeverityHigh},
					{t.MemoryWarning, "memory usage elevated", datatypes.SeverityMedium},
				},
			},
			{
				metric: datatypes.MetricCPULoad,
				value:  func(s *datatypes.Snapshot) float64 { return s.Load1 },
				tiers: []tier{
					{t.LoadCritical, "system load severely high", datatypes.SeverityHigh},
					{t.LoadWarning, "system load elevated", datatypes.SeverityMedium},
				},
			},
		},
	}
}

// Detect returns the issues present in the snapshot, ordered by the
// rule table, empty when the host looks healthy. The only failure mode
// is a malformed snapshot.
func (d *Detector) Detect(s *datatypes.Snapshot) ([]datatypes.Issue, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var issues []datatypes.Issue
	for _, f := range d.families {
		v := f.value(s)
		for _, tr := range f.tiers {
			if v > tr.limit {
				issues = append(issues, datatypes.Issue{Label: tr.label, Severity: tr.severity})
				break
			}
		}
	}

	// Compound signature: load high while CPU is low points at I/O
	// wait rather than compute pressure.
	if s.Load1 > d.thresholds.IOBoundLoad && s.CPUUsagePercent() < d.thresholds.IOBoundCPUBelow {
		issues = append(issues, datatypes.Issue{
			Label:    "load high but CPU low, possible I/O bottleneck",
			Severity: datatypes.SeverityMedium,
		})
	}

	return issues, nil
}

// GatingPolicy decides whether an issue set warrants the LLM-backed
// analysis tiers. This is a cost and latency control, not a
// correctness gate: simple issues already carry actionable labels.
type GatingPolicy struct {
	keywords []string
}

// NewGatingPolicy builds a policy from the configured complex-issue
// keyword set.
func NewGatingPolicy(keywords []string) GatingPolicy {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return GatingPolicy{keywords: lowered}
}

// WarrantsDeepAnalysis reports whether any issue label contains a
// complex-issue keyword.
func (g GatingPolicy) WarrantsDeepAnalysis(issues []datatypes.Issue) bool {
	for _, issue := range issues {
		label := strings.ToLower(issue.Label)
		for _, kw := range g.keywords {
			if strings.Contains(label, kw) {
				return true
			}
		}
	}
	return false
}
