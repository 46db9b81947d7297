// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package alerting turns analysis output into alerts and manages their
// lifecycle: dedup by host+metric, suppression windows, escalation,
// resolution, and notifier fanout.
package alerting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/config"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

// classRule maps an issue keyword to an alert classification. Rules
// are evaluated in order; the first match wins. Data-driven so the
// heuristics stay testable in one place.
type classRule struct {
	keyword string
	value   string
}

var levelRules = []classRule{
	{"critical", string(datatypes.AlertCritical)},
	{"severe", string(datatypes.AlertCritical)},
	{"emergency", string(datatypes.AlertEmergency)},
	{"high", string(datatypes.AlertWarning)},
	{"elevated", string(datatypes.AlertWarning)},
}

var metricRules = []classRule{
	{"i/o", string(datatypes.MetricDiskIO)},
	{"network", string(datatypes.MetricNetworkIO)},
	{"memory", string(datatypes.MetricMemoryUsage)},
	{"load", string(datatypes.MetricCPULoad)},
	{"cpu", string(datatypes.MetricCPUUsage)},
}

// classify applies an ordered rule table to a lowercased label.
func classify(rules []classRule, label, fallback string) string {
	for _, rule := range rules {
		if strings.Contains(label, rule.keyword) {
			return rule.value
		}
	}
	return fallback
}

// Factory maps issues plus analysis output to Alert values. Pure: no
// side effects, one Alert per Issue.
type Factory struct {
	thresholds config.Thresholds
}

// NewFactory builds a factory over the configured threshold table.
func NewFactory(thresholds config.Thresholds) *Factory {
	return &Factory{thresholds: thresholds}
}

// Build creates one Alert per issue in the analysis result. The
// snapshot supplies current values; the threshold table supplies the
// breached bound for the classified metric.
func (f *Factory) Build(snapshot datatypes.Snapshot, result datatypes.AnalysisResult) []datatypes.Alert {
	alerts := make([]datatypes.Alert, 0, len(result.Issues))
	for _, issue := range result.Issues {
		label := strings.ToLower(issue.Label)

		level := datatypes.AlertLevel(classify(levelRules, label, string(datatypes.AlertInfo)))
		metric := datatypes.MetricClass(classify(metricRules, label, string(datatypes.MetricCPUUsage)))
		current, threshold := f.values(snapshot, metric, level)

		alert := datatypes.Alert{
			ID:               datatypes.NewAlertID(snapshot.Hostname, metric),
			Timestamp:        result.Timestamp,
			Level:            level,
			Metric:           metric,
			Title:            issue.Label,
			Description:      describeAlert(issue, result),
			CurrentValue:     current,
			ThresholdValue:   threshold,
			Hostname:         snapshot.Hostname,
			SuggestedActions: result.Recommendations,
			Context: map[string]string{
				"confidence": strconv.FormatFloat(result.Confidence, 'f', 2, 64),
				"tier":       result.Details["tier"],
				"root_cause": result.Details["root_cause"],
			},
		}
		alerts = append(alerts, alert)
	}
	return alerts
}

// values resolves the current and threshold values for a metric class.
// Warning-level alerts compare against the warning bound, everything
// above against the critical bound.
func (f *Factory) values(snapshot datatypes.Snapshot, metric datatypes.MetricClass, level datatypes.AlertLevel) (current, threshold float64) {
	critical := level == datatypes.AlertCritical || level == datatypes.AlertEmergency

	switch metric {
	case datatypes.MetricMemoryUsage:
		current = snapshot.MemoryUsedPercent()
		threshold = pick(critical, f.thresholds.MemoryCritical, f.thresholds.MemoryWarning)
	case datatypes.MetricCPULoad, datatypes.MetricDiskIO:
		current = snapshot.Load1
		threshold = pick(critical, f.thresholds.LoadCritical, f.thresholds.LoadWarning)
	default:
		current = snapshot.CPUUsagePercent()
		threshold = pick(critical, f.thresholds.CPUCritical, f.thresholds.CPUWarning)
	}
	return current, threshold
}

func pick(critical bool, criticalValue, warningValue float64) float64 {
	if critical {
		return criticalValue
	}
	return warningValue
}

// describeAlert folds the diagnosis into the alert text.
func describeAlert(issue datatypes.Issue, result datatypes.AnalysisResult) string {
	rootCause := result.Details["root_cause"]
	if rootCause == "" {
		return issue.Label
	}
	impact := result.Details["impact"]
	if impact == "" {
		return fmt.Sprintf("%s. Likely cause: %s.", issue.Label, rootCause)
	}
	return fmt.Sprintf("%s. Likely cause: %s. Impact: %s.", issue.Label, rootCause, impact)
}
