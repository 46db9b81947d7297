// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// Severity is the coarse severity of a diagnosis.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Provenance records which analysis tier produced a diagnosis.
type Provenance string

const (
	// ProvenanceChain marks output from the structured-chain tier.
	ProvenanceChain Provenance = "chain"
	// ProvenanceDirect marks output from the direct-completion tier.
	ProvenanceDirect Provenance = "direct"
	// ProvenanceRuleBased marks output from the terminal rule-based tier.
	ProvenanceRuleBased Provenance = "rule-based"
)

// Issue is a locally detected anomaly: a short machine-checkable label
// plus a severity hint. Pure value, no identity.
type Issue struct {
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
}

// Diagnosis is the normalized output of one analysis tier. Solutions
// is non-nil only when the structured-chain tier returned its native
// recommendation structure.
type Diagnosis struct {
	RootCause  string       `json:"root_cause"`
	Severity   Severity     `json:"severity"`
	Impact     string       `json:"impact"`
	Provenance Provenance   `json:"provenance"`
	Solutions  *SolutionSet `json:"solutions,omitempty"`
}

// SolutionSet holds the three ordered, deduplicated recommendation
// sequences. Lengths are capped at synthesis time (5/3/3 by default) to
// bound alert payload size.
type SolutionSet struct {
	ImmediateActions   []string `json:"immediate_actions"`
	MonitoringSteps    []string `json:"monitoring_steps"`
	PreventiveMeasures []string `json:"preventive_measures"`
}

// All returns the three sequences flattened in order.
func (s SolutionSet) All() []string {
	out := make([]string, 0, len(s.ImmediateActions)+len(s.MonitoringSteps)+len(s.PreventiveMeasures))
	out = append(out, s.ImmediateActions...)
	out = append(out, s.MonitoringSteps...)
	out = append(out, s.PreventiveMeasures...)
	return out
}

// AnalysisResult is produced once per cycle and handed to the alert
// path. Immutable after construction.
type AnalysisResult struct {
	Timestamp       time.Time         `json:"timestamp"`
	Hostname        string            `json:"hostname"`
	Issues          []Issue           `json:"issues"`
	Recommendations []string          `json:"recommendations"`
	Confidence      float64           `json:"confidence_score"`
	Details         map[string]string `json:"details"`
}

// ClampConfidence bounds a confidence score to [0, 1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
