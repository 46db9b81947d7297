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
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/knowledge"
)

// Recommendation list caps bound the alert payload size.
const (
	maxImmediateActions   = 5
	maxMonitoringSteps    = 3
	maxPreventiveMeasures = 3
)

// solutionTemplate maps an issue keyword to canned recommendations.
// Ordered: first matching row wins per issue.
type solutionTemplate struct {
	keyword    string
	immediate  []string
	monitoring []string
	preventive []string
}

var solutionTemplates = []solutionTemplate{
	{
		keyword: "cpu",
		immediate: []string{
			"identify CPU-heavy processes with top or htop",
			"lower the priority of non-critical heavy processes",
		},
		monitoring: []string{"watch per-core usage with mpstat -P ALL"},
		preventive: []string{"profile the hot path and add CPU capacity before the next peak"},
	},
	{
		keyword: "memory",
		immediate: []string{
			"list memory-heavy processes with ps aux --sort=-%mem",
			"restart known leaking services",
		},
		monitoring: []string{"track available memory and swap-in rate with vmstat"},
		preventive: []string{"set per-service memory limits and alert on leak trends"},
	},
	{
		keyword: "load",
		immediate: []string{
			"check run-queue depth and blocked tasks with vmstat",
			"compare load against the core count with uptime",
		},
		monitoring: []string{"record load history with sar for trend analysis"},
		preventive: []string{"spread batch jobs away from peak hours"},
	},
	{
		keyword: "i/o",
		immediate: []string{
			"inspect per-device wait with iostat -x",
			"find I/O-heavy processes with iotop",
		},
		monitoring: []string{"watch disk utilization and queue depth"},
		preventive: []string{"move hot data to faster storage or batch the writes"},
	},
}

// genericRecommendation is the terminal fallback when no template or
// snippet applies.
const genericRecommendation = "run a health check on the affected host"

// Synthesizer combines a Diagnosis with knowledge-store lookups into
// the three recommendation sequences. Retrieval failures degrade to
// template output, never to an error.
type Synthesizer struct {
	store  knowledge.Store
	k      int
	logger *slog.Logger
}

// NewSynthesizer creates a synthesizer retrieving up to k snippets per
// issue. store may be nil to skip retrieval entirely.
func NewSynthesizer(store knowledge.Store, k int, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		store:  store,
		k:      k,
		logger: logger.With(slog.String("component", "synthesizer")),
	}
}

// Synthesize produces the recommendation set for one cycle. Chain-native
// solutions are preferred; otherwise issue keywords select templates,
// then raw knowledge snippets, then the generic fallback. All three
// lists are deduplicated first-occurrence-wins and truncated to their
// caps.
func (s *Synthesizer) Synthesize(ctx context.Context, issues []datatypes.Issue, diagnosis datatypes.Diagnosis) datatypes.SolutionSet {
	var set datatypes.SolutionSet

	if diagnosis.Solutions != nil {
		set = *diagnosis.Solutions
	} else {
		set = s.fromTemplates(issues)
		if len(set.All()) == 0 {
			set.ImmediateActions = s.fromSnippets(ctx, issues)
		}
	}

	if len(set.All()) == 0 {
		set.ImmediateActions = []string{genericRecommendation}
	}

	set.ImmediateActions = dedupCap(set.ImmediateActions, maxImmediateActions)
	set.MonitoringSteps = dedupCap(set.MonitoringSteps, maxMonitoringSteps)
	set.PreventiveMeasures = dedupCap(set.PreventiveMeasures, maxPreventiveMeasures)
	return set
}

// fromTemplates matches issue labels against the keyword table.
func (s *Synthesizer) fromTemplates(issues []datatypes.Issue) datatypes.SolutionSet {
	var set datatypes.SolutionSet
	for _, issue := range issues {
		label := strings.ToLower(issue.Label)
		for _, tmpl := range solutionTemplates {
			if strings.Contains(label, tmpl.keyword) {
				set.ImmediateActions = append(set.ImmediateActions, tmpl.immediate...)
				set.MonitoringSteps = append(set.MonitoringSteps, tmpl.monitoring...)
				set.PreventiveMeasures = append(set.PreventiveMeasures, tmpl.preventive...)
				break
			}
		}
	}
	return set
}

// fromSnippets surfaces raw knowledge snippets when no template
// matched. Best-effort: lookup errors are logged and skipped.
func (s *Synthesizer) fromSnippets(ctx context.Context, issues []datatypes.Issue) []string {
	if s.store == nil || s.k <= 0 {
		return nil
	}
	var out []string
	for _, issue := range issues {
		snippets, err := s.store.Search(ctx, issue.Label, s.k)
		if err != nil {
			s.logger.Warn("knowledge lookup failed",
				slog.String("issue", issue.Label), slog.Any("error", err))
			continue
		}
		for _, snippet := range snippets {
			out = append(out, firstLine(snippet.Content))
		}
	}
	return out
}

// firstLine trims a snippet to its first non-empty line so raw runbook
// chunks read as single recommendations.
func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(content)
}

// dedupCap removes duplicates keeping first occurrence, then truncates.
func dedupCap(items []string, limit int) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}
