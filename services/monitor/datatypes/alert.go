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

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AlertLevel is the delivery level of an alert.
type AlertLevel string

const (
	AlertInfo      AlertLevel = "info"
	AlertWarning   AlertLevel = "warning"
	AlertCritical  AlertLevel = "critical"
	AlertEmergency AlertLevel = "emergency"
)

// AlertLevels lists all levels in ascending order of urgency.
var AlertLevels = []AlertLevel{AlertInfo, AlertWarning, AlertCritical, AlertEmergency}

// MetricClass is the metric family an alert is about. The classifier
// defaults to CPU when no keyword matches.
type MetricClass string

const (
	MetricCPUUsage    MetricClass = "cpu_usage"
	MetricCPULoad     MetricClass = "cpu_load"
	MetricMemoryUsage MetricClass = "memory_usage"
	MetricDiskIO      MetricClass = "disk_io"
	MetricNetworkIO   MetricClass = "network_io"
)

// Alert is the unit the lifecycle manager tracks. It is created by the
// factory and mutated only by the manager (value refresh on merge,
// level change, resolution).
type Alert struct {
	ID               string            `json:"id"`
	Timestamp        time.Time         `json:"timestamp"`
	Level            AlertLevel        `json:"level"`
	Metric           MetricClass       `json:"metric_type"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	CurrentValue     float64           `json:"current_value"`
	ThresholdValue   float64           `json:"threshold_value"`
	Hostname         string            `json:"hostname"`
	SuggestedActions []string          `json:"suggested_actions"`
	Context          map[string]string `json:"context,omitempty"`
	Resolved         bool              `json:"resolved"`
	ResolvedAt       *time.Time        `json:"resolved_at,omitempty"`
}

// NewAlertID builds a stable-format alert identifier. The uuid suffix
// distinguishes alerts for the same host+metric created at different
// times.
func NewAlertID(hostname string, metric MetricClass) string {
	return fmt.Sprintf("%s_%s_%s", hostname, metric, uuid.NewString())
}

// IdentityKey builds the dedup key for a host+metric pair. The active
// set and the suppression table share this keyspace, so a suppression
// rule addresses exactly the alerts it would block.
func IdentityKey(metric MetricClass, hostname string) string {
	return string(metric) + "@" + hostname
}

// IdentityKey is the dedup key: one active alert per host+metric pair.
func (a *Alert) IdentityKey() string {
	return IdentityKey(a.Metric, a.Hostname)
}
