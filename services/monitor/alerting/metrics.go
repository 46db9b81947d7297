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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Alert lifecycle metrics.
var (
	alertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_alerts_created_total",
		Help: "Alerts inserted into the active set, by level",
	}, []string{"level"})

	alertsEscalated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_alerts_escalated_total",
		Help: "Level changes on existing active alerts",
	})

	alertsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_alerts_suppressed_total",
		Help: "Alerts discarded by an unexpired suppression rule",
	})

	alertsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_alerts_resolved_total",
		Help: "Alerts explicitly resolved",
	})

	activeAlerts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_alerts_active",
		Help: "Currently unresolved alerts",
	})

	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_notifications_sent_total",
		Help: "Notification fanouts by alert level",
	}, []string{"level"})

	notifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_notification_failures_total",
		Help: "Per-channel notification delivery failures",
	}, []string{"channel"})
)
