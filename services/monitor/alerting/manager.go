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
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

// Statistics is the aggregate view over the manager's history.
type Statistics struct {
	TotalAlerts    int                          `json:"total_alerts"`
	ActiveAlerts   int                          `json:"active_alerts"`
	ResolvedAlerts int                          `json:"resolved_alerts"`
	ByLevel        map[datatypes.AlertLevel]int `json:"by_level"`
	ByHost         map[string]int               `json:"by_host"`
}

// Manager is the stateful core of the alert path. At most one active
// alert exists per host+metric pair: a repeat detection refreshes the
// existing alert's value, and only a level change re-notifies.
//
// Thread Safety: safe for concurrent use. One mutex guards the active
// set, history log, and suppression table.
type Manager struct {
	notifier Notifier
	logger   *slog.Logger

	mu           sync.Mutex
	active       map[string]*datatypes.Alert // keyed by IdentityKey
	history      []*datatypes.Alert          // unbounded within process lifetime
	suppressions map[string]time.Time        // IdentityKey -> expiry

	// now is injectable for suppression-window tests.
	now func() time.Time
}

// NewManager creates a manager delivering through notifier. notifier
// may be nil, in which case alerts are tracked but not delivered.
func NewManager(notifier Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		notifier:     notifier,
		logger:       logger.With(slog.String("component", "alert_manager")),
		active:       make(map[string]*datatypes.Alert),
		suppressions: make(map[string]time.Time),
		now:          time.Now,
	}
}

// Process runs one alert through the lifecycle: suppression check,
// identity match, create-or-merge, escalation detection, notification.
func (m *Manager) Process(ctx context.Context, alert datatypes.Alert) error {
	m.mu.Lock()
	key := alert.IdentityKey()

	if expiry, ok := m.suppressions[key]; ok {
		if m.now().Before(expiry) {
			m.mu.Unlock()
			alertsSuppressed.Inc()
			m.logger.Debug("alert suppressed",
				slog.String("key", key),
				slog.Time("until", expiry))
			return nil
		}
		// Lazy expiry: the rule deletes itself on first check past
		// its deadline.
		delete(m.suppressions, key)
	}

	existing, ok := m.active[key]
	if ok {
		existing.CurrentValue = alert.CurrentValue
		existing.Timestamp = alert.Timestamp
		if existing.Level == alert.Level {
			m.mu.Unlock()
			return nil
		}

		// Any level change re-notifies, downgrades included: operators
		// asked for level transitions, not only escalations.
		previous := existing.Level
		existing.Level = alert.Level
		existing.Description = alert.Description
		notifyCopy := *existing
		m.mu.Unlock()

		alertsEscalated.Inc()
		m.logger.Info("alert level changed",
			slog.String("id", notifyCopy.ID),
			slog.String("from", string(previous)),
			slog.String("to", string(notifyCopy.Level)))
		return m.deliver(ctx, notifyCopy)
	}

	inserted := alert
	m.active[key] = &inserted
	m.history = append(m.history, &inserted)
	activeAlerts.Set(float64(len(m.active)))
	notifyCopy := inserted
	m.mu.Unlock()

	alertsCreated.WithLabelValues(string(alert.Level)).Inc()
	m.logger.Info("alert created",
		slog.String("id", notifyCopy.ID),
		slog.String("level", string(notifyCopy.Level)),
		slog.String("host", notifyCopy.Hostname),
		slog.String("metric", string(notifyCopy.Metric)))
	return m.deliver(ctx, notifyCopy)
}

// Resolve marks an active alert resolved and removes it from the
// active set. The history entry reflects the resolution.
func (m *Manager) Resolve(alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, alert := range m.active {
		if alert.ID != alertID {
			continue
		}
		resolvedAt := m.now()
		alert.Resolved = true
		alert.ResolvedAt = &resolvedAt
		delete(m.active, key)
		activeAlerts.Set(float64(len(m.active)))
		alertsResolved.Inc()
		m.logger.Info("alert resolved", slog.String("id", alertID))
		return nil
	}
	return fmt.Errorf("no active alert with id %s", alertID)
}

// Suppress installs or overwrites a suppression rule for the pair.
// While unexpired it blocks creation, merge, and escalation alike.
func (m *Manager) Suppress(hostname string, metric datatypes.MetricClass, duration time.Duration) {
	key := datatypes.IdentityKey(metric, hostname)
	m.mu.Lock()
	m.suppressions[key] = m.now().Add(duration)
	m.mu.Unlock()
	m.logger.Info("suppression installed",
		slog.String("key", key),
		slog.Duration("duration", duration))
}

// ActiveAlerts returns a snapshot of the unresolved alerts.
func (m *Manager) ActiveAlerts() []datatypes.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]datatypes.Alert, 0, len(m.active))
	for _, alert := range m.active {
		out = append(out, *alert)
	}
	return out
}

// Statistics aggregates the history log.
func (m *Manager) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Statistics{
		TotalAlerts:    len(m.history),
		ActiveAlerts:   len(m.active),
		ResolvedAlerts: len(m.history) - len(m.active),
		ByLevel:        make(map[datatypes.AlertLevel]int),
		ByHost:         make(map[string]int),
	}
	for _, alert := range m.history {
		stats.ByLevel[alert.Level]++
		stats.ByHost[alert.Hostname]++
	}
	return stats
}

// deliver hands the alert to the notifier; delivery failures are
// logged, not propagated, so one dead channel cannot stall the
// pipeline.
func (m *Manager) deliver(ctx context.Context, alert datatypes.Alert) error {
	if m.notifier == nil {
		return nil
	}
	if err := m.notifier.Notify(ctx, alert); err != nil {
		m.logger.Error("notification failed",
			slog.String("alert_id", alert.ID),
			slog.Any("error", err))
	}
	return nil
}
