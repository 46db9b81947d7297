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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

func TestConsoleNotifier_SurfacesAtMostThreeActions(t *testing.T) {
	var buf bytes.Buffer
	notifier := NewConsoleNotifier(&buf)

	alert := cpuAlert(datatypes.AlertCritical, 97)
	alert.SuggestedActions = []string{"one", "two", "three", "four", "five"}
	require.NoError(t, notifier.Notify(context.Background(), alert))

	out := buf.String()
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "three")
	assert.NotContains(t, out, "four")
}

func TestEmailNotifier_OnlyCriticalAndAbove(t *testing.T) {
	var sent int
	notifier := &EmailNotifier{
		addr: "smtp.example.com:587",
		from: "alerts@example.com",
		to:   []string{"ops@example.com"},
		sendMail: func(_ string, _ smtp.Auth, _ string, _ []string, _ []byte) error {
			sent++
			return nil
		},
	}

	require.NoError(t, notifier.Notify(context.Background(), cpuAlert(datatypes.AlertWarning, 85)))
	assert.Zero(t, sent, "warning-level alerts are dropped")

	require.NoError(t, notifier.Notify(context.Background(), cpuAlert(datatypes.AlertCritical, 97)))
	assert.Equal(t, 1, sent)
}

func TestEmailNotifier_RequiresConfig(t *testing.T) {
	_, err := NewEmailNotifier("", 587, "", "", "a@b", []string{"c@d"})
	assert.Error(t, err)

	_, err = NewEmailNotifier("smtp.example.com", 587, "", "", "a@b", nil)
	assert.Error(t, err)
}

func TestWebhookNotifier_PostsAlertJSON(t *testing.T) {
	var got datatypes.Alert
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL)
	require.NoError(t, err)

	alert := cpuAlert(datatypes.AlertCritical, 97)
	require.NoError(t, notifier.Notify(context.Background(), alert))
	assert.Equal(t, alert.ID, got.ID)
	assert.Equal(t, alert.Level, got.Level)
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL)
	require.NoError(t, err)

	err = notifier.Notify(context.Background(), cpuAlert(datatypes.AlertCritical, 97))
	assert.ErrorContains(t, err, "502")
}

// failingNotifier always errors.
type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, datatypes.Alert) error {
	return errors.New("channel down")
}

func TestMultiNotifier_IsolatesChannelFailures(t *testing.T) {
	recorder := &recordingNotifier{}
	multi := NewMultiNotifier([]Notifier{failingNotifier{}, recorder}, 600, 10, nil)

	err := multi.Notify(context.Background(), cpuAlert(datatypes.AlertCritical, 97))
	assert.Error(t, err, "first channel error is reported")
	assert.Equal(t, 1, recorder.count(), "later channels still deliver")
}

func TestMultiNotifier_RateLimitHonorsContext(t *testing.T) {
	recorder := &recordingNotifier{}
	// One delivery per minute, burst 1: the second call must wait and
	// the canceled context aborts it.
	multi := NewMultiNotifier([]Notifier{recorder}, 1, 1, nil)

	require.NoError(t, multi.Notify(context.Background(), cpuAlert(datatypes.AlertWarning, 85)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := multi.Notify(ctx, cpuAlert(datatypes.AlertWarning, 86))
	assert.Error(t, err)
	assert.Equal(t, 1, recorder.count())
}
