// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package collector

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/config"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

func simConfig() config.Collector {
	return config.Collector{
		Interval: time.Millisecond,
		Hostname: "sim-host",
		Cores:    4,
	}
}

func TestSimulatedSource_ProducesValidSnapshots(t *testing.T) {
	source := NewSimulatedSource(simConfig(), 42)
	defer source.Stop()

	for range 50 {
		snapshot, err := source.Next(context.Background())
		require.NoError(t, err)
		require.NoError(t, snapshot.Validate())
		assert.Equal(t, "sim-host", snapshot.Hostname)
		assert.Len(t, snapshot.CPUStats, 4)
		assert.NotEmpty(t, snapshot.Network)
	}
}

func TestSimulatedSource_FirstSampleIsImmediate(t *testing.T) {
	cfg := simConfig()
	cfg.Interval = time.Hour
	source := NewSimulatedSource(cfg, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := source.Next(ctx)
	require.NoError(t, err, "first sample must not wait the full interval")
}

func TestSimulatedSource_CancelUnblocks(t *testing.T) {
	cfg := simConfig()
	cfg.Interval = time.Hour
	source := NewSimulatedSource(cfg, 1)

	_, err := source.Next(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = source.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedSource_EventuallySpikes(t *testing.T) {
	source := NewSimulatedSource(simConfig(), 7)

	spiked := false
	for range 200 {
		snapshot, err := source.Next(context.Background())
		require.NoError(t, err)
		if snapshot.CPUUsagePercent() > 85 || snapshot.MemoryUsedPercent() > 85 || snapshot.Load1 > 6 {
			spiked = true
			break
		}
	}
	assert.True(t, spiked, "the simulator must occasionally exercise the alert path")
}

func writeReplayFile(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replay.jsonl")
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func replayLine(t *testing.T, hostname string, cpu float64) string {
	t.Helper()
	snapshot := datatypes.Snapshot{
		Timestamp: time.Date(2025, 11, 2, 12, 0, 0, 0, time.UTC),
		Hostname:  hostname,
		Load1:     1,
		CPUStats:  []datatypes.CPUStat{{Name: "cpu0", UsagePercent: cpu}},
		Memory:    datatypes.MemoryStat{Total: 1024, Available: 512},
	}
	raw, err := json.Marshal(snapshot)
	require.NoError(t, err)
	return string(raw)
}

func TestReplaySource_ReadsInOrder(t *testing.T) {
	path := writeReplayFile(t, []string{
		replayLine(t, "h1", 20),
		"",
		replayLine(t, "h1", 97),
	})

	source, err := NewReplaySource(path, 0, nil)
	require.NoError(t, err)
	defer source.Stop()

	first, err := source.Next(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 20.0, first.CPUUsagePercent(), 0.01)

	second, err := source.Next(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 97.0, second.CPUUsagePercent(), 0.01)

	_, err = source.Next(context.Background())
	assert.ErrorIs(t, err, ErrSourceExhausted)
}

func TestReplaySource_SkipsMalformedLines(t *testing.T) {
	path := writeReplayFile(t, []string{
		"{not json",
		replayLine(t, "h2", 50),
	})

	source, err := NewReplaySource(path, 0, nil)
	require.NoError(t, err)
	defer source.Stop()

	snapshot, err := source.Next(context.Background())
	require.NoError(t, err, "a malformed line must not poison the next read")
	assert.Equal(t, "h2", snapshot.Hostname)
}

func TestReplaySource_OversizedLineEndsStream(t *testing.T) {
	path := writeReplayFile(t, []string{
		strings.Repeat("x", 2*1024*1024),
		replayLine(t, "h3", 50),
	})

	source, err := NewReplaySource(path, 0, nil)
	require.NoError(t, err)
	defer source.Stop()

	_, err = source.Next(context.Background())
	require.ErrorIs(t, err, ErrSourceExhausted,
		"a scanner failure must end the stream, not loop the caller")
	assert.ErrorContains(t, err, "read replay file")

	_, err = source.Next(context.Background())
	assert.ErrorIs(t, err, ErrSourceExhausted, "stays exhausted on repeat calls")
}

func TestReplaySource_MissingFile(t *testing.T) {
	_, err := NewReplaySource(filepath.Join(t.TempDir(), "absent.jsonl"), 0, nil)
	assert.Error(t, err)
}
