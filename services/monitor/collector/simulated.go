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
	"fmt"
	"math/rand"
	"time"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/config"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/datatypes"
)

// SimulatedSource generates plausible host telemetry on a fixed
// interval. A small fraction of samples spike to exercise the alert
// path during demos and soak tests.
//
// Thread Safety: Next must be called from a single goroutine.
type SimulatedSource struct {
	hostname string
	cores    int
	interval time.Duration
	rng      *rand.Rand
	first    bool
}

// NewSimulatedSource builds a source from the collector config. A zero
// seed derives one from the clock.
func NewSimulatedSource(cfg config.Collector, seed int64) *SimulatedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cores := cfg.Cores
	if cores <= 0 {
		cores = 1
	}
	return &SimulatedSource{
		hostname: cfg.Hostname,
		cores:    cores,
		interval: cfg.Interval,
		rng:      rand.New(rand.NewSource(seed)),
		first:    true,
	}
}

// Next waits one interval (immediately on the first call) and returns
// a fresh snapshot.
func (s *SimulatedSource) Next(ctx context.Context) (datatypes.Snapshot, error) {
	if !s.first {
		select {
		case <-ctx.Done():
			return datatypes.Snapshot{}, ctx.Err()
		case <-time.After(s.interval):
		}
	}
	s.first = false
	return s.generate(), nil
}

// Stop is a no-op; the simulated source holds no resources.
func (s *SimulatedSource) Stop() error { return nil }

// generate draws one sample. Roughly one in ten samples spikes a
// random subsystem past its critical threshold.
func (s *SimulatedSource) generate() datatypes.Snapshot {
	baseCPU := 15 + s.rng.Float64()*40 // 15-55%
	load := 0.5 + s.rng.Float64()*2.5
	memUsed := 40 + s.rng.Float64()*30 // 40-70%

	if s.rng.Float64() < 0.1 {
		switch s.rng.Intn(3) {
		case 0:
			baseCPU = 90 + s.rng.Float64()*10
		case 1:
			memUsed = 88 + s.rng.Float64()*10
		default:
			load = float64(s.cores) + 2 + s.rng.Float64()*6
			baseCPU = 20 + s.rng.Float64()*20 // I/O-bound signature
		}
	}

	cpus := make([]datatypes.CPUStat, s.cores)
	for i := range cpus {
		usage := clampPct(baseCPU + s.rng.Float64()*10 - 5)
		user := usage * 0.7
		system := usage * 0.25
		cpus[i] = datatypes.CPUStat{
			Name:           fmt.Sprintf("cpu%d", i),
			UsagePercent:   usage,
			UserPercent:    user,
			SystemPercent:  system,
			IdlePercent:    clampPct(100 - usage),
			IOWaitPercent:  s.rng.Float64() * 3,
			SoftIRQPercent: s.rng.Float64(),
		}
	}

	total := uint64(16 * 1024 * 1024 * 1024)
	available := uint64(float64(total) * (100 - memUsed) / 100)
	cached := min(uint64(float64(total)*0.15), available)

	return datatypes.Snapshot{
		Timestamp: time.Now(),
		Hostname:  s.hostname,
		Load1:     load,
		Load5:     load * (0.85 + s.rng.Float64()*0.2),
		Load15:    load * (0.7 + s.rng.Float64()*0.2),
		CPUStats:  cpus,
		Memory: datatypes.MemoryStat{
			Total:     total,
			Available: available,
			Free:      available - cached/2,
			Buffers:   cached / 4,
			Cached:    cached,
		},
		Network: []datatypes.NetworkStat{{
			Name:         "eth0",
			SendKBps:     s.rng.Float64() * 2000,
			ReceiveKBps:  s.rng.Float64() * 5000,
			SendPktsPerS: s.rng.Float64() * 1500,
			RecvPktsPerS: s.rng.Float64() * 3000,
		}},
	}
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
