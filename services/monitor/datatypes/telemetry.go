// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the value types shared across the monitor
// pipeline: telemetry snapshots, detected issues, analysis results and
// alerts. Everything here is a plain value; identity and mutation live
// in the alerting manager.
package datatypes

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSnapshot is returned when a telemetry sample is malformed
// (missing hostname, zero timestamp, impossible metric values). A cycle
// that hits this error is skipped; the consumption loop continues.
var ErrInvalidSnapshot = errors.New("invalid telemetry snapshot")

// CPUStat is the per-core CPU breakdown of one sample.
type CPUStat struct {
	Name           string  `json:"name"`
	UsagePercent   float64 `json:"usage_percent"`
	UserPercent    float64 `json:"user_percent"`
	SystemPercent  float64 `json:"system_percent"`
	IdlePercent    float64 `json:"idle_percent"`
	IOWaitPercent  float64 `json:"io_wait_percent"`
	SoftIRQPercent float64 `json:"soft_irq_percent"`
}

// MemoryStat is the memory breakdown of one sample. Values are bytes.
type MemoryStat struct {
	Total     uint64 `json:"total"`
	Available uint64 `json:"available"`
	Free      uint64 `json:"free"`
	Buffers   uint64 `json:"buffers"`
	Cached    uint64 `json:"cached"`
}

// NetworkStat is the per-interface rate summary of one sample.
type NetworkStat struct {
	Name          string  `json:"name"`
	SendKBps      float64 `json:"send_kbps"`
	ReceiveKBps   float64 `json:"receive_kbps"`
	SendPktsPerS  float64 `json:"send_pkts_per_s"`
	RecvPktsPerS  float64 `json:"recv_pkts_per_s"`
}

// Snapshot is one point-in-time telemetry sample from a host. It is
// immutable once produced; the pipeline owns it for a single cycle.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Hostname  string    `json:"hostname"`

	Load1  float64 `json:"load_1min"`
	Load5  float64 `json:"load_5min"`
	Load15 float64 `json:"load_15min"`

	CPUStats []CPUStat     `json:"cpu_stats,omitempty"`
	Memory   MemoryStat    `json:"memory"`
	Network  []NetworkStat `json:"network,omitempty"`
}

// CPUUsagePercent returns the mean usage across cores, or zero when no
// per-core data is present.
func (s *Snapshot) CPUUsagePercent() float64 {
	if len(s.CPUStats) == 0 {
		return 0
	}
	var sum float64
	for _, c := range s.CPUStats {
		sum += c.UsagePercent
	}
	return sum / float64(len(s.CPUStats))
}

// MemoryUsedPercent returns used memory as a percentage of total, where
// "used" is total minus available. Zero total yields zero.
func (s *Snapshot) MemoryUsedPercent() float64 {
	if s.Memory.Total == 0 {
		return 0
	}
	used := s.Memory.Total - s.Memory.Available
	return float64(used) / float64(s.Memory.Total) * 100
}

// Validate checks the snapshot for structural problems.
func (s *Snapshot) Validate() error {
	if s.Hostname == "" {
		return fmt.Errorf("%w: hostname is empty", ErrInvalidSnapshot)
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is zero", ErrInvalidSnapshot)
	}
	if s.Load1 < 0 || s.Load5 < 0 || s.Load15 < 0 {
		return fmt.Errorf("%w: negative load average", ErrInvalidSnapshot)
	}
	if s.Memory.Total > 0 && s.Memory.Available > s.Memory.Total {
		return fmt.Errorf("%w: available memory exceeds total", ErrInvalidSnapshot)
	}
	for _, c := range s.CPUStats {
		if c.UsagePercent < 0 || c.UsagePercent > 100 {
			return fmt.Errorf("%w: cpu usage out of range", ErrInvalidSnapshot)
		}
	}
	return nil
}
