// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import "context"

// DefaultCorpus returns the built-in runbook documents covering the
// four metric families the detector knows about. Operators extend the
// store at runtime via the watch directory or the seed command.
func DefaultCorpus() []Document {
	return []Document{
		{
			Category: "cpu",
			Issue:    "high_usage",
			Content: `High CPU usage diagnosis and remediation:

1. Identify CPU-intensive processes:
   - top or htop to inspect per-process CPU consumption
   - ps aux --sort=-%cpu for a sorted listing

2. Common remediations:
   - optimize hot paths in the offending application
   - add cores or upgrade the CPU
   - spread load with a load balancer
   - lower process priority (nice) or cap usage (cpulimit)

3. Temporary mitigation:
   - restart non-critical processes with high CPU consumption
   - constrain the process with a cgroup CPU quota`,
		},
		{
			Category: "memory",
			Issue:    "high_usage",
			Content: `High memory usage diagnosis and remediation:

1. Analysis tools:
   - free -h for the overall picture
   - ps aux --sort=-%mem for per-process residency
   - pmap -d <pid> for a detailed mapping
   - /proc/meminfo for kernel-level detail

2. Remediations:
   - add physical memory
   - fix application memory leaks
   - tune swap configuration
   - drop the page cache: echo 3 > /proc/sys/vm/drop_caches
   - restart leaking processes

3. Prevention:
   - set per-process memory limits
   - monitor for leak trends
   - size swap appropriately`,
		},
		{
			Category: "load",
			Issue:    "high_load",
			Content: `High system load diagnosis and remediation:

1. Load analysis:
   - uptime for 1/5/15 minute averages
   - load above the core count means the system is saturated

2. Locating the cause:
   - iostat for I/O wait
   - vmstat for the overall picture
   - sar for historical activity

3. Remediations:
   - CPU-bound load: optimize compute-heavy tasks
   - I/O-bound load: optimize disk access patterns
   - memory-bound load: free memory or add capacity
   - adjust the scheduler policy as a last resort`,
		},
		{
			Category: "network",
			Issue:    "traffic_anomaly",
			Content: `Network traffic anomaly diagnosis and remediation:

1. Monitoring tools:
   - iftop for live traffic
   - nethogs for per-process usage
   - ss -tuln for connection state
   - netstat -i for interface counters

2. Common causes and fixes:
   - unexpected traffic: check for malware or DDoS
   - congestion: tune the network path or add bandwidth
   - connection exhaustion: raise system connection limits
   - packet loss: inspect hardware and driver configuration

3. Tuning:
   - adjust TCP/IP kernel parameters
   - apply traffic shaping
   - fix chatty application network code`,
		},
	}
}

// Seed ingests the default corpus into the store. Idempotency is the
// store's concern; the in-memory store is rebuilt each start and the
// weaviate store deduplicates by content hash.
func Seed(ctx context.Context, store Store) error {
	for _, doc := range DefaultCorpus() {
		if err := store.Add(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}
