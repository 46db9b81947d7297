// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig      string
	flagMetricsAddr string
	flagTrace       bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "AleutianSentinel watches host telemetry and raises AI-analyzed alerts",
	Long: `AleutianSentinel consumes host telemetry snapshots, detects threshold
breaches, runs a degrading AI diagnosis ladder over the anomalies, and
manages the resulting alert lifecycle (dedup, suppression, escalation,
notification).`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "path to the YAML configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}
