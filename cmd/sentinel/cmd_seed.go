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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSentinel/services/monitor/config"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/knowledge"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ingest the built-in runbook corpus into the weaviate knowledge store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if cfg.Knowledge.WeaviateURL == "" {
			return fmt.Errorf("knowledge.weaviate_url is not configured; the in-memory store is seeded automatically at startup")
		}

		store, err := knowledge.NewWeaviateStore(cmd.Context(), knowledge.WeaviateConfig{
			URL:          cfg.Knowledge.WeaviateURL,
			ClassName:    cfg.Knowledge.ClassName,
			ChunkSize:    cfg.Knowledge.ChunkSize,
			ChunkOverlap: cfg.Knowledge.ChunkOverlap,
		})
		if err != nil {
			return err
		}

		if err := knowledge.Seed(cmd.Context(), store); err != nil {
			return err
		}
		fmt.Printf("seeded %d runbooks into class %s\n", len(knowledge.DefaultCorpus()), cfg.Knowledge.ClassName)
		return nil
	},
}
