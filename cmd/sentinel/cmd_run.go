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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianSentinel/pkg/logging"
	"github.com/AleutianAI/AleutianSentinel/services/llm"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/alerting"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/analysis"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/collector"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/config"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/detector"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/knowledge"
	"github.com/AleutianAI/AleutianSentinel/services/monitor/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the telemetry monitoring pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		return runPipeline(cmd.Context(), &cfg)
	},
}

func init() {
	runCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "listen address for the Prometheus /metrics endpoint (disabled when empty)")
	runCmd.Flags().BoolVar(&flagTrace, "trace", false, "emit OpenTelemetry spans to stdout")
}

func runPipeline(parent context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "sentinel",
		JSON:    cfg.Logging.JSON,
	})
	defer logger.Close()
	log := logger.Slog()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flagTrace {
		shutdown, err := initTracing()
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	source, err := buildSource(cfg, log)
	if err != nil {
		return err
	}
	defer source.Stop()

	client, err := buildLLMClient(cfg, log)
	if err != nil {
		return err
	}

	store, watcher, err := buildKnowledge(ctx, cfg, log)
	if err != nil {
		return err
	}

	notifier, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}

	synthesizer := analysis.NewSynthesizer(store, cfg.Analysis.KnowledgeResults, log)
	runner := pipeline.NewRunner(
		source,
		detector.New(cfg.Thresholds),
		detector.NewGatingPolicy(cfg.Analysis.ComplexKeywords),
		analysis.NewOrchestrator(cfg.Analysis, client, synthesizer, log),
		alerting.NewFactory(cfg.Thresholds),
		alerting.NewManager(notifier, log),
		log,
	)
	runner.SetSummary(os.Stdout)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return runner.Run(ctx) })

	if watcher != nil {
		group.Go(func() error {
			defer watcher.Stop()
			if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if flagMetricsAddr != "" {
		group.Go(func() error { return serveMetrics(ctx, flagMetricsAddr, log) })
	}

	log.Info("sentinel started",
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.Bool("weaviate", cfg.Knowledge.WeaviateURL != ""),
		slog.String("metrics_addr", flagMetricsAddr))
	return group.Wait()
}

// buildSource selects replay or simulated telemetry.
func buildSource(cfg *config.Config, log *slog.Logger) (collector.Source, error) {
	if cfg.Collector.ReplayFile != "" {
		return collector.NewReplaySource(cfg.Collector.ReplayFile, cfg.Collector.ErrorCooldown, log)
	}
	return collector.NewSimulatedSource(cfg.Collector, 0), nil
}

// buildLLMClient returns nil for provider "none": the pipeline then
// runs rule-based only.
func buildLLMClient(cfg *config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.Model, log)
	case "ollama":
		return llm.NewOllamaClient(cfg.LLM.BaseURL, cfg.LLM.Model, log)
	default:
		return nil, nil
	}
}

// buildKnowledge assembles the store stack: weaviate behind the
// in-memory fallback when configured, memory alone otherwise. Both are
// seeded with the built-in corpus. The returned watcher is nil unless a
// watch directory is configured.
func buildKnowledge(ctx context.Context, cfg *config.Config, log *slog.Logger) (knowledge.Store, *knowledge.Watcher, error) {
	memory := knowledge.NewMemoryStore()

	var store knowledge.Store = memory
	if cfg.Knowledge.WeaviateURL != "" {
		weaviateStore, err := knowledge.NewWeaviateStore(ctx, knowledge.WeaviateConfig{
			URL:          cfg.Knowledge.WeaviateURL,
			ClassName:    cfg.Knowledge.ClassName,
			ChunkSize:    cfg.Knowledge.ChunkSize,
			ChunkOverlap: cfg.Knowledge.ChunkOverlap,
			Logger:       log,
		})
		if err != nil {
			// Weaviate being down at startup is a degradation, not a
			// fatal error.
			log.Warn("weaviate unavailable, knowledge store runs in-memory only",
				slog.Any("error", err))
		} else {
			store = knowledge.NewFallbackStore(weaviateStore, memory, log)
		}
	}

	if err := knowledge.Seed(ctx, store); err != nil {
		return nil, nil, fmt.Errorf("seed knowledge store: %w", err)
	}

	var watcher *knowledge.Watcher
	if cfg.Knowledge.WatchDir != "" {
		var err error
		watcher, err = knowledge.NewWatcher(cfg.Knowledge.WatchDir, store, log)
		if err != nil {
			return nil, nil, err
		}
	}
	return store, watcher, nil
}

// buildNotifier assembles the channel fanout from config. Console and
// log channels are always on; email and webhook join when configured.
func buildNotifier(cfg *config.Config, log *slog.Logger) (alerting.Notifier, error) {
	channels := []alerting.Notifier{
		alerting.NewConsoleNotifier(nil),
		alerting.NewLogNotifier(log),
	}

	if cfg.Alerting.Email.SMTPHost != "" && len(cfg.Alerting.Email.To) > 0 {
		email, err := alerting.NewEmailNotifier(
			cfg.Alerting.Email.SMTPHost,
			cfg.Alerting.Email.SMTPPort,
			cfg.Alerting.Email.User,
			cfg.Alerting.Email.Password,
			cfg.Alerting.Email.From,
			cfg.Alerting.Email.To,
		)
		if err != nil {
			return nil, err
		}
		channels = append(channels, email)
	}

	if cfg.Alerting.WebhookURL != "" {
		webhook, err := alerting.NewWebhookNotifier(cfg.Alerting.WebhookURL)
		if err != nil {
			return nil, err
		}
		channels = append(channels, webhook)
	}

	return alerting.NewMultiNotifier(channels, cfg.Alerting.RatePerMinute, cfg.Alerting.RateBurst, log), nil
}

// serveMetrics exposes /metrics until the context is canceled.
func serveMetrics(ctx context.Context, addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("metrics endpoint listening", slog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// initTracing installs a stdout span exporter.
func initTracing() (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		provider.Shutdown(ctx)
	}, nil
}
