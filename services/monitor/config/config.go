// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config provides configuration loading for the monitor
// service.
//
// One YAML document configures every component. Components never read
// ambient process state after construction; the only environment
// lookups happen here, at load time, for secrets that should not live
// in the YAML file (API keys, SMTP passwords).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileSize caps the YAML file size (1MB). Prevents memory
// issues from accidentally pointing the loader at a large file.
const MaxConfigFileSize = 1024 * 1024

// Thresholds is the tiered threshold table used by the detector and
// the alert factory. Percent values are 0-100; load values are raw
// 1-minute load averages.
type Thresholds struct {
	CPUWarning     float64 `yaml:"cpu_warning"`
	CPUCritical    float64 `yaml:"cpu_critical"`
	MemoryWarning  float64 `yaml:"memory_warning"`
	MemoryCritical float64 `yaml:"memory_critical"`
	LoadWarning    float64 `yaml:"load_warning"`
	LoadCritical   float64 `yaml:"load_critical"`

	// IOBoundLoad / IOBoundCPUBelow define the compound I/O-bound
	// signature: load above the former while CPU is below the latter.
	IOBoundLoad     float64 `yaml:"io_bound_load"`
	IOBoundCPUBelow float64 `yaml:"io_bound_cpu_below"`
}

// Analysis configures the staged analysis pipeline.
type Analysis struct {
	// TierTimeout bounds each LLM-backed tier. A tier that exceeds it
	// is abandoned and the next tier runs.
	TierTimeout time.Duration `yaml:"tier_timeout"`

	// KnowledgeResults is how many snippets to retrieve per issue.
	KnowledgeResults int `yaml:"knowledge_results"`

	// ComplexKeywords gate the expensive tiers: deep analysis runs only
	// when an issue label contains one of these.
	ComplexKeywords []string `yaml:"complex_keywords"`
}

// LLM selects and configures the generative backend.
type LLM struct {
	// Provider is "openai", "ollama" or "none". With "none" the
	// pipeline runs rule-based only.
	Provider string `yaml:"provider"`

	// Model is the model name for the chosen provider.
	Model string `yaml:"model"`

	// BaseURL is the Ollama server URL. Ignored for openai.
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the OpenAI API
	// key. The key itself never appears in YAML.
	APIKeyEnv string `yaml:"api_key_env"`

	// APIKey is resolved from APIKeyEnv at load time.
	APIKey string `yaml:"-"`
}

// Knowledge configures the runbook knowledge store.
type Knowledge struct {
	// WeaviateURL enables the weaviate-backed store when non-empty;
	// otherwise the in-memory store serves alone.
	WeaviateURL string `yaml:"weaviate_url"`

	// ClassName is the weaviate class for runbook chunks.
	ClassName string `yaml:"class_name"`

	// WatchDir, when set, is watched for new runbook markdown files to
	// ingest at runtime.
	WatchDir string `yaml:"watch_dir"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// Email configures the SMTP notifier. Disabled unless User is set.
type Email struct {
	SMTPHost    string   `yaml:"smtp_host"`
	SMTPPort    int      `yaml:"smtp_port"`
	User        string   `yaml:"user"`
	PasswordEnv string   `yaml:"password_env"`
	Password    string   `yaml:"-"`
	From        string   `yaml:"from"`
	To          []string `yaml:"to"`
}

// Alerting configures the lifecycle manager and notifier fanout.
type Alerting struct {
	// RatePerMinute bounds notifier deliveries across all channels.
	RatePerMinute int `yaml:"rate_per_minute"`

	// RateBurst is the limiter burst size.
	RateBurst int `yaml:"rate_burst"`

	// WebhookURL enables the webhook notifier when non-empty.
	WebhookURL string `yaml:"webhook_url"`

	Email Email `yaml:"email"`
}

// Collector configures the telemetry source.
type Collector struct {
	// Interval between snapshots for the simulated source.
	Interval time.Duration `yaml:"interval"`

	// ErrorCooldown is the wait after a malformed line before the
	// replay source reads again. The simulated source never errors.
	ErrorCooldown time.Duration `yaml:"error_cooldown"`

	// ReplayFile switches the source to JSONL replay when set.
	ReplayFile string `yaml:"replay_file"`

	// Hostname reported by the simulated source.
	Hostname string `yaml:"hostname"`

	// Cores is the simulated core count.
	Cores int `yaml:"cores"`
}

// Logging configures pkg/logging.
type Logging struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// Config is the root configuration document.
type Config struct {
	Thresholds Thresholds `yaml:"thresholds"`
	Analysis   Analysis   `yaml:"analysis"`
	LLM        LLM        `yaml:"llm"`
	Knowledge  Knowledge  `yaml:"knowledge"`
	Alerting   Alerting   `yaml:"alerting"`
	Collector  Collector  `yaml:"collector"`
	Logging    Logging    `yaml:"logging"`
}

// Default returns sensible defaults. Threshold values match the tiered
// table the detector documents: CPU 95/80, memory 95/85, load 8/4, and
// the I/O-bound signature load>5 with cpu<50.
func Default() Config {
	return Config{
		Thresholds: Thresholds{
			CPUWarning:      80,
			CPUCritical:     95,
			MemoryWarning:   85,
			MemoryCritical:  95,
			LoadWarning:     4,
			LoadCritical:    8,
			IOBoundLoad:     5,
			IOBoundCPUBelow: 50,
		},
		Analysis: Analysis{
			TierTimeout:      30 * time.Second,
			KnowledgeResults: 2,
			ComplexKeywords:  []string{"severely", "critically", "bottleneck", "insufficient"},
		},
		LLM: LLM{
			Provider:  "none",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Knowledge: Knowledge{
			ClassName:    "Runbook",
			ChunkSize:    1000,
			ChunkOverlap: 100,
		},
		Alerting: Alerting{
			RatePerMinute: 60,
			RateBurst:     10,
			Email: Email{
				SMTPHost:    "smtp.gmail.com",
				SMTPPort:    587,
				PasswordEnv: "ALERT_EMAIL_PASSWORD",
			},
		},
		Collector: Collector{
			Interval:      3 * time.Second,
			ErrorCooldown: 5 * time.Second,
			Hostname:      "localhost",
			Cores:         8,
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads the YAML file at path, overlays it on defaults, resolves
// secrets from the environment and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	info, err := os.Stat(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if info.Size() > MaxConfigFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes", info.Size())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	cfg.resolveSecrets()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyDefaults fills zero values with defaults so a partial YAML file
// still yields a runnable configuration.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Thresholds.CPUWarning == 0 {
		c.Thresholds.CPUWarning = d.Thresholds.CPUWarning
	}
	if c.Thresholds.CPUCritical == 0 {
		c.Thresholds.CPUCritical = d.Thresholds.CPUCritical
	}
	if c.Thresholds.MemoryWarning == 0 {
		c.Thresholds.MemoryWarning = d.Thresholds.MemoryWarning
	}
	if c.Thresholds.MemoryCritical == 0 {
		c.Thresholds.MemoryCritical = d.Thresholds.MemoryCritical
	}
	if c.Thresholds.LoadWarning == 0 {
		c.Thresholds.LoadWarning = d.Thresholds.LoadWarning
	}
	if c.Thresholds.LoadCritical == 0 {
		c.Thresholds.LoadCritical = d.Thresholds.LoadCritical
	}
	if c.Thresholds.IOBoundLoad == 0 {
		c.Thresholds.IOBoundLoad = d.Thresholds.IOBoundLoad
	}
	if c.Thresholds.IOBoundCPUBelow == 0 {
		c.Thresholds.IOBoundCPUBelow = d.Thresholds.IOBoundCPUBelow
	}
	if c.Analysis.TierTimeout == 0 {
		c.Analysis.TierTimeout = d.Analysis.TierTimeout
	}
	if c.Analysis.KnowledgeResults == 0 {
		c.Analysis.KnowledgeResults = d.Analysis.KnowledgeResults
	}
	if len(c.Analysis.ComplexKeywords) == 0 {
		c.Analysis.ComplexKeywords = d.Analysis.ComplexKeywords
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = d.LLM.Provider
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = d.LLM.APIKeyEnv
	}
	if c.Knowledge.ClassName == "" {
		c.Knowledge.ClassName = d.Knowledge.ClassName
	}
	if c.Knowledge.ChunkSize == 0 {
		c.Knowledge.ChunkSize = d.Knowledge.ChunkSize
	}
	if c.Knowledge.ChunkOverlap == 0 {
		c.Knowledge.ChunkOverlap = d.Knowledge.ChunkOverlap
	}
	if c.Alerting.RatePerMinute == 0 {
		c.Alerting.RatePerMinute = d.Alerting.RatePerMinute
	}
	if c.Alerting.RateBurst == 0 {
		c.Alerting.RateBurst = d.Alerting.RateBurst
	}
	if c.Alerting.Email.SMTPHost == "" {
		c.Alerting.Email.SMTPHost = d.Alerting.Email.SMTPHost
	}
	if c.Alerting.Email.SMTPPort == 0 {
		c.Alerting.Email.SMTPPort = d.Alerting.Email.SMTPPort
	}
	if c.Alerting.Email.PasswordEnv == "" {
		c.Alerting.Email.PasswordEnv = d.Alerting.Email.PasswordEnv
	}
	if c.Collector.Interval == 0 {
		c.Collector.Interval = d.Collector.Interval
	}
	if c.Collector.ErrorCooldown == 0 {
		c.Collector.ErrorCooldown = d.Collector.ErrorCooldown
	}
	if c.Collector.Hostname == "" {
		c.Collector.Hostname = d.Collector.Hostname
	}
	if c.Collector.Cores == 0 {
		c.Collector.Cores = d.Collector.Cores
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// resolveSecrets pulls API keys and passwords from the environment.
func (c *Config) resolveSecrets() {
	if c.LLM.APIKeyEnv != "" {
		c.LLM.APIKey = strings.TrimSpace(os.Getenv(c.LLM.APIKeyEnv))
	}
	if c.Alerting.Email.PasswordEnv != "" {
		c.Alerting.Email.Password = strings.TrimSpace(os.Getenv(c.Alerting.Email.PasswordEnv))
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	if c.Thresholds.CPUWarning >= c.Thresholds.CPUCritical {
		return errors.New("thresholds: cpu_warning must be below cpu_critical")
	}
	if c.Thresholds.MemoryWarning >= c.Thresholds.MemoryCritical {
		return errors.New("thresholds: memory_warning must be below memory_critical")
	}
	if c.Thresholds.LoadWarning >= c.Thresholds.LoadCritical {
		return errors.New("thresholds: load_warning must be below load_critical")
	}
	if c.Analysis.TierTimeout <= 0 {
		return errors.New("analysis: tier_timeout must be positive")
	}
	if c.Analysis.KnowledgeResults < 0 {
		return errors.New("analysis: knowledge_results must be non-negative")
	}
	switch c.LLM.Provider {
	case "none", "openai", "ollama":
	default:
		return fmt.Errorf("llm: unknown provider %q", c.LLM.Provider)
	}
	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		return fmt.Errorf("llm: provider openai requires %s to be set", c.LLM.APIKeyEnv)
	}
	if c.LLM.Provider == "ollama" && c.LLM.BaseURL == "" {
		return errors.New("llm: provider ollama requires base_url")
	}
	if c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return errors.New("knowledge: chunk_overlap must be below chunk_size")
	}
	if c.Alerting.RatePerMinute < 1 {
		return errors.New("alerting: rate_per_minute must be at least 1")
	}
	if c.Collector.Interval <= 0 {
		return errors.New("collector: interval must be positive")
	}
	return nil
}
