/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the YAML configuration shared by the dependency
// graph, policy, and remediation engines. Fields mirror the environment
// variables enumerated in spec §6: POLICY_DIR, POLICY_ARCHIVE_DIR,
// POLICY_TEMPLATE_DIR, COMPLIANCE_REPORT_DIR, and a remediation data
// root, plus the §5 concurrency and timeout knobs.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
)

type PolicyPaths struct {
	PolicyDir           string `yaml:"policy_dir"`
	ArchiveDir          string `yaml:"archive_dir"`
	TemplateDir         string `yaml:"template_dir"`
	ComplianceReportDir string `yaml:"compliance_report_dir"`
}

type Concurrency struct {
	MaxParallelJobs        int           `yaml:"max_parallel_jobs"`
	RemediationStepTimeout time.Duration `yaml:"remediation_step_timeout"`
	RollbackStepTimeout    time.Duration `yaml:"rollback_step_timeout"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ScannerConfig struct {
	IncludeGlobs []string `yaml:"include_globs"`
	ExcludeGlobs []string `yaml:"exclude_globs"`
	MaxDepth     int      `yaml:"max_depth"`
}

type Config struct {
	DataDir     string        `yaml:"data_dir"`
	Policy      PolicyPaths   `yaml:"policy"`
	Concurrency Concurrency   `yaml:"concurrency"`
	Logging     Logging       `yaml:"logging"`
	Scanner     ScannerConfig `yaml:"scanner"`
}

func defaults() *Config {
	return &Config{
		DataDir: "./data",
		Policy: PolicyPaths{
			PolicyDir:           "./policies",
			ArchiveDir:          "./policies/.archive",
			TemplateDir:         "./policies/templates",
			ComplianceReportDir: "./reports",
		},
		Concurrency: Concurrency{
			MaxParallelJobs:        4,
			RemediationStepTimeout: 600 * time.Second,
			RollbackStepTimeout:    1800 * time.Second,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Scanner: ScannerConfig{
			MaxDepth: 0,
		},
	}
}

// Load reads and parses the YAML file at path, applying defaults for
// any field the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewResourceError(path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorTypeValidation, "invalid config file %s", path)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	d := defaults()
	if cfg.DataDir == "" {
		cfg.DataDir = d.DataDir
	}
	if cfg.Policy.PolicyDir == "" {
		cfg.Policy.PolicyDir = d.Policy.PolicyDir
	}
	if cfg.Policy.ArchiveDir == "" {
		cfg.Policy.ArchiveDir = d.Policy.ArchiveDir
	}
	if cfg.Policy.TemplateDir == "" {
		cfg.Policy.TemplateDir = d.Policy.TemplateDir
	}
	if cfg.Policy.ComplianceReportDir == "" {
		cfg.Policy.ComplianceReportDir = d.Policy.ComplianceReportDir
	}
	if cfg.Concurrency.MaxParallelJobs == 0 {
		cfg.Concurrency.MaxParallelJobs = d.Concurrency.MaxParallelJobs
	}
	if cfg.Concurrency.RemediationStepTimeout == 0 {
		cfg.Concurrency.RemediationStepTimeout = d.Concurrency.RemediationStepTimeout
	}
	if cfg.Concurrency.RollbackStepTimeout == 0 {
		cfg.Concurrency.RollbackStepTimeout = d.Concurrency.RollbackStepTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
}

// FromEnv overlays §6's environment variables on top of cfg, for
// deployments that configure paths via env rather than the YAML file,
// then fills every field that is still empty with its default.
func FromEnv(cfg *Config) {
	if v := os.Getenv("POLICY_DIR"); v != "" {
		cfg.Policy.PolicyDir = v
	}
	if v := os.Getenv("POLICY_ARCHIVE_DIR"); v != "" {
		cfg.Policy.ArchiveDir = v
	}
	if v := os.Getenv("POLICY_TEMPLATE_DIR"); v != "" {
		cfg.Policy.TemplateDir = v
	}
	if v := os.Getenv("COMPLIANCE_REPORT_DIR"); v != "" {
		cfg.Policy.ComplianceReportDir = v
	}
	if v := os.Getenv("REMEDIATION_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	applyDefaults(cfg)
}
