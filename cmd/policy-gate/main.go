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

// Command policy-gate is the enforcement entry point described in spec
// §6: it loads the policy set from POLICY_DIR (or -config), evaluates
// every matching policy against a target descriptor, and exits 0 when
// the target passes, 1 when a blocking policy is violated, or 2 on an
// internal error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/flowforge/pipeline-core/internal/config"
	applog "github.com/flowforge/pipeline-core/internal/log"
	"github.com/flowforge/pipeline-core/pkg/policy"
)

const (
	exitPassed   = 0
	exitBlocked  = 1
	exitInternal = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("policy-gate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to the YAML config file (optional; env vars and defaults apply otherwise)")
	targetPath := fs.String("target", "", "path to a JSON file describing the evaluation target")
	policyType := fs.String("type", "", "restrict evaluation to one policy type (security|compliance|operational)")
	environment := fs.String("environment", "", "restrict evaluation to policies applicable to this environment")
	if err := fs.Parse(args); err != nil {
		return exitInternal
	}
	if *targetPath == "" {
		fmt.Fprintln(stderr, "policy-gate: -target is required")
		return exitInternal
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "policy-gate: loading config: %v\n", err)
		return exitInternal
	}

	logger, err := applog.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(stderr, "policy-gate: building logger: %v\n", err)
		return exitInternal
	}
	defer logger.Sync() //nolint:errcheck

	target, err := loadTarget(*targetPath)
	if err != nil {
		fmt.Fprintf(stderr, "policy-gate: loading target: %v\n", err)
		return exitInternal
	}

	result, err := evaluateGate(context.Background(), cfg, logger, target, policy.Type(*policyType), policy.Environment(*environment))
	if err != nil {
		fmt.Fprintf(stderr, "policy-gate: %v\n", err)
		return exitInternal
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(stderr, "policy-gate: encoding result: %v\n", err)
		return exitInternal
	}

	if result.Blocked {
		return exitBlocked
	}
	return exitPassed
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := &config.Config{}
		config.FromEnv(cfg)
		return cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	config.FromEnv(cfg)
	return cfg, nil
}

func loadTarget(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var target map[string]any
	if err := json.Unmarshal(data, &target); err != nil {
		return nil, err
	}
	return target, nil
}

// GateResult is the summary printed to stdout, mirroring the per-policy
// evaluation and violation shapes from spec §4.6/§6.
type GateResult struct {
	Target      map[string]any            `json:"target"`
	Evaluations []policy.EvaluationResult `json:"policy_evaluations"`
	Violations  []policy.Violation        `json:"violations"`
	Blocked     bool                      `json:"blocked"`
}

func evaluateGate(ctx context.Context, cfg *config.Config, logger *zap.Logger, target map[string]any, policyType policy.Type, environment policy.Environment) (GateResult, error) {
	store, err := policy.NewStore(cfg.Policy.PolicyDir, cfg.Policy.ArchiveDir, logger)
	if err != nil {
		return GateResult{}, err
	}

	policies, err := store.List(policyType, "", environment, nil)
	if err != nil {
		return GateResult{}, err
	}

	engine := policy.NewEngine(logger, nil)
	byID := make(map[string]policy.Policy, len(policies))
	evaluations := make([]policy.EvaluationResult, 0, len(policies))
	var violations []policy.Violation
	for _, p := range policies {
		byID[p.ID] = p
		res := engine.Evaluate(ctx, p, target)
		evaluations = append(evaluations, res)
		violations = append(violations, policy.GetViolations(p, res)...)
	}

	blocked, _ := policy.ShouldBlockPipeline(byID, evaluations)
	if violations == nil {
		violations = []policy.Violation{}
	}

	return GateResult{
		Target:      target,
		Evaluations: evaluations,
		Violations:  violations,
		Blocked:     blocked,
	}, nil
}
