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

package policy

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowforge/pipeline-core/internal/metrics"
)

// Engine evaluates Policy documents against targets, tracking the
// exceptions registered per policy (spec §4.6). It is safe for
// concurrent use: evaluation is pure and the exception table is guarded
// by mu. An optional Cache short-circuits repeat evaluations of the same
// policy version against the same target.
type Engine struct {
	mu         sync.RWMutex
	exceptions map[string][]Exception // policy ID -> exceptions
	logger     *zap.Logger
	cache      *Cache

	regexMu    sync.RWMutex
	regexCache map[string]*regexp.Regexp
}

func NewEngine(logger *zap.Logger, cache *Cache) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		exceptions: map[string][]Exception{},
		logger:     logger,
		cache:      cache,
		regexCache: map[string]*regexp.Regexp{},
	}
}

// compiledRegex returns pattern's compiled form, compiling it at most
// once per Engine and per distinct pattern string thereafter (policy
// documents are validated at load time via Validator, so patterns
// reaching evaluation are expected to already be syntactically valid).
func (e *Engine) compiledRegex(pattern string) (*regexp.Regexp, error) {
	e.regexMu.RLock()
	re, ok := e.regexCache[pattern]
	e.regexMu.RUnlock()
	if ok {
		return re, nil
	}

	e.regexMu.Lock()
	defer e.regexMu.Unlock()
	if re, ok := e.regexCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.regexCache[pattern] = re
	return re, nil
}

// RegisterException adds an exception so future evaluations of its
// policy can find it via findApplicableException.
func (e *Engine) RegisterException(ex Exception) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exceptions[ex.PolicyID] = append(e.exceptions[ex.PolicyID], ex)
}

func (e *Engine) Exceptions(policyID string) []Exception {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Exception, len(e.exceptions[policyID]))
	copy(out, e.exceptions[policyID])
	return out
}

// Evaluate runs the five-step policy evaluation algorithm: inactive
// policies and environment mismatches short-circuit to a pass with a
// "skipped" metadata marker; otherwise every rule is checked against the
// target, applicable exceptions win over rule evaluation, and the
// overall result passes only if every rule result passed.
func (e *Engine) Evaluate(ctx context.Context, p Policy, target map[string]any) EvaluationResult {
	now := time.Now().UTC()

	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, cacheKey(p, target)); ok {
			metrics.PolicyEvaluationsTotal.WithLabelValues(outcomeLabel(cached)).Inc()
			return cached
		}
	}

	if p.Status != StatusActive {
		result := e.skip(p, target, now, fmt.Sprintf("Policy status is %s", p.Status))
		metrics.PolicyEvaluationsTotal.WithLabelValues("skipped").Inc()
		return result
	}

	currentEnv := Environment("all")
	if v, ok := target["environment"]; ok {
		if s, ok := v.(string); ok {
			currentEnv = Environment(s)
		}
	}
	if !environmentMatches(currentEnv, p.Environments) {
		result := e.skip(p, target, now, fmt.Sprintf("Policy does not apply to environment %s", currentEnv))
		metrics.PolicyEvaluationsTotal.WithLabelValues("skipped").Inc()
		return result
	}

	var ruleResults []RuleResult
	var exceptionsApplied []string
	for _, rule := range p.Rules {
		if exc := e.findApplicableException(p.ID, rule.ID, target, now); exc != nil {
			ruleResults = append(ruleResults, RuleResult{
				RuleID: rule.ID, RuleName: rule.Name, Passed: true,
				ExceptionApplied: exc.ID, Severity: rule.Severity,
			})
			exceptionsApplied = append(exceptionsApplied, exc.ID)
			continue
		}
		passed := e.evaluateConditionGroup(rule.Condition, target)
		ruleResults = append(ruleResults, RuleResult{
			RuleID: rule.ID, RuleName: rule.Name, Passed: passed, Severity: rule.Severity,
		})
	}

	allPassed := true
	for _, r := range ruleResults {
		if !r.Passed {
			allPassed = false
			break
		}
	}

	result := EvaluationResult{
		PolicyID: p.ID, PolicyName: p.Name, PolicyType: p.Type,
		Passed: allPassed, RuleResults: ruleResults, ExceptionsApplied: exceptionsApplied,
		EvaluationTime: now, Target: target,
	}
	if e.cache != nil {
		e.cache.Set(ctx, cacheKey(p, target), result)
	}
	metrics.PolicyEvaluationsTotal.WithLabelValues(outcomeLabel(result)).Inc()
	return result
}

func outcomeLabel(result EvaluationResult) string {
	if skipped, _ := result.Metadata["skipped"].(bool); skipped {
		return "skipped"
	}
	if result.Passed {
		return "passed"
	}
	return "failed"
}

func (e *Engine) skip(p Policy, target map[string]any, now time.Time, reason string) EvaluationResult {
	return EvaluationResult{
		PolicyID: p.ID, PolicyName: p.Name, PolicyType: p.Type,
		Passed: true, RuleResults: []RuleResult{}, ExceptionsApplied: []string{},
		EvaluationTime: now, Target: target,
		Metadata: map[string]any{"skipped": true, "reason": reason},
	}
}

func environmentMatches(current Environment, allowed []Environment) bool {
	for _, env := range allowed {
		if env == current || env == EnvironmentAll {
			return true
		}
	}
	return false
}

// findApplicableException returns the first registered exception for
// policyID that covers ruleID, has not expired, and (if it carries its
// own condition group) matches target.
func (e *Engine) findApplicableException(policyID, ruleID string, target map[string]any, now time.Time) *Exception {
	e.mu.RLock()
	candidates := e.exceptions[policyID]
	e.mu.RUnlock()

	for i := range candidates {
		exc := candidates[i]
		if !containsString(exc.RuleIDs, ruleID) {
			continue
		}
		if exc.ExpiresAt != nil && exc.ExpiresAt.Before(now) {
			continue
		}
		if exc.Conditions != nil && !e.evaluateConditionGroup(*exc.Conditions, target) {
			continue
		}
		return &exc
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (e *Engine) evaluateConditionGroup(g ConditionGroup, target map[string]any) bool {
	if g.Leaf != nil {
		return e.evaluateCondition(*g.Leaf, target)
	}
	if len(g.Conditions) == 0 {
		return true
	}
	if g.Operator == LogicalOr {
		for _, child := range g.Conditions {
			if e.evaluateConditionGroup(child, target) {
				return true
			}
		}
		return false
	}
	for _, child := range g.Conditions {
		if !e.evaluateConditionGroup(child, target) {
			return false
		}
	}
	return true
}

func (e *Engine) evaluateCondition(c Condition, target map[string]any) bool {
	fieldValue, present := getFieldValue(target, c.Field)

	switch c.Operator {
	case OpEquals:
		return present && looseEquals(fieldValue, c.Value)
	case OpNotEquals:
		return !present || !looseEquals(fieldValue, c.Value)
	case OpContains:
		return containsValue(fieldValue, c.Value)
	case OpNotContains:
		return !containsValue(fieldValue, c.Value)
	case OpStartsWith:
		s, ok1 := fieldValue.(string)
		v, ok2 := c.Value.(string)
		return ok1 && ok2 && strings.HasPrefix(s, v)
	case OpEndsWith:
		s, ok1 := fieldValue.(string)
		v, ok2 := c.Value.(string)
		return ok1 && ok2 && strings.HasSuffix(s, v)
	case OpGreaterThan:
		return compareNumeric(fieldValue, c.Value, func(a, b float64) bool { return a > b })
	case OpLessThan:
		return compareNumeric(fieldValue, c.Value, func(a, b float64) bool { return a < b })
	case OpRegexMatch:
		s, ok1 := fieldValue.(string)
		pattern, ok2 := c.Value.(string)
		if !ok1 || !ok2 {
			return false
		}
		re, err := e.compiledRegex(pattern)
		if err != nil {
			e.logger.Warn("invalid regex_match pattern", zap.String("field", c.Field), zap.String("pattern", pattern))
			return false
		}
		loc := re.FindStringIndex(s)
		return loc != nil && loc[0] == 0 // anchored at start, mirrors re.match semantics
	case OpExists:
		return present && fieldValue != nil
	case OpNotExists:
		return !present || fieldValue == nil
	default:
		e.logger.Warn("unknown condition operator", zap.String("operator", string(c.Operator)), zap.String("field", c.Field))
		return false
	}
}

// getFieldValue dot-walks target for field; returns (nil, false) the
// moment any segment is missing or the current value is not a nested map.
func getFieldValue(target map[string]any, field string) (any, bool) {
	parts := strings.Split(field, ".")
	var current any = target
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

func looseEquals(a, b any) bool {
	if fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b) {
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			return af == bf
		}
		return true
	}
	return false
}

func containsValue(fieldValue, needle any) bool {
	switch v := fieldValue.(type) {
	case []any:
		for _, item := range v {
			if looseEquals(item, needle) {
				return true
			}
		}
		return false
	case string:
		s, ok := needle.(string)
		return ok && strings.Contains(v, s)
	default:
		return false
	}
}

func compareNumeric(a, b any, cmp func(x, y float64) bool) bool {
	if a == nil {
		return false
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false
	}
	return cmp(af, bf)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// GetViolations extracts a Violation for every rule_result that failed
// without an exception applied. Unlike the reference implementation,
// remediation steps are populated from the rule's own
// RemediationSteps field since the full Policy (not just the
// evaluation result) is available here.
func GetViolations(p Policy, result EvaluationResult) []Violation {
	rulesByID := make(map[string]Rule, len(p.Rules))
	for _, r := range p.Rules {
		rulesByID[r.ID] = r
	}

	var violations []Violation
	for _, rr := range result.RuleResults {
		if rr.Passed || rr.ExceptionApplied != "" {
			continue
		}
		rule := rulesByID[rr.RuleID]
		violations = append(violations, Violation{
			ID:               fmt.Sprintf("violation-%s-%s", p.ID, rr.RuleID),
			PolicyID:         p.ID,
			RuleID:           rr.RuleID,
			Severity:         rr.Severity,
			Description:      fmt.Sprintf("Violation of rule %s", rr.RuleName),
			Target:           result.Target,
			DetectedAt:       result.EvaluationTime,
			RemediationSteps: rule.RemediationSteps,
		})
	}
	return violations
}

// ShouldBlockPipeline reports whether any failed result belongs to a
// blocking-enforcement policy, and collects every violation across all
// failed results. This resolves an Open Question against the reference
// implementation, which checks evaluation_result.metadata for an
// "enforcement_mode" key that evaluate_policy never actually sets
// — here the policy's own EnforcementMode field drives
// the decision directly.
func ShouldBlockPipeline(policies map[string]Policy, results []EvaluationResult) (bool, []Violation) {
	shouldBlock := false
	var allViolations []Violation
	for _, result := range results {
		if result.Passed {
			continue
		}
		p, ok := policies[result.PolicyID]
		if !ok {
			continue
		}
		allViolations = append(allViolations, GetViolations(p, result)...)
		if p.EnforcementMode == EnforcementBlocking {
			shouldBlock = true
		}
	}
	return shouldBlock, allViolations
}

func cacheKey(p Policy, target map[string]any) string {
	return fmt.Sprintf("%s@%s:%x", p.ID, p.Version, fmt.Sprintf("%v", target))
}
