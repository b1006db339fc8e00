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
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
)

// ComplianceStatus is the per-requirement rollup used in a compliance
// report (spec §6).
type ComplianceStatus string

const (
	ComplianceCompliant     ComplianceStatus = "compliant"
	ComplianceNonCompliant  ComplianceStatus = "non_compliant"
	ComplianceNotApplicable ComplianceStatus = "not_applicable"
	ComplianceUnknown       ComplianceStatus = "unknown"
)

type Requirement struct {
	ID          string
	Name        string
	Description string
	PolicyTypes []Type
	Severity    Severity
	Status      ComplianceStatus
}

type Standard struct {
	ID           string
	Name         string
	Description  string
	Version      string
	Requirements []Requirement
}

type ComplianceViolation struct {
	ID               string
	StandardID       string
	StandardName     string
	RequirementID    string
	RequirementName  string
	Severity         Severity
	Description      string
	PolicyViolations []string
	RemediationSteps []string
}

type ReportSummary struct {
	StandardsCount    int
	RequirementsCount int
	ViolationsCount   int
	StatusCounts      map[ComplianceStatus]int
	SeverityCounts    map[Severity]int
	ComplianceScore   float64
	OverallStatus     ComplianceStatus
}

type ComplianceReport struct {
	ID                string
	GeneratedAt       time.Time
	Target            map[string]any
	Standards         []Standard
	Violations        []ComplianceViolation
	PolicyEvaluations []EvaluationResult
	Summary           ReportSummary
}

// StandardCatalog is the set of compliance standards a Reporter maps
// policy evaluations onto. DefaultCatalog ports the three standards the
// reference implementation hardcodes (pci-dss, hipaa, nist-800-53).
type StandardCatalog map[string]Standard

func DefaultCatalog() StandardCatalog {
	return StandardCatalog{
		"pci-dss": {
			ID: "pci-dss", Name: "PCI DSS", Description: "Payment Card Industry Data Security Standard", Version: "4.0",
			Requirements: []Requirement{
				{ID: "pci-dss-1", Name: "Install and maintain network security controls",
					Description: "Network security controls (NSCs), such as firewalls and other network security technologies, restrict traffic to and from untrusted networks and prohibit direct public access between untrusted networks and any system in the cardholder data environment.",
					PolicyTypes: []Type{TypeSecurity}, Severity: SeverityHigh},
				{ID: "pci-dss-2", Name: "Apply secure configurations to all system components",
					Description: "System components are configured and managed in accordance with security configuration standards.",
					PolicyTypes: []Type{TypeSecurity, TypeOperational}, Severity: SeverityHigh},
				{ID: "pci-dss-3", Name: "Protect stored account data",
					Description: "Account data storage is minimized, and sensitive data is encrypted.",
					PolicyTypes: []Type{TypeSecurity, TypeCompliance}, Severity: SeverityCritical},
			},
		},
		"hipaa": {
			ID: "hipaa", Name: "HIPAA", Description: "Health Insurance Portability and Accountability Act", Version: "2.0",
			Requirements: []Requirement{
				{ID: "hipaa-1", Name: "Access Control",
					Description: "Implement technical policies and procedures for electronic information systems that maintain electronic protected health information to allow access only to those persons or software programs that have been granted access rights.",
					PolicyTypes: []Type{TypeSecurity, TypeCompliance}, Severity: SeverityHigh},
				{ID: "hipaa-2", Name: "Audit Controls",
					Description: "Implement hardware, software, and/or procedural mechanisms that record and examine activity in information systems that contain or use electronic protected health information.",
					PolicyTypes: []Type{TypeSecurity, TypeOperational}, Severity: SeverityMedium},
				{ID: "hipaa-3", Name: "Integrity",
					Description: "Implement policies and procedures to protect electronic protected health information from improper alteration or destruction.",
					PolicyTypes: []Type{TypeSecurity, TypeCompliance}, Severity: SeverityHigh},
			},
		},
		"nist-800-53": {
			ID: "nist-800-53", Name: "NIST 800-53", Description: "National Institute of Standards and Technology Special Publication 800-53", Version: "Rev. 5",
			Requirements: []Requirement{
				{ID: "nist-ac-1", Name: "Access Control Policy and Procedures",
					Description: "The organization develops, documents, and disseminates an access control policy that addresses purpose, scope, roles, responsibilities, management commitment, coordination among organizational entities, and compliance.",
					PolicyTypes: []Type{TypeSecurity, TypeCompliance}, Severity: SeverityHigh},
				{ID: "nist-cm-1", Name: "Configuration Management Policy and Procedures",
					Description: "The organization develops, documents, and disseminates a configuration management policy that addresses purpose, scope, roles, responsibilities, management commitment, coordination among organizational entities, and compliance.",
					PolicyTypes: []Type{TypeOperational}, Severity: SeverityMedium},
				{ID: "nist-si-1", Name: "System and Information Integrity Policy and Procedures",
					Description: "The organization develops, documents, and disseminates a system and information integrity policy that addresses purpose, scope, roles, responsibilities, management commitment, coordination among organizational entities, and compliance.",
					PolicyTypes: []Type{TypeSecurity, TypeOperational}, Severity: SeverityHigh},
			},
		},
	}
}

// Reporter generates and persists ComplianceReport documents from
// policy evaluation results (spec §4.7/§6), grounded on ComplianceReporter.
type Reporter struct {
	catalog   StandardCatalog
	reportDir string
	logger    *zap.Logger
}

func NewReporter(catalog StandardCatalog, reportDir string, logger *zap.Logger) (*Reporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return nil, apperrors.NewResourceError(reportDir, err)
	}
	return &Reporter{catalog: catalog, reportDir: reportDir, logger: logger}, nil
}

type requirementTally struct {
	requirement Requirement
	standardID  string
	policies    []EvaluationResult
	violations  []Violation
}

// Generate builds a ComplianceReport from evaluation results against
// the named standards (all catalog standards if standardIDs is empty
// or names nothing the catalog recognizes).
func (r *Reporter) Generate(policies map[string]Policy, results []EvaluationResult, standardIDs []string, target map[string]any) (ComplianceReport, error) {
	selected := r.selectStandards(standardIDs)

	tallies := map[string]*requirementTally{}
	for stdID, std := range selected {
		for _, req := range std.Requirements {
			tallies[req.ID] = &requirementTally{requirement: req, standardID: stdID}
		}
	}

	for _, result := range results {
		for reqID := range r.matchingRequirements(result, selected) {
			t := tallies[reqID]
			t.policies = append(t.policies, result)
			if !result.Passed {
				if p, ok := policies[result.PolicyID]; ok {
					t.violations = append(t.violations, GetViolations(p, result)...)
				}
			}
		}
	}

	var complianceViolations []ComplianceViolation
	for reqID, t := range tallies {
		if len(t.violations) == 0 {
			continue
		}
		std := selected[t.standardID]
		var policyViolationIDs []string
		for _, v := range t.violations {
			policyViolationIDs = append(policyViolationIDs, v.ID)
		}
		complianceViolations = append(complianceViolations, ComplianceViolation{
			ID: fmt.Sprintf("violation-%s", uuid.NewString()), StandardID: t.standardID, StandardName: std.Name,
			RequirementID: reqID, RequirementName: t.requirement.Name, Severity: t.requirement.Severity,
			Description:      fmt.Sprintf("Violation of %s requirement: %s", std.Name, t.requirement.Name),
			PolicyViolations: policyViolationIDs,
			RemediationSteps: remediationStepsFor(t.violations),
		})
	}
	sort.Slice(complianceViolations, func(i, j int) bool { return complianceViolations[i].RequirementID < complianceViolations[j].RequirementID })

	var standards []Standard
	var standardIDsSorted []string
	for id := range selected {
		standardIDsSorted = append(standardIDsSorted, id)
	}
	sort.Strings(standardIDsSorted)
	for _, stdID := range standardIDsSorted {
		std := selected[stdID]
		reqs := make([]Requirement, len(std.Requirements))
		for i, req := range std.Requirements {
			req.Status = requirementStatus(tallies[req.ID])
			reqs[i] = req
		}
		std.Requirements = reqs
		standards = append(standards, std)
	}

	report := ComplianceReport{
		ID: uuid.NewString(), GeneratedAt: time.Now().UTC(), Target: target,
		Standards: standards, Violations: complianceViolations, PolicyEvaluations: results,
		Summary: summarize(selected, tallies, complianceViolations),
	}
	if err := r.save(report); err != nil {
		return ComplianceReport{}, err
	}
	return report, nil
}

func (r *Reporter) selectStandards(ids []string) StandardCatalog {
	selected := StandardCatalog{}
	for _, id := range ids {
		if std, ok := r.catalog[id]; ok {
			selected[id] = std
		}
	}
	if len(selected) == 0 {
		r.logger.Warn("no valid compliance standards selected, using full catalog", zap.Strings("requested", ids))
		return r.catalog
	}
	return selected
}

func (r *Reporter) matchingRequirements(result EvaluationResult, standards StandardCatalog) map[string]bool {
	out := map[string]bool{}
	for _, std := range standards {
		for _, req := range std.Requirements {
			for _, t := range req.PolicyTypes {
				if t == result.PolicyType {
					out[req.ID] = true
				}
			}
		}
	}
	return out
}

func requirementStatus(t *requirementTally) ComplianceStatus {
	if t == nil {
		return ComplianceUnknown
	}
	if len(t.policies) == 0 {
		return ComplianceNotApplicable
	}
	if len(t.violations) > 0 {
		return ComplianceNonCompliant
	}
	return ComplianceCompliant
}

func remediationStepsFor(violations []Violation) []string {
	seen := map[string]bool{}
	var steps []string
	for _, v := range violations {
		for _, step := range v.RemediationSteps {
			if !seen[step] {
				seen[step] = true
				steps = append(steps, step)
			}
		}
	}
	return steps
}

func summarize(standards StandardCatalog, tallies map[string]*requirementTally, violations []ComplianceViolation) ReportSummary {
	statusCounts := map[ComplianceStatus]int{ComplianceCompliant: 0, ComplianceNonCompliant: 0, ComplianceNotApplicable: 0, ComplianceUnknown: 0}
	for _, t := range tallies {
		statusCounts[requirementStatus(t)]++
	}

	severityCounts := map[Severity]int{SeverityCritical: 0, SeverityHigh: 0, SeverityMedium: 0, SeverityLow: 0, SeverityInfo: 0}
	for _, v := range violations {
		severityCounts[v.Severity]++
	}

	requirementsCount := 0
	for _, std := range standards {
		requirementsCount += len(std.Requirements)
	}

	totalApplicable := statusCounts[ComplianceCompliant] + statusCounts[ComplianceNonCompliant]
	score := 0.0
	if totalApplicable > 0 {
		score = float64(statusCounts[ComplianceCompliant]) / float64(totalApplicable) * 100
	}
	score = math.Round(score*100) / 100

	overall := ComplianceCompliant
	if statusCounts[ComplianceNonCompliant] > 0 {
		overall = ComplianceNonCompliant
	}

	return ReportSummary{
		StandardsCount: len(standards), RequirementsCount: requirementsCount, ViolationsCount: len(violations),
		StatusCounts: statusCounts, SeverityCounts: severityCounts, ComplianceScore: score, OverallStatus: overall,
	}
}

func (r *Reporter) save(report ComplianceReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrorTypeInternal, "serialize compliance report")
	}
	ts := report.GeneratedAt.Format("20060102150405")
	filename := fmt.Sprintf("compliance-report-%s-%s.json", report.ID, ts)
	path := filepath.Join(r.reportDir, filename)
	if err := atomicWrite(path, data); err != nil {
		return err
	}
	r.logger.Info("saved compliance report", zap.String("report_id", report.ID), zap.String("file", path))
	return nil
}
