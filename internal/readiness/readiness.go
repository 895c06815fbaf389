// Package readiness estimates how close a claim run is to being safely
// auto-decided. The score is a display heuristic, not an authoritative
// decision: the thresholds and counting quirks below are behavioral
// contracts reproduced from the reviewed dashboard, pending product
// sign-off.
package readiness

import (
	"fmt"
	"math"
	"strings"

	"github.com/claimdeck/claimdeck/internal/claims"
	"github.com/claimdeck/claimdeck/internal/facts"
)

// IssueType classifies a blocking issue.
type IssueType string

const (
	IssueMissingEvidence   IssueType = "missing_evidence"
	IssueFailedCheck       IssueType = "failed_check"
	IssueInconclusiveCheck IssueType = "inconclusive_check"
	IssueConflict          IssueType = "conflict"
	IssueQualityGate       IssueType = "quality_gate"
)

// maxIssueDetail caps the check details quoted in an inconclusive issue.
const maxIssueDetail = 60

// CriticalFields are the facts a reviewer always needs before deciding.
// Each contributes one slot to the readiness denominator.
var CriticalFields = []string{
	"incident_date",
	"loss_date",
	"policy_number",
	"vin",
	"vehicle_make",
	"mileage",
}

// BlockingIssue is one reason a claim cannot be auto-decided. Issues are
// derived fresh on every computation and never persisted.
type BlockingIssue struct {
	Type        IssueType `json:"type"`
	Description string    `json:"description"`
	Field       string    `json:"field,omitempty"`
	DocID       string    `json:"doc_id,omitempty"`
	CheckNumber int       `json:"check_number,omitempty"`
}

// DecisionReadiness is the derived readiness summary for one claim run.
type DecisionReadiness struct {
	ReadinessPct        int             `json:"readiness_pct"`
	TotalChecks         int             `json:"total_checks"`
	PassedChecks        int             `json:"passed_checks"`
	BlockingIssues      []BlockingIssue `json:"blocking_issues"`
	CriticalAssumptions int             `json:"critical_assumptions"`
	CanAutoApprove      bool            `json:"can_auto_approve"`
	CanAutoReject       bool            `json:"can_auto_reject"`
}

// Compute derives the readiness summary from a run's facts, check results,
// assumptions, and document quality gates. It is a pure function: the same
// inputs always produce the same output, in the same order.
func Compute(factList []facts.Fact, checks []claims.Check, assumptions []claims.Assumption, documents []claims.DocSummary) DecisionReadiness {
	var (
		totalChecks     int
		passedChecks    int
		blockingIssues  []BlockingIssue
		failCount       int
		inconclusive    int
		missingEvidence int
	)

	// Critical facts each occupy one readiness slot. A direct hit (name
	// equals or contains the field) passes; otherwise a looser related-fact
	// search (underscores stripped) may still pass the slot without raising
	// an issue. The related match is a substring heuristic and can collide
	// ("vin" inside "vintage"); that imprecision is preserved on purpose.
	for _, field := range CriticalFields {
		totalChecks++

		if fact := findFact(factList, field); fact != nil {
			passedChecks++
			continue
		}
		if fact := findRelatedFact(factList, field); fact != nil {
			passedChecks++
			continue
		}

		missingEvidence++
		blockingIssues = append(blockingIssues, BlockingIssue{
			Type:        IssueMissingEvidence,
			Description: fmt.Sprintf("Missing critical fact: %s", field),
			Field:       field,
		})
	}

	for _, check := range checks {
		totalChecks++
		switch check.Result {
		case claims.ResultPass:
			passedChecks++
		case claims.ResultFail:
			failCount++
			blockingIssues = append(blockingIssues, BlockingIssue{
				Type:        IssueFailedCheck,
				Description: fmt.Sprintf("Check failed: %s", check.CheckName),
				CheckNumber: check.CheckNumber,
			})
		case claims.ResultInconclusive:
			inconclusive++
			blockingIssues = append(blockingIssues, BlockingIssue{
				Type:        IssueInconclusiveCheck,
				Description: fmt.Sprintf("Inconclusive: %s: %s", check.CheckName, truncate(check.Details, maxIssueDetail)),
				CheckNumber: check.CheckNumber,
			})
		}
	}

	// Quality-gate failures block review but stay outside the counters.
	for _, doc := range documents {
		if doc.QualityStatus != "fail" {
			continue
		}
		name := doc.Filename
		if name == "" {
			name = doc.DocID
		}
		blockingIssues = append(blockingIssues, BlockingIssue{
			Type:        IssueQualityGate,
			Description: fmt.Sprintf("Document failed quality gate: %s", name),
			DocID:       doc.DocID,
		})
	}

	criticalAssumptions := 0
	for _, a := range assumptions {
		if a.Impact == claims.ImpactHigh {
			criticalAssumptions++
		}
	}

	pct := 0
	if totalChecks > 0 {
		pct = int(math.Round(float64(passedChecks) / float64(totalChecks) * 100))
	}

	return DecisionReadiness{
		ReadinessPct:        pct,
		TotalChecks:         totalChecks,
		PassedChecks:        passedChecks,
		BlockingIssues:      blockingIssues,
		CriticalAssumptions: criticalAssumptions,
		CanAutoApprove:      failCount == 0 && inconclusive == 0 && missingEvidence == 0 && criticalAssumptions == 0,
		CanAutoReject:       failCount > 0 && inconclusive == 0,
	}
}

// findFact returns the first fact whose name equals or contains the field
// name (case-insensitive) and carries a usable value.
func findFact(list []facts.Fact, field string) *facts.Fact {
	needle := strings.ToLower(field)
	for i := range list {
		f := &list[i]
		name := strings.ToLower(f.Name)
		if (name == needle || strings.Contains(name, needle)) && !f.Value.IsEmpty() {
			return f
		}
	}
	return nil
}

// findRelatedFact retries with underscores stripped from both sides, so
// "lossdate" still matches "loss_date_reported".
func findRelatedFact(list []facts.Fact, field string) *facts.Fact {
	needle := strings.ReplaceAll(strings.ToLower(field), "_", "")
	for i := range list {
		f := &list[i]
		name := strings.ReplaceAll(strings.ToLower(f.Name), "_", "")
		if strings.Contains(name, needle) && !f.Value.IsEmpty() {
			return f
		}
	}
	return nil
}

// truncate limits s to max runes; byte slicing would split multibyte
// characters in umlaut-heavy check details.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
