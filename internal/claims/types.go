// Package claims stores insurance claims and the per-run assessment
// snapshots the backend produces for them. A snapshot (facts, checks,
// assumptions, conflicts, service history, documents) is treated as one
// consistent unit: ingestion replaces it atomically, reads always see a
// whole run.
package claims

import (
	"time"

	"github.com/claimdeck/claimdeck/internal/conflicts"
	"github.com/claimdeck/claimdeck/internal/facts"
)

// ClaimStatus tracks a claim through review.
type ClaimStatus string

const (
	StatusOpen     ClaimStatus = "open"
	StatusInReview ClaimStatus = "in_review"
	StatusDecided  ClaimStatus = "decided"
	StatusClosed   ClaimStatus = "closed"
)

// Claim is a single insurance claim under review.
type Claim struct {
	ID           string      `json:"id"`
	ClaimNumber  string      `json:"claim_number"`
	PolicyNumber string      `json:"policy_number,omitempty"`
	Claimant     string      `json:"claimant,omitempty"`
	Status       ClaimStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// RunStatus is the lifecycle state of an assessment run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// Run identifies one assessment run of a claim. IngestedAt changes every
// time the run's snapshot is replaced; derived-view sessions key off it.
type Run struct {
	ID         string    `json:"id"`
	ClaimID    string    `json:"claim_id"`
	Label      string    `json:"label,omitempty"`
	Status     RunStatus `json:"status"`
	IngestedAt time.Time `json:"ingested_at"`
}

// CheckResult is a backend-evaluated rule outcome.
type CheckResult string

const (
	ResultPass         CheckResult = "PASS"
	ResultFail         CheckResult = "FAIL"
	ResultInconclusive CheckResult = "INCONCLUSIVE"
)

// Check is one rule evaluation from the backend's check engine.
type Check struct {
	CheckNumber  int         `json:"check_number"`
	CheckName    string      `json:"check_name"`
	Result       CheckResult `json:"result"`
	Details      string      `json:"details,omitempty"`
	EvidenceRefs []string    `json:"evidence_refs,omitempty"`
}

// Impact grades how much an assumption could sway the decision.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Assumption is a value the backend inferred when extraction came up empty.
type Assumption struct {
	CheckNumber  int    `json:"check_number"`
	Field        string `json:"field"`
	AssumedValue string `json:"assumed_value,omitempty"`
	Impact       Impact `json:"impact"`
	Reason       string `json:"reason,omitempty"`
}

// ServiceEntry is one record from a vehicle's service history. Date and
// mileage arrive as free-form strings and are parsed downstream.
type ServiceEntry struct {
	Date          string `json:"date"`
	Mileage       string `json:"mileage"`
	ServiceType   string `json:"service_type,omitempty"`
	Provider      string `json:"provider,omitempty"`
	WorkPerformed string `json:"work_performed,omitempty"`
}

// DocSummary describes a source document and its intake quality gate.
type DocSummary struct {
	DocID         string `json:"doc_id"`
	DocType       string `json:"doc_type,omitempty"`
	Filename      string `json:"filename,omitempty"`
	QualityStatus string `json:"quality_status,omitempty"`
}

// Snapshot is the full data set of one assessment run. Conflict sources
// normalize to the structured shape during JSON decoding, so everything
// past the ingestion boundary sees one canonical representation.
type Snapshot struct {
	RunID          string               `json:"run_id,omitempty"`
	Label          string               `json:"label,omitempty"`
	Facts          []facts.Fact         `json:"facts"`
	Checks         []Check              `json:"checks,omitempty"`
	Assumptions    []Assumption         `json:"assumptions,omitempty"`
	Conflicts      []conflicts.Conflict `json:"conflicts,omitempty"`
	ServiceEntries []ServiceEntry       `json:"service_history,omitempty"`
	Documents      []DocSummary         `json:"documents,omitempty"`
}

// IngestFile is the on-disk format consumed by `claimdeck ingest`: claim
// identity plus one run snapshot.
type IngestFile struct {
	Claim    Claim    `json:"claim"`
	Snapshot Snapshot `json:"snapshot"`
}
