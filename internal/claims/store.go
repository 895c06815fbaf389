package claims

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/claimdeck/claimdeck/internal/conflicts"
	"github.com/claimdeck/claimdeck/internal/db"
	"github.com/claimdeck/claimdeck/internal/facts"
)

// Store provides persistence for claims and run snapshots. Snapshots are
// immutable between ingests, so reads go through a small TTL cache that is
// invalidated whenever a run is (re-)ingested.
type Store struct {
	db    *db.DB
	cache *gocache.Cache
}

// NewStore creates a claims store. ttl bounds how long a cached snapshot
// may be served; ingestion invalidates eagerly regardless.
func NewStore(database *db.DB, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{
		db:    database,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// CreateClaim inserts a new claim. An empty ID is replaced with a UUID.
func (s *Store) CreateClaim(ctx context.Context, c *Claim) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusOpen
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claims (id, claim_number, policy_number, claimant, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ClaimNumber, c.PolicyNumber, c.Claimant, string(c.Status),
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting claim: %w", err)
	}
	return nil
}

// EnsureClaim finds a claim by claim number, creating it if absent.
func (s *Store) EnsureClaim(ctx context.Context, c Claim) (*Claim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, claim_number, policy_number, claimant, status, created_at, updated_at
		FROM claims WHERE claim_number = ?`, c.ClaimNumber)
	existing, err := scanClaim(row)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if err := s.CreateClaim(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetClaim retrieves a claim by ID. Returns (nil, nil) when not found.
func (s *Store) GetClaim(ctx context.Context, id string) (*Claim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, claim_number, policy_number, claimant, status, created_at, updated_at
		FROM claims WHERE id = ?`, id)
	return scanClaim(row)
}

// ListClaims returns all claims, most recently updated first.
func (s *Store) ListClaims(ctx context.Context) ([]Claim, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_number, policy_number, claimant, status, created_at, updated_at
		FROM claims ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *c)
	}
	return results, rows.Err()
}

// ListRuns returns a claim's runs, most recently ingested first.
func (s *Store) ListRuns(ctx context.Context, claimID string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, label, status, ingested_at
		FROM claim_runs WHERE claim_id = ? ORDER BY ingested_at DESC`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// GetRun retrieves run metadata by ID. Returns (nil, nil) when not found.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, claim_id, label, status, ingested_at
		FROM claim_runs WHERE id = ?`, runID)
	return scanRun(row)
}

// IngestSnapshot stores a run snapshot in a single transaction. When the
// snapshot names an existing run, that run's entire data set is replaced;
// otherwise a new run is created. Partial updates (new facts against stale
// checks) are unrepresentable by construction.
func (s *Store) IngestSnapshot(ctx context.Context, claimID string, snap Snapshot) (*Run, error) {
	claim, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("claim %s not found", claimID)
	}

	now := time.Now().UTC()
	run := &Run{
		ID:         snap.RunID,
		ClaimID:    claimID,
		Label:      snap.Label,
		Status:     RunCompleted,
		IngestedAt: now,
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Replace run metadata and all run-scoped rows wholesale.
	if _, err := tx.ExecContext(ctx, `DELETE FROM claim_runs WHERE id = ?`, run.ID); err != nil {
		return nil, fmt.Errorf("clearing previous run: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO claim_runs (id, claim_id, label, status, ingested_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, claimID, run.Label, string(run.Status), now.Format(time.DateTime))
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}

	for i, f := range snap.Facts {
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding fact %s: %w", f.Name, err)
		}
		var selectedFrom *string
		if f.SelectedFrom != nil {
			b, err := json.Marshal(f.SelectedFrom)
			if err != nil {
				return nil, fmt.Errorf("encoding provenance for %s: %w", f.Name, err)
			}
			str := string(b)
			selectedFrom = &str
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_facts (run_id, position, name, value, confidence, selected_from)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, i, f.Name, string(value), f.Confidence, selectedFrom)
		if err != nil {
			return nil, fmt.Errorf("inserting fact %s: %w", f.Name, err)
		}
	}

	for _, c := range snap.Checks {
		refs, err := json.Marshal(c.EvidenceRefs)
		if err != nil {
			return nil, fmt.Errorf("encoding evidence refs: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_checks (run_id, check_number, check_name, result, details, evidence_refs)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, c.CheckNumber, c.CheckName, string(c.Result), c.Details, string(refs))
		if err != nil {
			return nil, fmt.Errorf("inserting check %d: %w", c.CheckNumber, err)
		}
	}

	for i, a := range snap.Assumptions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_assumptions (run_id, position, check_number, field, assumed_value, impact, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, a.CheckNumber, a.Field, a.AssumedValue, string(a.Impact), a.Reason)
		if err != nil {
			return nil, fmt.Errorf("inserting assumption for %s: %w", a.Field, err)
		}
	}

	for i, c := range snap.Conflicts {
		values, err := json.Marshal(c.Values)
		if err != nil {
			return nil, fmt.Errorf("encoding conflict values: %w", err)
		}
		sources, err := json.Marshal(c.Sources)
		if err != nil {
			return nil, fmt.Errorf("encoding conflict sources: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_conflicts (run_id, position, fact_name, conflict_values, sources, selected_value, selected_confidence, selection_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, c.FactName, string(values), string(sources),
			c.SelectedValue, c.SelectedConfidence, c.SelectionReason)
		if err != nil {
			return nil, fmt.Errorf("inserting conflict %s: %w", c.FactName, err)
		}
	}

	for i, e := range snap.ServiceEntries {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_service_entries (run_id, position, date, mileage, service_type, provider, work_performed)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, e.Date, e.Mileage, e.ServiceType, e.Provider, e.WorkPerformed)
		if err != nil {
			return nil, fmt.Errorf("inserting service entry %d: %w", i, err)
		}
	}

	for _, d := range snap.Documents {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_documents (run_id, doc_id, doc_type, filename, quality_status)
			VALUES (?, ?, ?, ?, ?)`,
			run.ID, d.DocID, d.DocType, d.Filename, d.QualityStatus)
		if err != nil {
			return nil, fmt.Errorf("inserting document %s: %w", d.DocID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `UPDATE claims SET updated_at = ? WHERE id = ?`,
		now.Format(time.DateTime), claimID)
	if err != nil {
		return nil, fmt.Errorf("touching claim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing snapshot: %w", err)
	}

	s.cache.Delete(run.ID)
	return run, nil
}

// Snapshot loads the full data set of a run. Returns (nil, nil) when the
// run does not exist.
func (s *Store) Snapshot(ctx context.Context, runID string) (*Snapshot, error) {
	if cached, ok := s.cache.Get(runID); ok {
		return cached.(*Snapshot), nil
	}

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nil
	}

	snap := &Snapshot{RunID: run.ID, Label: run.Label}

	if snap.Facts, err = s.loadFacts(ctx, runID); err != nil {
		return nil, err
	}
	if snap.Checks, err = s.loadChecks(ctx, runID); err != nil {
		return nil, err
	}
	if snap.Assumptions, err = s.loadAssumptions(ctx, runID); err != nil {
		return nil, err
	}
	if snap.Conflicts, err = s.loadConflicts(ctx, runID); err != nil {
		return nil, err
	}
	if snap.ServiceEntries, err = s.loadServiceEntries(ctx, runID); err != nil {
		return nil, err
	}
	if snap.Documents, err = s.loadDocuments(ctx, runID); err != nil {
		return nil, err
	}

	s.cache.SetDefault(runID, snap)
	return snap, nil
}

func (s *Store) loadFacts(ctx context.Context, runID string) ([]facts.Fact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value, confidence, selected_from
		FROM run_facts WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []facts.Fact
	for rows.Next() {
		var f facts.Fact
		var value string
		var selectedFrom sql.NullString
		if err := rows.Scan(&f.Name, &value, &f.Confidence, &selectedFrom); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(value), &f.Value); err != nil {
			return nil, fmt.Errorf("decoding fact %s: %w", f.Name, err)
		}
		if selectedFrom.Valid {
			var p facts.Provenance
			if err := json.Unmarshal([]byte(selectedFrom.String), &p); err != nil {
				return nil, fmt.Errorf("decoding provenance for %s: %w", f.Name, err)
			}
			f.SelectedFrom = &p
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

func (s *Store) loadChecks(ctx context.Context, runID string) ([]Check, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT check_number, check_name, result, details, evidence_refs
		FROM run_checks WHERE run_id = ? ORDER BY check_number`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Check
	for rows.Next() {
		var c Check
		var result, refs string
		if err := rows.Scan(&c.CheckNumber, &c.CheckName, &result, &c.Details, &refs); err != nil {
			return nil, err
		}
		c.Result = CheckResult(result)
		if err := json.Unmarshal([]byte(refs), &c.EvidenceRefs); err != nil {
			return nil, fmt.Errorf("decoding evidence refs: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (s *Store) loadAssumptions(ctx context.Context, runID string) ([]Assumption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT check_number, field, assumed_value, impact, reason
		FROM run_assumptions WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Assumption
	for rows.Next() {
		var a Assumption
		var impact string
		if err := rows.Scan(&a.CheckNumber, &a.Field, &a.AssumedValue, &impact, &a.Reason); err != nil {
			return nil, err
		}
		a.Impact = Impact(impact)
		results = append(results, a)
	}
	return results, rows.Err()
}

func (s *Store) loadConflicts(ctx context.Context, runID string) ([]conflicts.Conflict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fact_name, conflict_values, sources, selected_value, selected_confidence, selection_reason
		FROM run_conflicts WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []conflicts.Conflict
	for rows.Next() {
		var c conflicts.Conflict
		var values, sources string
		if err := rows.Scan(&c.FactName, &values, &sources, &c.SelectedValue, &c.SelectedConfidence, &c.SelectionReason); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(values), &c.Values); err != nil {
			return nil, fmt.Errorf("decoding conflict values: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &c.Sources); err != nil {
			return nil, fmt.Errorf("decoding conflict sources: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (s *Store) loadServiceEntries(ctx context.Context, runID string) ([]ServiceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, mileage, service_type, provider, work_performed
		FROM run_service_entries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ServiceEntry
	for rows.Next() {
		var e ServiceEntry
		if err := rows.Scan(&e.Date, &e.Mileage, &e.ServiceType, &e.Provider, &e.WorkPerformed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

func (s *Store) loadDocuments(ctx context.Context, runID string) ([]DocSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, doc_type, filename, quality_status
		FROM run_documents WHERE run_id = ? ORDER BY doc_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DocSummary
	for rows.Next() {
		var d DocSummary
		if err := rows.Scan(&d.DocID, &d.DocType, &d.Filename, &d.QualityStatus); err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(sc scanner) (*Claim, error) {
	var c Claim
	var status string

	// The driver hands DATETIME columns back as time.Time.
	err := sc.Scan(&c.ID, &c.ClaimNumber, &c.PolicyNumber, &c.Claimant, &status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	c.Status = ClaimStatus(status)
	return &c, nil
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var status string

	err := sc.Scan(&r.ID, &r.ClaimID, &r.Label, &status, &r.IngestedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	r.Status = RunStatus(status)
	return &r, nil
}
