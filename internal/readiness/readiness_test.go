package readiness

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/claimdeck/claimdeck/internal/claims"
	"github.com/claimdeck/claimdeck/internal/db"
	"github.com/claimdeck/claimdeck/internal/facts"
)

func fact(name, value string) facts.Fact {
	return facts.Fact{
		Name:         name,
		Value:        facts.Value{value},
		Confidence:   0.9,
		SelectedFrom: &facts.Provenance{DocID: "doc1", DocType: "invoice"},
	}
}

func allCriticalFacts() []facts.Fact {
	list := make([]facts.Fact, 0, len(CriticalFields))
	for _, f := range CriticalFields {
		list = append(list, fact(f, "x"))
	}
	return list
}

func TestComputeEmptyInputs(t *testing.T) {
	got := Compute(nil, nil, nil, nil)

	// The six critical fields always contribute to the denominator, so an
	// empty run never divides by zero.
	if got.TotalChecks != 6 {
		t.Errorf("TotalChecks = %d, want 6", got.TotalChecks)
	}
	if got.PassedChecks != 0 {
		t.Errorf("PassedChecks = %d, want 0", got.PassedChecks)
	}
	if got.ReadinessPct != 0 {
		t.Errorf("ReadinessPct = %d, want 0", got.ReadinessPct)
	}
	if len(got.BlockingIssues) != 6 {
		t.Fatalf("len(BlockingIssues) = %d, want 6", len(got.BlockingIssues))
	}
	for _, issue := range got.BlockingIssues {
		if issue.Type != IssueMissingEvidence {
			t.Errorf("issue.Type = %q, want missing_evidence", issue.Type)
		}
	}
	if got.CanAutoApprove {
		t.Error("CanAutoApprove should be false with missing evidence")
	}
	if got.CanAutoReject {
		t.Error("CanAutoReject should be false with no failed checks")
	}
}

func TestComputeAllPassed(t *testing.T) {
	checks := []claims.Check{
		{CheckNumber: 1, CheckName: "policy_active", Result: claims.ResultPass},
		{CheckNumber: 2, CheckName: "coverage_match", Result: claims.ResultPass},
	}

	got := Compute(allCriticalFacts(), checks, nil, nil)

	if got.TotalChecks != 8 {
		t.Errorf("TotalChecks = %d, want 8", got.TotalChecks)
	}
	if got.PassedChecks != 8 {
		t.Errorf("PassedChecks = %d, want 8", got.PassedChecks)
	}
	if got.ReadinessPct != 100 {
		t.Errorf("ReadinessPct = %d, want 100", got.ReadinessPct)
	}
	if len(got.BlockingIssues) != 0 {
		t.Errorf("BlockingIssues = %+v, want none", got.BlockingIssues)
	}
	if !got.CanAutoApprove {
		t.Error("CanAutoApprove should be true")
	}
	if got.CanAutoReject {
		t.Error("CanAutoReject should be false")
	}
}

func TestComputeFailedAndInconclusiveChecks(t *testing.T) {
	longDetails := strings.Repeat("a", 80)
	checks := []claims.Check{
		{CheckNumber: 1, CheckName: "damage_consistent", Result: claims.ResultFail, Details: "mismatch"},
		{CheckNumber: 2, CheckName: "timeline_plausible", Result: claims.ResultInconclusive, Details: longDetails},
	}

	got := Compute(allCriticalFacts(), checks, nil, nil)

	if got.TotalChecks != 8 || got.PassedChecks != 6 {
		t.Errorf("counters = %d/%d, want 6/8", got.PassedChecks, got.TotalChecks)
	}
	if len(got.BlockingIssues) != 2 {
		t.Fatalf("len(BlockingIssues) = %d, want 2", len(got.BlockingIssues))
	}

	failed := got.BlockingIssues[0]
	if failed.Type != IssueFailedCheck || failed.CheckNumber != 1 {
		t.Errorf("failed issue = %+v", failed)
	}

	inconclusive := got.BlockingIssues[1]
	if inconclusive.Type != IssueInconclusiveCheck {
		t.Errorf("inconclusive issue = %+v", inconclusive)
	}
	if !strings.HasSuffix(inconclusive.Description, "...") {
		t.Errorf("long details should be truncated with ellipsis: %q", inconclusive.Description)
	}
	if strings.Contains(inconclusive.Description, longDetails) {
		t.Error("details should be truncated to 60 chars")
	}

	// One FAIL and one INCONCLUSIVE: neither auto path is open.
	if got.CanAutoApprove {
		t.Error("CanAutoApprove should be false")
	}
	if got.CanAutoReject {
		t.Error("CanAutoReject should be false while inconclusive checks remain")
	}
}

func TestComputeTruncatesMultibyteDetails(t *testing.T) {
	details := strings.Repeat("ü", 80)
	checks := []claims.Check{
		{CheckNumber: 1, CheckName: "timeline_plausible", Result: claims.ResultInconclusive, Details: details},
	}

	got := Compute(allCriticalFacts(), checks, nil, nil)

	if len(got.BlockingIssues) != 1 {
		t.Fatalf("len(BlockingIssues) = %d, want 1", len(got.BlockingIssues))
	}
	desc := got.BlockingIssues[0].Description
	if !utf8.ValidString(desc) {
		t.Errorf("truncation split a rune: %q", desc)
	}
	want := "Inconclusive: timeline_plausible: " + strings.Repeat("ü", 60) + "..."
	if desc != want {
		t.Errorf("Description = %q, want %q", desc, want)
	}
}

func TestComputeAutoReject(t *testing.T) {
	checks := []claims.Check{
		{CheckNumber: 1, CheckName: "damage_consistent", Result: claims.ResultFail},
		{CheckNumber: 2, CheckName: "policy_active", Result: claims.ResultPass},
	}

	got := Compute(allCriticalFacts(), checks, nil, nil)
	if !got.CanAutoReject {
		t.Error("CanAutoReject should be true with a FAIL and no INCONCLUSIVE")
	}
	if got.CanAutoApprove {
		t.Error("CanAutoApprove should be false")
	}
}

func TestComputeRelatedFactPassesWithoutIssue(t *testing.T) {
	// No fact named *loss_date*, but "lossdate_reported" matches once
	// underscores are stripped: the slot passes and no issue is queued.
	list := allCriticalFacts()
	for i := range list {
		if list[i].Name == "loss_date" {
			list[i] = fact("lossdate_reported", "15.03.2023")
		}
	}

	got := Compute(list, nil, nil, nil)
	if got.PassedChecks != 6 {
		t.Errorf("PassedChecks = %d, want 6", got.PassedChecks)
	}
	for _, issue := range got.BlockingIssues {
		if issue.Field == "loss_date" {
			t.Errorf("unexpected issue for loss_date: %+v", issue)
		}
	}
}

func TestComputeSubstringHeuristicImprecision(t *testing.T) {
	// "vin" matches inside "vintage_status": a known false positive of the
	// substring heuristic, preserved deliberately.
	list := allCriticalFacts()
	for i := range list {
		if list[i].Name == "vin" {
			list[i] = fact("vintage_status", "yes")
		}
	}

	got := Compute(list, nil, nil, nil)
	for _, issue := range got.BlockingIssues {
		if issue.Field == "vin" {
			t.Errorf("vintage_status should satisfy the vin slot: %+v", issue)
		}
	}
}

func TestComputeQualityGate(t *testing.T) {
	docs := []claims.DocSummary{
		{DocID: "doc1", Filename: "blurry.pdf", QualityStatus: "fail"},
		{DocID: "doc2", Filename: "ok.pdf", QualityStatus: "pass"},
	}

	got := Compute(allCriticalFacts(), nil, nil, docs)

	// Quality gates add issues but never touch the counters.
	if got.TotalChecks != 6 || got.PassedChecks != 6 {
		t.Errorf("counters = %d/%d, want 6/6", got.PassedChecks, got.TotalChecks)
	}
	if len(got.BlockingIssues) != 1 {
		t.Fatalf("len(BlockingIssues) = %d, want 1", len(got.BlockingIssues))
	}
	issue := got.BlockingIssues[0]
	if issue.Type != IssueQualityGate || issue.DocID != "doc1" {
		t.Errorf("issue = %+v", issue)
	}
}

func TestComputeCriticalAssumptionsBlockApproval(t *testing.T) {
	assumptions := []claims.Assumption{
		{Field: "repair_duration", Impact: claims.ImpactHigh},
		{Field: "paint_type", Impact: claims.ImpactLow},
	}

	got := Compute(allCriticalFacts(), nil, assumptions, nil)
	if got.CriticalAssumptions != 1 {
		t.Errorf("CriticalAssumptions = %d, want 1", got.CriticalAssumptions)
	}
	if got.CanAutoApprove {
		t.Error("CanAutoApprove should be false with a high-impact assumption")
	}
}

func TestComputeIdempotent(t *testing.T) {
	factList := allCriticalFacts()[:4]
	checks := []claims.Check{
		{CheckNumber: 1, CheckName: "a", Result: claims.ResultFail},
		{CheckNumber: 2, CheckName: "b", Result: claims.ResultInconclusive, Details: "unclear"},
	}
	docs := []claims.DocSummary{{DocID: "d", QualityStatus: "fail"}}

	first := Compute(factList, checks, nil, docs)
	second := Compute(factList, checks, nil, docs)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Compute is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestComputeRounding(t *testing.T) {
	// 6 critical passed + 1 failed check: 6/7 = 85.7 -> 86.
	checks := []claims.Check{{CheckNumber: 1, CheckName: "a", Result: claims.ResultFail}}
	got := Compute(allCriticalFacts(), checks, nil, nil)
	if got.ReadinessPct != 86 {
		t.Errorf("ReadinessPct = %d, want 86", got.ReadinessPct)
	}
}

// HTTP handler tests.

func setupTestRouter(t *testing.T) (chi.Router, *claims.Store, string) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := claims.NewStore(database, time.Minute)
	ctx := context.Background()

	c := &claims.Claim{ClaimNumber: "CLM-1"}
	if err := store.CreateClaim(ctx, c); err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	run, err := store.IngestSnapshot(ctx, c.ID, claims.Snapshot{
		Facts: []facts.Fact{
			{Name: "vehicle_make", Value: facts.Value{"BMW"}, Confidence: 0.92, SelectedFrom: &facts.Provenance{DocID: "d1", DocType: "invoice"}},
			{Name: "mileage", Value: facts.Value{"45000"}, Confidence: 0.5},
		},
		Checks: []claims.Check{
			{CheckNumber: 1, CheckName: "policy_active", Result: claims.ResultPass},
		},
	})
	if err != nil {
		t.Fatalf("IngestSnapshot: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, store)
	return r, store, run.ID
}

func TestHTTPReadiness(t *testing.T) {
	r, _, runID := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+runID+"/readiness", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var got DecisionReadiness
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 6 critical slots + 1 check; vehicle_make, mileage, and the PASS all
	// count.
	if got.TotalChecks != 7 {
		t.Errorf("TotalChecks = %d, want 7", got.TotalChecks)
	}
	if got.PassedChecks != 3 {
		t.Errorf("PassedChecks = %d, want 3", got.PassedChecks)
	}
}

func TestHTTPReadinessNotFound(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/nonexistent/readiness", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHTTPSummary(t *testing.T) {
	r, _, runID := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+runID+"/summary", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var got []FieldSummary
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(CriticalFields) {
		t.Fatalf("len = %d, want %d", len(got), len(CriticalFields))
	}

	byField := map[string]FieldSummary{}
	for _, s := range got {
		byField[s.Field] = s
	}
	if s := byField["vehicle_make"]; s.Status != facts.StatusPresent || s.Value != "BMW" {
		t.Errorf("vehicle_make summary = %+v", s)
	}
	// mileage has confidence 0.5 and no provenance: assumed.
	if s := byField["mileage"]; s.Status != facts.StatusAssumed {
		t.Errorf("mileage summary = %+v", s)
	}
	if s := byField["policy_number"]; s.Status != facts.StatusMissing {
		t.Errorf("policy_number summary = %+v", s)
	}
}
