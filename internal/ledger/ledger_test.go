package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claimdeck/claimdeck/internal/claims"
	"github.com/claimdeck/claimdeck/internal/db"
	"github.com/claimdeck/claimdeck/internal/facts"
)

func costFact(name, value string) facts.Fact {
	return facts.Fact{Name: name, Value: facts.Value{value}, Confidence: 0.9}
}

func approx(t *testing.T, got, want float64, label string) {
	t.Helper()
	if math.Abs(got-want) > 0.005 {
		t.Errorf("%s = %.4f, want %.2f", label, got, want)
	}
}

func TestCostFieldTable(t *testing.T) {
	cases := []struct {
		name  string
		label string
		order int
	}{
		{"parts_cost", "Parts", 1},
		{"labour_cost", "Labor", 2},
		{"materials_cost", "Materials", 3},
		{"paint_cost", "Paint", 4},
		{"towing_cost", "Towing", 5},
		{"other_cost", "Other", 6},
		{"discount", "Discount", 7},
	}
	for _, tc := range cases {
		field, ok := costFields[tc.name]
		if !ok {
			t.Errorf("costFields[%q] missing", tc.name)
			continue
		}
		if field.Label != tc.label || field.Order != tc.order {
			t.Errorf("costFields[%q] = %+v, want {%s %d}", tc.name, field, tc.label, tc.order)
		}
	}
}

func TestBuildSortsAndSkipsUnparsable(t *testing.T) {
	l := Build([]facts.Fact{
		costFact("discount", "-10"),
		costFact("storage_cost", "25.00"),
		costFact("parts_cost", "not a number"),
		costFact("labor_cost", "CHF 50.00"),
	})

	if len(l.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3 (unparsable skipped)", len(l.Items))
	}
	// Mapped items by order, the unmapped storage cost last.
	if l.Items[0].Label != "Labor" || l.Items[1].Label != "Discount" || l.Items[2].Label != "Storage Cost" {
		t.Errorf("order = [%s %s %s]", l.Items[0].Label, l.Items[1].Label, l.Items[2].Label)
	}
	for _, item := range l.Items {
		if !item.Approved {
			t.Errorf("item %s should start approved", item.ID)
		}
	}
}

func TestToggleArithmetic(t *testing.T) {
	// Parts 100, Labor 50, Discount -10 with the default 7.7% rate.
	l := Build([]facts.Fact{
		costFact("parts_cost", "100"),
		costFact("labor_cost", "50"),
		costFact("discount", "-10"),
	})

	if l.TaxRate != DefaultTaxRate {
		t.Fatalf("TaxRate = %v, want default", l.TaxRate)
	}

	subtotal, tax, total := l.Totals()
	approx(t, subtotal, 140, "subtotal")
	approx(t, tax, 10.78, "tax")
	approx(t, total, 150.78, "total")

	if !l.Toggle("labor_cost") {
		t.Fatal("Toggle(labor_cost) returned false")
	}
	subtotal, tax, total = l.Totals()
	approx(t, subtotal, 90, "subtotal after toggle")
	approx(t, tax, 6.93, "tax after toggle")
	approx(t, total, 96.93, "total after toggle")

	l.Reset()
	subtotal, _, total = l.Totals()
	approx(t, subtotal, 140, "subtotal after reset")
	approx(t, total, 150.78, "total after reset")
}

func TestDiscountAlwaysNegative(t *testing.T) {
	// A positively-signed discount still subtracts its magnitude.
	l := Build([]facts.Fact{
		costFact("parts_cost", "100"),
		costFact("discount", "10"),
	})
	subtotal, _, _ := l.Totals()
	approx(t, subtotal, 90, "subtotal")
}

func TestToggleUnknownItem(t *testing.T) {
	l := Build([]facts.Fact{costFact("parts_cost", "100")})
	if l.Toggle("no_such_item") {
		t.Error("Toggle of unknown ID should return false")
	}
}

func TestTaxRateFromFacts(t *testing.T) {
	rate := taxRate([]facts.Fact{
		costFact("vat_amount", "8.10"),
		costFact("subtotal", "100.00"),
	})
	approx(t, rate, 0.081, "rate from subtotal")

	// No explicit subtotal: derived from grand total minus tax.
	rate = taxRate([]facts.Fact{
		costFact("mwst", "7.70"),
		costFact("total_amount_incl_vat", "107.70"),
	})
	approx(t, rate, 0.077, "rate from grand total")

	// Nothing usable falls back to the default.
	rate = taxRate([]facts.Fact{costFact("parts_cost", "100")})
	if rate != DefaultTaxRate {
		t.Errorf("rate = %v, want default", rate)
	}
}

func TestSessionRebuildsOnReingest(t *testing.T) {
	sessions := NewSessionStore()
	factList := []facts.Fact{costFact("parts_cost", "100")}
	ingested := time.Now().UTC()

	view, ok := sessions.Toggle("run1", ingested, factList, "parts_cost")
	if !ok {
		t.Fatal("toggle failed")
	}
	approx(t, view.ApprovedSubtotal, 0, "subtotal after toggle")

	// Same timestamp: the toggle sticks across requests.
	view = sessions.View("run1", ingested, factList)
	approx(t, view.ApprovedSubtotal, 0, "subtotal on re-view")

	// New ingest timestamp discards the old session.
	view = sessions.View("run1", ingested.Add(time.Minute), factList)
	approx(t, view.ApprovedSubtotal, 100, "subtotal after re-ingest")
}

func setupLedgerRouter(t *testing.T) (chi.Router, string) {
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
			costFact("parts_cost", "CHF 100.00"),
			costFact("labor_cost", "50"),
			costFact("discount", "-10"),
		},
	})
	if err != nil {
		t.Fatalf("IngestSnapshot: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, store, NewSessionStore())
	return r, run.ID
}

func TestHTTPLedgerFlow(t *testing.T) {
	r, runID := setupLedgerRouter(t)

	get := func(t *testing.T, method, path string, body []byte) View {
		t.Helper()
		req := httptest.NewRequest(method, path, bytes.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s %s: status %d, body %s", method, path, w.Code, w.Body.String())
		}
		var view View
		if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return view
	}

	view := get(t, http.MethodGet, "/api/runs/"+runID+"/ledger", nil)
	if len(view.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(view.Items))
	}
	approx(t, view.ApprovedTotal, 150.78, "initial total")

	view = get(t, http.MethodPost, "/api/runs/"+runID+"/ledger/toggle", []byte(`{"item_id":"labor_cost"}`))
	approx(t, view.ApprovedTotal, 96.93, "total after toggle")

	view = get(t, http.MethodPost, "/api/runs/"+runID+"/ledger/reset", nil)
	approx(t, view.ApprovedTotal, 150.78, "total after reset")
}

func TestHTTPLedgerErrors(t *testing.T) {
	r, runID := setupLedgerRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/missing/ledger", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown run: status = %d, want 404", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/runs/"+runID+"/ledger/toggle", bytes.NewReader([]byte(`{}`)))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing item_id: status = %d, want 400", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/runs/"+runID+"/ledger/toggle", bytes.NewReader([]byte(`{"item_id":"bogus"}`)))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown item: status = %d, want 404", w.Code)
	}
}
