// Package ledger derives a toggleable cost breakdown from a run's cost
// facts. Approval toggles are reviewer working state: they live in memory
// per run and are never written back to the store.
package ledger

import (
	"math"
	"sort"
	"strings"

	"github.com/claimdeck/claimdeck/internal/facts"
	"github.com/claimdeck/claimdeck/internal/parse"
)

// DefaultTaxRate is the Swiss standard VAT rate applied when no usable
// tax/subtotal pair is present. Behavioral contract, do not tune here.
const DefaultTaxRate = 0.077

// costField assigns a ledger label and sort position to a cost fact name.
// Defined once so the mapping can be tested directly.
type costField struct {
	Label string
	Order int
}

// unmappedOrder sorts cost facts without a table entry after everything
// mapped.
const unmappedOrder = 99

var costFields = map[string]costField{
	"parts_cost":      {"Parts", 1},
	"parts_total":     {"Parts", 1},
	"spare_parts":     {"Parts", 1},
	"labor_cost":      {"Labor", 2},
	"labour_cost":     {"Labor", 2},
	"work_cost":       {"Labor", 2},
	"materials_cost":  {"Materials", 3},
	"material_cost":   {"Materials", 3},
	"paint_cost":      {"Paint", 4},
	"paintwork_cost":  {"Paint", 4},
	"towing_cost":     {"Towing", 5},
	"recovery_cost":   {"Towing", 5},
	"other_cost":      {"Other", 6},
	"misc_cost":       {"Other", 6},
	"discount":        {"Discount", 7},
	"discount_amount": {"Discount", 7},
	"rebate":          {"Discount", 7},
}

var (
	taxAliases      = []string{"vat_amount", "tax_amount", "mwst"}
	totalAliases    = []string{"total_amount_incl_vat", "total_amount", "gross_total", "invoice_total"}
	subtotalAliases = []string{"subtotal", "net_total", "total_amount_excl_vat"}
)

// LineItem is one row of the cost ledger. Amount keeps the parsed sign;
// discount rows contribute their magnitude negatively regardless of it.
type LineItem struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Amount   float64 `json:"amount"`
	Display  string  `json:"display"`
	Approved bool    `json:"approved"`
	order    int
}

// Ledger holds the line items and tax parameters for one run. Callers
// coordinate access through a SessionStore; Ledger itself is not
// goroutine-safe.
type Ledger struct {
	Items   []LineItem
	TaxRate float64
}

// Build derives a ledger from a run's facts. Facts named in the cost table
// (or otherwise marked as costs) become line items; amounts that fail to
// parse are skipped. All items start approved.
func Build(factList []facts.Fact) *Ledger {
	var items []LineItem
	for _, f := range factList {
		name := strings.ToLower(f.Name)
		field, mapped := costFields[name]
		if !mapped {
			if !strings.Contains(name, "cost") {
				continue
			}
			field = costField{Label: humanize(f.Name), Order: unmappedOrder}
		}

		amount, ok := parse.Amount(f.Value.First())
		if !ok {
			continue
		}
		items = append(items, LineItem{
			ID:       f.Name,
			Label:    field.Label,
			Amount:   amount,
			Display:  parse.FormatAmount(amount),
			Approved: true,
			order:    field.Order,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].order < items[j].order })

	return &Ledger{
		Items:   items,
		TaxRate: taxRate(factList),
	}
}

// taxRate derives the effective tax rate from the run's tax, grand-total,
// and subtotal facts, falling back to DefaultTaxRate when the subtotal is
// zero or unavailable.
func taxRate(factList []facts.Fact) float64 {
	taxStr, _ := facts.Resolve(factList, taxAliases...)
	tax, ok := parse.Amount(taxStr)
	if !ok {
		return DefaultTaxRate
	}

	subtotalStr, _ := facts.Resolve(factList, subtotalAliases...)
	subtotal, ok := parse.Amount(subtotalStr)
	if !ok || subtotal == 0 {
		grandStr, _ := facts.Resolve(factList, totalAliases...)
		if grand, ok := parse.Amount(grandStr); ok {
			subtotal = grand - tax
		}
	}
	if subtotal == 0 {
		return DefaultTaxRate
	}
	return tax / subtotal
}

// Toggle flips one item's approval flag. Returns false when the ID matches
// no line item.
func (l *Ledger) Toggle(id string) bool {
	for i := range l.Items {
		if l.Items[i].ID == id {
			l.Items[i].Approved = !l.Items[i].Approved
			return true
		}
	}
	return false
}

// Reset restores every item to approved.
func (l *Ledger) Reset() {
	for i := range l.Items {
		l.Items[i].Approved = true
	}
}

// Totals computes the approved subtotal, tax, and total. Discount rows are
// subtracted as magnitudes whatever the sign of their parsed amount.
func (l *Ledger) Totals() (subtotal, tax, total float64) {
	for _, item := range l.Items {
		if !item.Approved {
			continue
		}
		if strings.Contains(strings.ToLower(item.Label), "discount") {
			subtotal -= math.Abs(item.Amount)
		} else {
			subtotal += item.Amount
		}
	}
	tax = subtotal * l.TaxRate
	total = subtotal + tax
	return subtotal, tax, total
}

// humanize turns a fact name like "storage_cost" into "Storage Cost".
func humanize(name string) string {
	words := strings.Split(strings.ToLower(name), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
