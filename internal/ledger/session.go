package ledger

import (
	"sync"
	"time"

	"github.com/claimdeck/claimdeck/internal/facts"
)

// View is the serialized state of a run's ledger session.
type View struct {
	Items            []LineItem `json:"items"`
	TaxRate          float64    `json:"tax_rate"`
	ApprovedSubtotal float64    `json:"approved_subtotal"`
	ApprovedTax      float64    `json:"approved_tax"`
	ApprovedTotal    float64    `json:"approved_total"`
}

// SessionStore keeps the per-run ledger sessions. A session survives across
// requests but is rebuilt from scratch whenever the run is re-ingested, so
// stale toggles never outlive the facts they were made against. Sessions
// are never persisted.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	ingestedAt time.Time
	ledger     *Ledger
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session)}
}

// get returns the live ledger for a run, rebuilding when the ingest
// timestamp has moved. Caller must hold s.mu.
func (s *SessionStore) get(runID string, ingestedAt time.Time, factList []facts.Fact) *Ledger {
	if sess, ok := s.sessions[runID]; ok && sess.ingestedAt.Equal(ingestedAt) {
		return sess.ledger
	}
	l := Build(factList)
	s.sessions[runID] = &session{ingestedAt: ingestedAt, ledger: l}
	return l
}

// View returns the current ledger state for a run.
func (s *SessionStore) View(runID string, ingestedAt time.Time, factList []facts.Fact) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.get(runID, ingestedAt, factList))
}

// Toggle flips one item's approval and returns the recomputed state.
// ok is false when the item ID is unknown.
func (s *SessionStore) Toggle(runID string, ingestedAt time.Time, factList []facts.Fact, itemID string) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.get(runID, ingestedAt, factList)
	if !l.Toggle(itemID) {
		return View{}, false
	}
	return snapshot(l), true
}

// Reset restores all items to approved and returns the original totals.
func (s *SessionStore) Reset(runID string, ingestedAt time.Time, factList []facts.Fact) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.get(runID, ingestedAt, factList)
	l.Reset()
	return snapshot(l)
}

func snapshot(l *Ledger) View {
	items := make([]LineItem, len(l.Items))
	copy(items, l.Items)
	subtotal, tax, total := l.Totals()
	return View{
		Items:            items,
		TaxRate:          l.TaxRate,
		ApprovedSubtotal: subtotal,
		ApprovedTax:      tax,
		ApprovedTotal:    total,
	}
}
