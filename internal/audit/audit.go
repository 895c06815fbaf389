// Package audit keeps a trail of who changed what on a claim. Entries are
// append-only; the dashboard surfaces them on the claim history panel.
package audit

import "time"

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
)

// Action describes what was done.
type Action string

const (
	ActionClaimCreated     Action = "claim_created"
	ActionSnapshotIngested Action = "snapshot_ingested"
	ActionNoteAdded        Action = "note_added"
	ActionLedgerToggled    Action = "ledger_toggled"
	ActionLedgerReset      Action = "ledger_reset"
	ActionProgressPosted   Action = "progress_posted"
)

// Entry is a single audit trail record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorType ActorType `json:"actor_type"`
	ActorID   string    `json:"actor_id,omitempty"`
	Action    Action    `json:"action"`
	ClaimID   string    `json:"claim_id,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
