package campaign

import (
	"context"
	"errors"
)

// ErrNPCNotFound is returned by UpdateNPC when the referenced NPC does not
// exist in the campaign document.
var ErrNPCNotFound = errors.New("campaign: npc not found")

// Store persists the campaign document.
//
// The document is read and written whole; UpdateNPC is the only finer-grained
// operation and is implemented as read-modify-write on top of Load and Save.
// Implementations must be safe for concurrent use, but they do not serialise
// logical read-modify-write cycles across callers — higher layers that need
// per-entity update atomicity (the chat turn orchestrator) hold their own
// per-NPC lock around the whole cycle.
type Store interface {
	// Load returns the current campaign document. A missing backing record
	// is not an error: implementations initialise and return the default
	// document.
	Load(ctx context.Context) (*Document, error)

	// Save writes the whole campaign document back.
	Save(ctx context.Context, doc *Document) error

	// GetNPC retrieves an NPC by ID. Returns (nil, nil) if not found.
	GetNPC(ctx context.Context, id string) (*NPC, error)

	// UpdateNPC loads the document, applies mutate to the NPC with the given
	// ID, and saves the document. Returns ErrNPCNotFound if the NPC does not
	// exist, or the mutate callback's error unchanged (in which case nothing
	// is saved).
	UpdateNPC(ctx context.Context, id string, mutate func(*NPC) error) error
}
