package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the campaign_documents table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
//
// The whole campaign is stored as one JSONB document per row, mirroring the
// file store's single-document model; the fixed 'default' row is the only one
// a single-campaign deployment uses.
const Schema = `
CREATE TABLE IF NOT EXISTS campaign_documents (
    id         TEXT PRIMARY KEY,
    doc        JSONB NOT NULL DEFAULT '{}',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// defaultDocumentID is the row key used for the single campaign document.
const defaultDocumentID = "default"

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. It keeps the
// one-document persistence model of the file store but gains durable storage
// and server-side write serialisation for deployments that outgrow a flat
// file.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// campaign_documents table if it does not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("campaign: migrate: %w", err)
	}
	return nil
}

// Load implements [Store]. A missing row initialises the default document.
func (s *PostgresStore) Load(ctx context.Context) (*Document, error) {
	const query = `SELECT doc FROM campaign_documents WHERE id = $1`

	var raw []byte
	err := s.db.QueryRow(ctx, query, defaultDocumentID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		doc := DefaultDocument()
		if err := s.Save(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("campaign: load document: %w", err)
	}

	doc := &Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("campaign: parse document: %w", err)
	}
	doc.applyDefaults()
	return doc, nil
}

// Save implements [Store].
func (s *PostgresStore) Save(ctx context.Context, doc *Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("campaign: marshal document: %w", err)
	}

	const query = `
		INSERT INTO campaign_documents (id, doc)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			doc = EXCLUDED.doc,
			updated_at = now()`

	if _, err := s.db.Exec(ctx, query, defaultDocumentID, raw); err != nil {
		return fmt.Errorf("campaign: save document: %w", err)
	}
	return nil
}

// GetNPC implements [Store]. Returns (nil, nil) if not found.
func (s *PostgresStore) GetNPC(ctx context.Context, id string) (*NPC, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	npc := doc.FindNPC(id)
	if npc == nil {
		return nil, nil
	}
	cp := *npc
	return &cp, nil
}

// UpdateNPC implements [Store]. The cycle is load-mutate-save; callers that
// need the cycle to be atomic with respect to other writers of the same NPC
// hold their own per-NPC lock (see the chat turn orchestrator).
func (s *PostgresStore) UpdateNPC(ctx context.Context, id string, mutate func(*NPC) error) error {
	doc, err := s.Load(ctx)
	if err != nil {
		return err
	}
	npc := doc.FindNPC(id)
	if npc == nil {
		return ErrNPCNotFound
	}
	if err := mutate(npc); err != nil {
		return err
	}
	return s.Save(ctx, doc)
}
